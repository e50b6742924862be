// Package pool runs submitted tasks on a fixed set of worker goroutines.
package pool

import (
	"errors"
	"sync"

	"github.com/fzft/go-mini-redis/deps/adlist"
	"github.com/fzft/go-mini-redis/log"
	"go.uber.org/zap"
)

var ErrPoolStopped = errors.New("pool: submit on stopped pool")

// Task is a unit of work. It receives nothing; captured state carries its
// inputs.
type Task func()

// Pool is a fixed size worker pool backed by an unbounded FIFO queue.
//
// Tasks are started in submission order. Once Shutdown is called no new task
// is accepted, but every task already queued still runs before the workers
// exit.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   *adlist.List[Task]
	stopped bool
	size    int
	wg      sync.WaitGroup
	once    sync.Once
}

// New starts size workers. A size below one is raised to one.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		queue: adlist.NewList[Task](),
		size:  size,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker(i)
	}
	return p
}

// Submit enqueues task and wakes one idle worker.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("pool: nil task")
	}
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	p.queue.AddNodeTail(task)
	p.mu.Unlock()
	p.cond.Signal()
	return nil
}

// Shutdown stops intake, lets workers drain the queue and waits for all of
// them to exit. It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		p.cond.Broadcast()
	})
	p.wg.Wait()
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Pending returns the number of queued tasks not yet picked up.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for p.queue.Len() == 0 && !p.stopped {
			p.cond.Wait()
		}
		task, ok := p.queue.PopHead()
		p.mu.Unlock()

		if !ok {
			// stopped and drained
			return
		}
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Error("task panicked", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	task()
}
