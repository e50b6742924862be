package db

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores() map[string]func() Store {
	return map[string]func() Store{
		"single":  func() Store { return New() },
		"sharded": func() Store { return NewSharded(8) },
	}
}

func TestStoreSetAndGet(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open()
			s.Set("one", "1")
			s.Set("two", "2")

			value, exists := s.Get("one")
			assert.True(t, exists, "Key 'one' should exist")
			assert.Equal(t, "1", value)

			_, exists = s.Get("three")
			assert.False(t, exists, "Key 'three' should not exist")

			s.Set("one", "uno")
			value, _ = s.Get("one")
			assert.Equal(t, "uno", value, "Set overwrites")
			assert.Equal(t, 2, s.Size())
		})
	}
}

func TestStoreEmptyValueIsPresent(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open()
			s.Set("empty", "")
			value, exists := s.Get("empty")
			assert.True(t, exists)
			assert.Equal(t, "", value)
			assert.True(t, s.Exists("empty"))
		})
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open()
			assert.False(t, s.Delete("k"), "never set")

			s.Set("k", "v")
			assert.True(t, s.Delete("k"))
			assert.False(t, s.Delete("k"), "already deleted")
			assert.False(t, s.Exists("k"))
			assert.Equal(t, 0, s.Size())
		})
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	const (
		goroutines = 16
		perWorker  = 500
	)

	for name, open := range stores() {
		t.Run(name, func(t *testing.T) {
			s := open()
			var wg sync.WaitGroup
			failures := make(chan string, goroutines*perWorker)

			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						key := fmt.Sprintf("key:%d:%d", g, i)
						value := fmt.Sprintf("value:%d", i)
						s.Set(key, value)
						if got, ok := s.Get(key); !ok || got != value {
							failures <- key
						}
						if !s.Exists(key) {
							failures <- key
						}
					}
				}(g)
			}
			wg.Wait()
			close(failures)

			for key := range failures {
				t.Errorf("read after write failed for %s", key)
			}
			assert.Equal(t, goroutines*perWorker, s.Size())
		})
	}
}

func TestNewShardedRoundsUp(t *testing.T) {
	assert.Equal(t, 8, NewSharded(5).ShardCount())
	assert.Equal(t, DefaultShardCount, NewSharded(0).ShardCount())
	assert.Equal(t, 1, NewSharded(1).ShardCount())
}

func TestOpen(t *testing.T) {
	_, single := Open(1).(*RedisDb)
	require.True(t, single)

	sharded, ok := Open(4).(*ShardedDb)
	require.True(t, ok)
	assert.Equal(t, 4, sharded.ShardCount())
}
