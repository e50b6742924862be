package node

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fzft/go-mini-redis/config"
	"github.com/fzft/go-mini-redis/db"
	"github.com/fzft/go-mini-redis/log"
	"github.com/fzft/go-mini-redis/pool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// acceptPollInterval bounds each Accept so a Stop is noticed promptly even
// when closing the listener does not wake the accept call.
const acceptPollInterval = time.Second

var (
	ErrServerNotStarted = errors.New("server not started")
	ErrServerStopped    = errors.New("server stopped")
	ErrServerStarted    = errors.New("server already started")
)

type Server struct {
	cfg        *config.Config
	store      db.Store
	dispatcher *Dispatcher
	pool       *pool.Pool
	metrics    *Metrics
	registry   *prometheus.Registry
	handler    ReaderHandler

	mu       sync.Mutex
	listener *net.TCPListener

	stopped  atomic.Bool
	clientID atomic.Uint64
}

type Option func(*Server)

// WithStore serves an existing store instead of opening one from the
// config.
func WithStore(store db.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithRegistry registers the server metrics on reg.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

func NewServer(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = db.Open(cfg.Shards)
	}
	s.dispatcher = NewDispatcher(s.store)
	s.metrics = NewMetrics(s.registry)
	s.handler = DefaultHandler{}
	return s
}

// SetHandler replaces the per connection read cycle. It fails once Start
// has bound the listener.
func (s *Server) SetHandler(handler ReaderHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return ErrServerStarted
	}
	s.handler = handler
	return nil
}

// Start binds the listening socket. Bind and listen errors are returned and
// the server does not start.
func (s *Server) Start() error {
	if s.stopped.Load() {
		return ErrServerStopped
	}
	lc := listenConfig()
	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Addr())
	if err != nil {
		log.Logger.Error("listen error", zap.String("addr", s.cfg.Addr()), zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.listener = ln.(*net.TCPListener)
	s.mu.Unlock()
	s.pool = pool.New(s.cfg.Workers)

	log.Logger.Info("listening on", zap.String("addr", ln.Addr().String()),
		zap.Int("workers", s.cfg.Workers), zap.Duration("read_timeout", s.cfg.ReadTimeout))
	return nil
}

// Serve accepts connections until Stop is called, then waits for every
// accepted connection to finish.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return ErrServerNotStarted
	}

	for !s.stopped.Load() {
		if err := ln.SetDeadline(time.Now().Add(acceptPollInterval)); err != nil && !s.stopped.Load() {
			log.Logger.Warn("set accept deadline", zap.Error(err))
		}
		nc, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if s.stopped.Load() || errors.Is(err, net.ErrClosed) {
				break
			}
			log.Logger.Warn("accept error", zap.Error(err))
			continue
		}
		s.acceptConn(nc)
	}

	log.Logger.Info("shutting down server")
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Logger.Warn("close listener", zap.Error(err))
	}
	s.pool.Shutdown()
	return nil
}

func (s *Server) acceptConn(nc net.Conn) {
	s.metrics.ConnectionsAccepted.Inc()
	c := NewClient(s.clientID.Add(1), newNetConn(nc, s.cfg.ReadTimeout), s.dispatcher, s.metrics, s.cfg.RateLimit)
	log.Logger.Debug("accepted connection", zap.Uint64("client", c.id), zap.String("peer", nc.RemoteAddr().String()))

	if err := s.pool.Submit(func() { s.serveClient(c) }); err != nil {
		log.Logger.Warn("rejecting connection", zap.Uint64("client", c.id), zap.Error(err))
		_ = nc.Close()
	}
}

// serveClient runs the read, dispatch and write loop until the peer closes,
// the read times out or an I/O or framing error occurs.
func (s *Server) serveClient(c *Client) {
	s.metrics.ConnectionsActive.Inc()
	defer s.metrics.ConnectionsActive.Dec()
	defer c.Close()

	for {
		if err := s.handler.Read(c); err != nil {
			log.Logger.Debug("closing connection", zap.Uint64("client", c.id), zap.Error(err))
			return
		}
	}
}

// ListenAndServe is Start followed by Serve.
func (s *Server) ListenAndServe() error {
	if err := s.Start(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop closes the listener. Connections already accepted keep running until
// they end on their own.
func (s *Server) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Store() db.Store {
	return s.store
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}
