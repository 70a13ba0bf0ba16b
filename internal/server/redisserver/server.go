package redisserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/kvmesh-go/internal/infra/workerpool"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// ReadTimeout bounds a single socket read (default: 30s).
	ReadTimeout time.Duration
	// WriteTimeout bounds a reply flush (default: 30s).
	WriteTimeout time.Duration
	// Workers is the connection worker pool size.
	// Zero means one worker per hardware thread.
	Workers int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         ":6379",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server accepts client connections and serves them on a fixed-size
// worker pool.
type Server struct {
	cfg     *Config
	handler *CommandHandler
	log     logger.Logger
	metrics *metric.Registry

	ln      net.Listener
	pool    *workerpool.Pool
	running atomic.Bool

	connMu sync.Mutex
	conns  map[*Conn]struct{}

	wg sync.WaitGroup
}

// New creates a server for the given store.
func New(cfg *Config, store *memory.Store, log logger.Logger, metrics *metric.Registry) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Default()
	}

	return &Server{
		cfg:     cfg,
		handler: NewCommandHandler(store, log, metrics),
		log:     log,
		metrics: metrics,
		conns:   make(map[*Conn]struct{}),
	}
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.pool = workerpool.New(s.cfg.Workers, s.log)
	s.running.Store(true)

	s.log.Info("server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()

	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if s.metrics != nil {
			s.metrics.ConnectionsTotal.Inc()
		}

		conn := newConn(c)
		conn.configureSocket()
		s.trackConn(conn, true)

		submitted := s.pool.Submit(func() {
			defer s.trackConn(conn, false)
			s.serveConn(conn)
		})
		if !submitted {
			s.trackConn(conn, false)
			conn.Close()
		}
	}
}

func (s *Server) trackConn(conn *Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// Shutdown stops accepting, wakes blocked connection reads, and waits
// for in-flight replies to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			firstErr = err
		}
	}

	// Force blocked reads to return so connection loops notice the
	// cleared running flag.
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.netConn.SetReadDeadline(time.Now())
	}
	s.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.pool.Shutdown()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return firstErr
}
