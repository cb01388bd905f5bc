//go:build linux
// +build linux

package node

import (
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fzft/go-mock-mq/config"
	"github.com/fzft/go-mock-mq/log"
	"github.com/fzft/go-mock-mq/store"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Server struct {
	cfg     *config.Config
	stats   *Stats
	handler ReaderHandler

	mu      sync.Mutex
	reactor *Reactor
	addr    net.Addr
	ready   chan struct{}
}

func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:   cfg,
		stats: &Stats{},
		ready: make(chan struct{}),
	}
}

// Run opens the commit log, listens on the configured address and serves
// until SIGINT, SIGTERM, SIGQUIT or Shutdown.
func (s *Server) Run() error {
	cl, err := store.Open(s.cfg.DataDir, s.cfg.SegmentSize)
	if err != nil {
		log.Logger.Error("open commit log error", zap.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		log.Logger.Error("listen error", zap.Error(err))
		return multierr.Append(err, cl.Close())
	}

	reactor, err := NewReactor(ln, sigCh, s.cfg.MaxConnections, s.stats)
	if err != nil {
		return multierr.Combine(err, ln.Close(), cl.Close())
	}

	if s.handler == nil {
		s.handler = NewBroker(cl, s.cfg, s.stats)
	}
	reactor.SetHandler(s.handler)

	s.mu.Lock()
	s.reactor = reactor
	s.addr = ln.Addr()
	s.mu.Unlock()
	close(s.ready)

	log.Logger.Info("listening on", zap.String("addr", ln.Addr().String()))
	reactor.Run()
	log.Logger.Info("shutting down server")

	// connections are closed by now, so every transfer has released its claim
	return cl.Close()
}

func (s *Server) SetHandler(handler ReaderHandler) {
	s.handler = handler
}

// Ready is closed once the server accepts connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) Stats() *Stats {
	return s.stats
}

// Shutdown stops the event loop. Run returns once connections are closed.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	r := s.reactor
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Stop()
}
