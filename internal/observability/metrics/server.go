package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	logx "boomyouup/pkg/logx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig controls the optional /metrics HTTP listener.
type ServerConfig struct {
	Enabled bool
	Addr    string
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:9464"
	}
	return c
}

// Server manages lifecycle for the metrics listener.
type Server struct {
	mu     sync.Mutex
	log    logx.Logger
	gather prometheus.Gatherer

	srv  *http.Server
	ln   net.Listener
	addr string
}

// NewServer serves g (the default gatherer when nil).
func NewServer(g prometheus.Gatherer, log logx.Logger) *Server {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{log: log.With(logx.String("comp", "metrics")), gather: g}
}

// Apply starts or stops the listener according to cfg. A running listener
// on the same address is left alone.
func (s *Server) Apply(ctx context.Context, cfg ServerConfig) error {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !cfg.Enabled {
		s.stopLocked(ctx)
		return nil
	}
	if s.srv != nil && s.addr == cfg.Addr {
		return nil
	}
	s.stopLocked(ctx)
	return s.startLocked(cfg)
}

func (s *Server) startLocked(cfg ServerConfig) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		s.log.Warn("metrics listen failed", logx.String("addr", cfg.Addr), logx.Err(err))
		return err
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()

	addr := s.addr
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("metrics server error", logx.String("addr", addr), logx.Err(err))
		}
	}()
	s.log.Info("metrics enabled", logx.String("addr", addr))
	return nil
}

// Stop gracefully shuts down the listener.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx)
}

func (s *Server) stopLocked(ctx context.Context) {
	if s.srv == nil {
		return
	}
	srv, ln, addr := s.srv, s.ln, s.addr
	s.srv, s.ln, s.addr = nil, nil, ""

	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("metrics shutdown error", logx.String("addr", addr), logx.Err(err))
	}
	if ln != nil {
		_ = ln.Close()
	}
	s.log.Info("metrics disabled", logx.String("addr", addr))
}

// Addr reports the actual listen address if running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
