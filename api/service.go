package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ReportMapper/internal/logger"
	"ReportMapper/internal/serviceiface"
)

const shutdownTimeout = 10 * time.Second

// GatewayService serves the HTTP API. Wire must run before Start.
type GatewayService struct {
	config  map[string]interface{}
	addr    string
	deps    Deps
	server  *http.Server
	mu      sync.Mutex
	errCh   chan error
	started bool
}

func NewGatewayService(cfg map[string]interface{}) serviceiface.Service {
	addr := ":8081"
	if cfg != nil {
		switch v := cfg["port"].(type) {
		case int:
			addr = fmt.Sprintf(":%d", v)
		case float64:
			addr = fmt.Sprintf(":%d", int(v))
		case string:
			if v != "" {
				addr = ":" + v
			}
		}
		if v, ok := cfg["addr"].(string); ok && v != "" {
			addr = v
		}
	}
	return &GatewayService{config: cfg, addr: addr, errCh: make(chan error, 1)}
}

func (s *GatewayService) Name() string {
	return "gateway"
}

// Wire hands the gateway the services its handlers use.
func (s *GatewayService) Wire(d Deps) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps = d
}

// SetAddr overrides the listen address from services.yaml.
func (s *GatewayService) SetAddr(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr = addr
}

// Handler builds the router over the wired dependencies.
func (s *GatewayService) Handler() http.Handler {
	s.mu.Lock()
	d := s.deps
	s.mu.Unlock()
	return NewRouter(NewHandler(d))
}

func (s *GatewayService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gateway listen %s: %w", s.addr, err)
	}
	s.server = &http.Server{
		Handler:           NewRouter(NewHandler(s.deps)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ev := s.deps.Events; ev != nil {
		// open event streams would otherwise hold Shutdown until the timeout
		s.server.RegisterOnShutdown(func() { _ = ev.Stop() })
	}
	s.started = true

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().WithError(err).Error("gateway server failed")
			s.errCh <- err
		}
	}()
	logger.L().WithFields(logrus.Fields{"addr": ln.Addr().String()}).Info("API gateway started")
	return nil
}

// Err reports a server failure after Start returned.
func (s *GatewayService) Err() <-chan error { return s.errCh }

func (s *GatewayService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
