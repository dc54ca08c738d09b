package web

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/procsense/procsense/internal/config"
)

type Server struct {
	config *config.Config
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewServer serves handler on the configured address; customPort overrides
// the configured port when positive.
func NewServer(cfg *config.Config, handler *Handler, customPort int) *Server {
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:         net.JoinHostPort(cfg.Web.Host, fmt.Sprint(port)),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Listen binds the server address. Start calls it when it has not been
// called, so callers only need it to learn the bound port before serving.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = l
	return nil
}

// Start serves until Shutdown, returning http.ErrServerClosed then.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	log.Printf("Starting web server on http://%s", s.GetAddress())
	return s.server.Serve(s.listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	return s.server.Shutdown(ctx)
}

// GetAddress returns the bound address once listening, the configured one
// before.
func (s *Server) GetAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}
