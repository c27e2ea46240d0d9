package adminapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// Server is the admin HTTP surface, started and stopped alongside the
// matcher/sequencer workers from cmd/server/main.go.
type Server struct {
	http *http.Server
}

func NewServer(addr string, src StateSource) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/healthz", Health)
	r.Get("/state", State(src))

	return &Server{http: &http.Server{Addr: addr, Handler: r}}
}

func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("adminapi: listen error: %v", err)
		}
	}()
	log.Printf("adminapi: listening on %s", s.http.Addr)
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		log.Printf("adminapi: shutdown error: %v", err)
	}
}
