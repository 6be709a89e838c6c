// Package httpapi is the thin job-facing HTTP surface: request/response
// mapping onto the orchestrator, nothing more.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/mshafei721/shorty-captioner/internal/jobs"
)

// resolver maps an uploaded video id to its local media path.
type resolver interface {
	Resolve(name string) string
}

type Server struct {
	orchestrator *jobs.Orchestrator
	resolve      resolver

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithResolver lets job-creation requests reference a video by id alone.
func WithResolver(r resolver) Option {
	return func(s *Server) {
		s.resolve = r
	}
}

func NewServer(orchestrator *jobs.Orchestrator, opts ...Option) *Server {
	s := &Server{
		orchestrator: orchestrator,
		mux:          http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/", s.handleJobByID)
	s.mux.HandleFunc("/api/healthz", s.handleHealth)
}
