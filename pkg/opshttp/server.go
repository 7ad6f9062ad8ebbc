package opshttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/menmos/menmosd/pkg/metrics"
)

// Server serves the directory node's operational HTTP surface.
type Server struct {
	mux *http.ServeMux

	// ReadyCheck reports whether the directory is ready to serve: it
	// should exercise a real read against the embedded KV store, not
	// just check that the process is alive.
	ReadyCheck func() error
}

// New builds an operational HTTP server. readyCheck may be nil, in
// which case /readyz always reports ready.
func New(readyCheck func() error) *Server {
	s := &Server{mux: http.NewServeMux(), ReadyCheck: readyCheck}
	s.mux.HandleFunc("/healthz", s.healthzHandler)
	s.mux.HandleFunc("/readyz", s.readyzHandler)
	s.mux.Handle("/metrics", metrics.Handler())
	return s
}

// Handler returns the http.Handler for embedding in a larger server, or
// for tests.
func (s *Server) Handler() http.Handler {
	return withRequestLog(s.mux)
}

// Start blocks serving addr until the listener fails.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(statusResponse{Status: "ok"})
}

func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.ReadyCheck != nil {
		if err := s.ReadyCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(statusResponse{Status: "not ready", Message: err.Error()})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(statusResponse{Status: "ready"})
}
