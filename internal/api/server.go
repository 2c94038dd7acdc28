// Package api exposes the question pipeline over HTTP: a chat endpoint,
// a guarded ingest trigger, and health probes.
package api

import (
	"errors"
	"net/http"

	"github.com/invenzis/brain/internal/log"
)

// ServerConfig wires the server's dependencies.
type ServerConfig struct {
	Logger       log.Logger
	Processor    Processor // required
	Ingester     Ingester  // optional: nil disables the ingest endpoint
	IngestSecret string    // required when Ingester is set
	DB           Pinger    // optional: nil skips the database readiness check
}

// Server is the JSON API server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Processor == nil {
		return nil, errors.New("processor is required")
	}
	if cfg.Ingester != nil && cfg.IngestSecret == "" {
		return nil, errors.New("ingest secret is required when ingest is enabled")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Config{})
	}

	ch := &chatHandler{processor: cfg.Processor, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.send)

	if cfg.Ingester != nil {
		ih := &ingestHandler{ingester: cfg.Ingester, secret: cfg.IngestSecret, logger: logger}
		mux.HandleFunc("POST /api/v1/ingest", ih.trigger)
	}

	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes stay outside the middleware stack so probe traffic
	// does not flood the request log.
	top := http.NewServeMux()
	top.HandleFunc("GET /healthz", health(logger))
	top.HandleFunc("GET /readyz", readiness(cfg.DB, logger))
	top.Handle("/", handler)

	return &Server{mux: top}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
