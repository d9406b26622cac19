package api

import (
	"net/http"

	"github.com/uidgen/uidgen/pkg/metrics"
	"github.com/uidgen/uidgen/pkg/ratelimit"
)

// registerRoutes sets up all API routes. Only the id routes are rate limited.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	limited := ratelimit.Middleware(s.rateLimiter)

	mux.Handle("POST /ids", limited(http.HandlerFunc(s.handleIssue)))
	mux.Handle("GET /ids/next", limited(http.HandlerFunc(s.handleNext)))
	mux.Handle("GET /ids/{id}", limited(http.HandlerFunc(s.handleDecode)))

	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.gatherer))
	}
}
