// Package vwq implements the query-engine HTTP surface: a single
// endpoint that evaluates a submitted image against the live target
// set under time-dependent visibility rules, running the same explicit
// validator chain shape the vws package uses.
package vwq

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmhodges/clock"

	"github.com/mockrecon/mockrecon/auth"
	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/logging"
	"github.com/mockrecon/mockrecon/metrics"
)

// Server holds the dependencies the query handler needs.
type Server struct {
	Store    core.Store
	Clk      clock.Clock
	Resolver auth.Resolver
	Matcher  core.Matcher

	// RecognitionWindow and ProcessingWindow are the two deletion-time
	// windows, in seconds, set from deletion-recognition-seconds and
	// deletion-processing-seconds.
	RecognitionWindow float64
	ProcessingWindow  float64

	router chi.Router
}

// NewServer builds a Server and wires its single chi route. collectors
// may be nil to skip metrics instrumentation (tests typically pass nil).
func NewServer(store core.Store, clk clock.Clock, matcher core.Matcher, recognitionWindowSeconds, processingWindowSeconds float64, collectors *metrics.Collectors) *Server {
	s := &Server{
		Store:             store,
		Clk:               clk,
		Resolver:          auth.StoreResolver{Store: store},
		Matcher:           matcher,
		RecognitionWindow: recognitionWindowSeconds,
		ProcessingWindow:  processingWindowSeconds,
	}
	r := chi.NewRouter()
	if collectors != nil {
		r.Use(collectors.Middleware(clk))
	}
	r.Use(logging.Middleware(logging.Get()))
	r.Post("/v1/query", s.query)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
