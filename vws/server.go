// Package vws implements the target-manager HTTP surface: register,
// list, fetch, update and delete image targets against the resolved
// database, plus the summary and duplicates read-side endpoints. One
// handler method per resource, routed through a shared chi.Mux.
package vws

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmhodges/clock"

	"github.com/mockrecon/mockrecon/auth"
	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/logging"
	"github.com/mockrecon/mockrecon/metrics"
	"github.com/mockrecon/mockrecon/validate"
	"github.com/mockrecon/mockrecon/wire"
)

// Server holds the dependencies every VWS handler needs: the store, the
// wall clock, the credential resolver and the image matcher used by
// GET /duplicates/{id}.
type Server struct {
	Store    core.Store
	Clk      clock.Clock
	Resolver auth.Resolver
	Matcher  core.Matcher

	router chi.Router
}

// NewServer builds a Server and wires its chi routes. collectors may
// be nil to skip metrics instrumentation (tests typically pass nil).
func NewServer(store core.Store, clk clock.Clock, matcher core.Matcher, collectors *metrics.Collectors) *Server {
	s := &Server{
		Store:    store,
		Clk:      clk,
		Resolver: auth.StoreResolver{Store: store},
		Matcher:  matcher,
	}
	r := chi.NewRouter()
	if collectors != nil {
		r.Use(collectors.Middleware(clk))
	}
	r.Use(logging.Middleware(logging.Get()))
	r.Post("/targets", s.createTarget)
	r.Get("/targets", s.listTargets)
	r.Get("/targets/{id}", s.getTarget)
	r.Put("/targets/{id}", s.updateTarget)
	r.Delete("/targets/{id}", s.deleteTarget)
	r.Get("/summary", s.databaseSummary)
	r.Get("/targets/{id}/summary", s.targetSummary)
	r.Get("/duplicates/{id}", s.duplicates)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// commonChain builds the shared management-side validator chain:
// server keys only, 403 for an inactive project.
func (s *Server) commonChain() validate.Chain {
	return validate.CommonChain(s.Resolver, false, validate.InactiveProjectVWS)
}

// runCommon reads the request body and runs the common validator chain,
// returning the populated Context on success or writing the failure
// response and returning ok=false.
func (s *Server) runCommon(w http.ResponseWriter, r *http.Request) (*validate.Context, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		wire.WriteFailure(w, s.Clk, validate.Fail())
		return nil, false
	}
	ctx := &validate.Context{
		Request: r,
		Body:    body,
		Now:     s.Clk.Now(),
		Store:   s.Store,
	}
	if f := s.commonChain().Run(ctx); f != nil {
		wire.WriteFailure(w, s.Clk, f)
		return nil, false
	}
	return ctx, true
}
