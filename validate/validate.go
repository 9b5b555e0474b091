// Package validate implements the fixed, ordered validator chains each
// endpoint runs before its handler: a list of pure functions over a
// request Context, the first of which to return a non-nil core.Failure
// short-circuits the rest. The ordering reproduces the mocked
// service's check precedence exactly and is part of the external
// contract.
package validate

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mockrecon/mockrecon/core"
)

// MaxContentLength bounds the size of any request body this service
// will read in full, mirroring the real service's request-entity cap.
const MaxContentLength = 4 * 1024 * 1024

// MaxSkew is the greatest acceptable difference between a request's Date
// header and the server's wall clock.
const MaxSkew = 5 * time.Minute

// Context carries everything a validator in either chain might need to
// inspect, plus the fields earlier validators in the same chain
// populate for later ones (the resolved database, the parsed body).
type Context struct {
	Request *http.Request
	Body    []byte
	Now     time.Time
	Store   core.Store

	// AllowClientKey is true for the query chain and false for the
	// management chain, which accepts server credentials only.
	AllowClientKey bool

	// Database is populated by the auth validator once credentials
	// resolve successfully.
	Database *core.Database

	// VWS holds the fields the VWS-specific validators decode out of
	// the JSON request body. Nil until the VWS body chain has run.
	VWS *VWSBody

	// VWQ holds the fields the VWQ-specific validators decode out of
	// the multipart request body. Nil until the VWQ body chain has run.
	VWQ *VWQBody

	rawVWS map[string]json.RawMessage
}

// Validator is one link in a chain: it inspects ctx and either mutates
// it (recording something later validators or the handler will need) or
// returns a Failure that aborts the request.
type Validator func(ctx *Context) *core.Failure

// Chain is an ordered, fixed list of validators. Run executes them in
// order and returns the first non-nil Failure, or nil if every
// validator passed.
type Chain []Validator

// Run executes the chain against ctx.
func (c Chain) Run(ctx *Context) *core.Failure {
	for _, v := range c {
		if f := v(ctx); f != nil {
			return f
		}
	}
	return nil
}
