package validate

import (
	"strconv"
	"time"

	"github.com/mockrecon/mockrecon/auth"
	"github.com/mockrecon/mockrecon/core"
)

// CommonChain is the ordered list of validators shared by both the VWS
// and VWQ chains: content-length, date and skew, authentication,
// project state. Construct one per service with its own resolver and
// inactive-project failure, since the two services differ in
// client-key acceptance and in the status code used for an inactive
// project.
func CommonChain(resolver auth.Resolver, allowClientKey bool, inactiveProject func() *core.Failure) Chain {
	return Chain{
		validateContentLength,
		validateDateHeader,
		authValidator(resolver, allowClientKey),
		projectStateValidator(inactiveProject),
	}
}

func validateContentLength(ctx *Context) *core.Failure {
	// A missing header defaults to the actual body length, so bodyless
	// GETs pass; only a header that is present but not an integer is
	// rejected.
	raw := ctx.Request.Header.Get("Content-Length")
	n := len(ctx.Body)
	if raw != "" {
		var err error
		n, err = strconv.Atoi(raw)
		if err != nil || n < 0 {
			return ContentLengthHeaderNotInt()
		}
	}
	if n > MaxContentLength {
		return ContentLengthHeaderTooLarge()
	}
	if len(ctx.Body) > n {
		return RequestEntityTooLarge()
	}
	if len(ctx.Body) < n {
		// The real service hangs waiting for the missing bytes; the
		// deterministic stand-in for that timeout is the skew failure.
		return RequestTimeTooSkewed()
	}
	return nil
}

func validateDateHeader(ctx *Context) *core.Failure {
	raw := ctx.Request.Header.Get("Date")
	if raw == "" {
		return DateHeaderNotGiven()
	}
	date, err := time.Parse(time.RFC1123, raw)
	if err != nil {
		return DateFormatNotValid()
	}
	skew := ctx.Now.Sub(date)
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxSkew {
		return RequestTimeTooSkewed()
	}
	return nil
}

func authValidator(resolver auth.Resolver, allowClientKey bool) Validator {
	return func(ctx *Context) *core.Failure {
		db, failure := auth.Verify(resolver, ctx.Now, ctx.Request, ctx.Body, ctx.Request.Header.Get("Date"), allowClientKey)
		if failure != nil {
			return failure
		}
		ctx.Database = db
		return nil
	}
}

func projectStateValidator(inactiveProject func() *core.Failure) Validator {
	return func(ctx *Context) *core.Failure {
		if ctx.Database.State != core.ProjectStateWorking {
			return inactiveProject()
		}
		return nil
	}
}
