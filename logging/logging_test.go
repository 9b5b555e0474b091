package logging

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mockrecon/mockrecon/test"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", &buf)

	l.Info("quiet")
	test.AssertEquals(t, buf.Len(), 0)

	l.Warn("loud")
	test.AssertContains(t, buf.String(), "loud")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New("extremely-verbose", &buf)
	l.Info("visible")
	test.AssertContains(t, buf.String(), "visible")
}

func TestErr(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", &buf)
	l.Err(errors.New("kaboom"), "store mutation failed")
	out := buf.String()
	test.AssertContains(t, out, "kaboom")
	test.AssertContains(t, out, "store mutation failed")
	test.AssertContains(t, out, `"level":"error"`)
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", &buf)
	l.Audit("database reset")
	test.AssertContains(t, buf.String(), `"audit":true`)
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", &buf).WithField("path", "/targets")
	l.Info("hit")
	test.AssertContains(t, buf.String(), `"path":"/targets"`)
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug", &buf)

	var handled bool
	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/targets", nil))

	test.Assert(t, handled, "wrapped handler must run")
	test.AssertContains(t, buf.String(), `"path":"/targets"`)
}
