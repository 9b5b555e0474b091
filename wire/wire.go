// Package wire renders core.Failure values and success payloads onto
// an http.ResponseWriter with the header set every response from
// either HTTP surface carries: a Server header, a fresh RFC-1123 Date,
// Connection: keep-alive, and an accurate Content-Length. One adapter
// renders every typed failure; both the vws and vwq packages call it.
package wire

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmhodges/clock"

	"github.com/mockrecon/mockrecon/core"
)

// EncodeMetadata re-encodes decoded application-metadata bytes back to
// base64 for inclusion in a response body.
func EncodeMetadata(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Server is the value every response's Server header carries, matching
// the real mocked service.
const Server = "nginx"

// WriteFailure renders f onto w with the common response headers, then
// f's own status, headers and body. A header present in f.Headers
// overrides the corresponding common header (e.g. Connection: close on
// ContentLengthHeaderNotInt). A failure without a Content-Type of its
// own is sent with no Content-Type header at all.
func WriteFailure(w http.ResponseWriter, clk clock.Clock, f *core.Failure) {
	h := w.Header()
	h.Set("Server", Server)
	h.Set("Date", clk.Now().UTC().Format(time.RFC1123))
	h.Set("Connection", "keep-alive")
	if _, ok := f.Headers["Content-Type"]; !ok {
		// A nil value keeps net/http from sniffing one in.
		h["Content-Type"] = nil
	}
	for k, v := range f.Headers {
		h.Set(k, v)
	}
	w.WriteHeader(f.Status)
	_, _ = w.Write(f.Body)
}

// WriteJSON marshals v as the JSON body of a status response, with the
// same common header set as WriteFailure.
func WriteJSON(w http.ResponseWriter, clk clock.Clock, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		WriteFailure(w, clk, InternalError())
		return
	}
	h := w.Header()
	h.Set("Server", Server)
	h.Set("Date", clk.Now().UTC().Format(time.RFC1123))
	h.Set("Connection", "keep-alive")
	h.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// InternalError is the canned HTML 500 used both for the query
// engine's match-in-progress response and when a handler hits a
// programming failure rather than a validated domain failure.
func InternalError() *core.Failure {
	return &core.Failure{
		Status: http.StatusInternalServerError,
		Body: []byte(`<html>
<head><title>500 Internal Server Error</title></head>
<body>
<center><h1>500 Internal Server Error</h1></center>
</body>
</html>
`),
		Headers: map[string]string{
			"Content-Type":  "text/html; charset=ISO-8859-1",
			"Cache-Control": "must-revalidate,no-cache,no-store",
		},
	}
}
