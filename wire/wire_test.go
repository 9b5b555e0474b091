package wire

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmhodges/clock"

	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/test"
)

func TestWriteJSONHeaders(t *testing.T) {
	fc := clock.NewFake()
	rw := httptest.NewRecorder()
	WriteJSON(rw, fc, http.StatusOK, map[string]string{"result_code": "Success"})

	test.AssertEquals(t, rw.Code, http.StatusOK)
	test.AssertEquals(t, rw.Header().Get("Server"), "nginx")
	test.AssertEquals(t, rw.Header().Get("Connection"), "keep-alive")
	test.AssertEquals(t, rw.Header().Get("Content-Type"), "application/json")
	test.Assert(t, rw.Header().Get("Date") != "", "Date must be set")
	test.AssertContains(t, rw.Body.String(), `"result_code":"Success"`)
}

func TestWriteFailureHeaderOverride(t *testing.T) {
	fc := clock.NewFake()
	rw := httptest.NewRecorder()
	WriteFailure(rw, fc, &core.Failure{
		Status: http.StatusBadRequest,
		Body:   []byte(`{"result_code":"Fail"}`),
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Connection":   "close",
		},
	})

	test.AssertEquals(t, rw.Code, http.StatusBadRequest)
	// The failure's own header set wins over the common defaults.
	test.AssertEquals(t, rw.Header().Get("Connection"), "close")
	test.AssertEquals(t, rw.Header().Get("Server"), "nginx")
}

func TestWriteFailureNoContentType(t *testing.T) {
	fc := clock.NewFake()
	rw := httptest.NewRecorder()
	WriteFailure(rw, fc, &core.Failure{
		Status: http.StatusUnsupportedMediaType,
		Body:   []byte(`{"result_code":"Fail"}`),
	})
	test.AssertEquals(t, rw.Header().Get("Content-Type"), "")
}

func TestInternalError(t *testing.T) {
	f := InternalError()
	test.AssertEquals(t, f.Status, http.StatusInternalServerError)
	test.AssertEquals(t, f.Headers["Content-Type"], "text/html; charset=ISO-8859-1")
	test.AssertEquals(t, f.Headers["Cache-Control"], "must-revalidate,no-cache,no-store")
	test.AssertContains(t, string(f.Body), "500 Internal Server Error")
}

func TestEncodeMetadata(t *testing.T) {
	test.AssertEquals(t, EncodeMetadata([]byte("hello")), "aGVsbG8=")
}
