package validate

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/test"
)

// multipartQuery builds a query body with the given form fields and one
// image part per element of images.
func multipartQuery(t *testing.T, fields map[string]string, images ...[]byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, img := range images {
		part, err := w.CreateFormFile("image", "image.png")
		test.AssertNotError(t, err, "creating image part")
		_, err = part.Write(img)
		test.AssertNotError(t, err, "writing image part")
	}
	for name, value := range fields {
		test.AssertNotError(t, w.WriteField(name, value), "writing field "+name)
	}
	test.AssertNotError(t, w.Close(), "closing multipart writer")
	return buf.Bytes(), w.FormDataContentType()
}

func runVWQBody(t *testing.T, body []byte, contentType string, headers map[string]string) (*Context, *core.Failure) {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	ctx := &Context{Request: req, Body: body, Now: time.Now()}
	return ctx, VWQBodyChain().Run(ctx)
}

func TestVWQBodyDefaults(t *testing.T) {
	body, contentType := multipartQuery(t, nil, smallPNG(t))
	ctx, f := runVWQBody(t, body, contentType, nil)
	test.Assert(t, f == nil, "valid query body should pass")
	test.AssertEquals(t, ctx.VWQ.MaxNumResults, 1)
	test.AssertEquals(t, ctx.VWQ.IncludeTargetData, "top")
	test.Assert(t, len(ctx.VWQ.Image) > 0, "image bytes should be captured")
}

func TestVWQBodyExplicitFields(t *testing.T) {
	body, contentType := multipartQuery(t, map[string]string{
		"max_num_results":     "7",
		"include_target_data": "all",
	}, smallPNG(t))
	ctx, f := runVWQBody(t, body, contentType, nil)
	test.Assert(t, f == nil, "valid query body should pass")
	test.AssertEquals(t, ctx.VWQ.MaxNumResults, 7)
	test.AssertEquals(t, ctx.VWQ.IncludeTargetData, "all")
}

func TestVWQContentType(t *testing.T) {
	body, _ := multipartQuery(t, nil, smallPNG(t))
	_, f := runVWQBody(t, body, "application/json", nil)
	test.Assert(t, f != nil, "expected failure")
	test.AssertEquals(t, f.Status, http.StatusUnsupportedMediaType)
	// The 415 deliberately carries no Content-Type header.
	_, present := f.Headers["Content-Type"]
	test.Assert(t, !present, "415 must not carry Content-Type")
}

func TestVWQBoundaryParamMissing(t *testing.T) {
	body, _ := multipartQuery(t, nil, smallPNG(t))
	_, f := runVWQBody(t, body, "multipart/form-data", nil)
	test.Assert(t, f != nil, "expected failure")
	test.AssertEquals(t, f.Status, http.StatusBadRequest)
}

func TestVWQBoundaryNotInBody(t *testing.T) {
	body, _ := multipartQuery(t, nil, smallPNG(t))
	_, f := runVWQBody(t, body, `multipart/form-data; boundary="somethingelse"`, nil)
	test.Assert(t, f != nil, "expected failure")
	test.AssertEquals(t, f.Status, http.StatusBadRequest)
}

func TestVWQImagePartCount(t *testing.T) {
	// No image part.
	body, contentType := multipartQuery(t, map[string]string{"max_num_results": "1"})
	_, f := runVWQBody(t, body, contentType, nil)
	test.Assert(t, f != nil, "missing image part should fail")

	// Two image parts.
	body, contentType = multipartQuery(t, nil, smallPNG(t), smallPNG(t))
	_, f = runVWQBody(t, body, contentType, nil)
	test.Assert(t, f != nil, "duplicate image part should fail")
}

func TestVWQMaxNumResults(t *testing.T) {
	body, contentType := multipartQuery(t, map[string]string{"max_num_results": "ten"}, smallPNG(t))
	_, f := runVWQBody(t, body, contentType, nil)
	test.Assert(t, f != nil, "non-integer max_num_results should fail")
	test.AssertEquals(t, f.Status, http.StatusBadRequest)

	for _, out := range []string{"0", "51", "-2"} {
		body, contentType = multipartQuery(t, map[string]string{"max_num_results": out}, smallPNG(t))
		_, f = runVWQBody(t, body, contentType, nil)
		test.Assert(t, f != nil, "out-of-range max_num_results "+out+" should fail")
	}

	for _, in := range []string{"1", "50"} {
		body, contentType = multipartQuery(t, map[string]string{"max_num_results": in}, smallPNG(t))
		_, f = runVWQBody(t, body, contentType, nil)
		test.Assert(t, f == nil, "in-range max_num_results "+in+" should pass")
	}
}

func TestVWQIncludeTargetData(t *testing.T) {
	for _, valid := range []string{"top", "all", "none"} {
		body, contentType := multipartQuery(t, map[string]string{"include_target_data": valid}, smallPNG(t))
		_, f := runVWQBody(t, body, contentType, nil)
		test.Assert(t, f == nil, "include_target_data "+valid+" should pass")
	}

	body, contentType := multipartQuery(t, map[string]string{"include_target_data": "some"}, smallPNG(t))
	_, f := runVWQBody(t, body, contentType, nil)
	test.Assert(t, f != nil, "unknown include_target_data should fail")
	test.AssertEquals(t, f.Status, http.StatusBadRequest)
}

func TestVWQAcceptHeader(t *testing.T) {
	body, contentType := multipartQuery(t, nil, smallPNG(t))

	_, f := runVWQBody(t, body, contentType, map[string]string{"Accept": "application/json"})
	test.Assert(t, f == nil, "application/json Accept should pass")

	_, f = runVWQBody(t, body, contentType, map[string]string{"Accept": "text/html"})
	test.Assert(t, f != nil, "text/html Accept should fail")
	test.AssertEquals(t, f.Status, http.StatusNotAcceptable)
}

func TestVWQBadImage(t *testing.T) {
	body, contentType := multipartQuery(t, nil, []byte("definitely not an image"))
	_, f := runVWQBody(t, body, contentType, nil)
	test.Assert(t, f != nil, "expected failure")
	test.AssertEquals(t, f.Status, http.StatusBadRequest)
	test.AssertContains(t, string(f.Body), string(core.ResultBadImage))
}

func TestVWQImageOutOfBounds(t *testing.T) {
	body, contentType := multipartQuery(t, nil, tallPNG(t, MaxQueryImageDimension+1))
	_, f := runVWQBody(t, body, contentType, nil)
	test.Assert(t, f != nil, "expected failure")
	test.AssertContains(t, string(f.Body), string(core.ResultImageTooLarge))
}
