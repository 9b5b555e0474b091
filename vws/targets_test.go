package vws

import (
	"bytes"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jmhodges/clock"

	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/match"
	"github.com/mockrecon/mockrecon/store"
	"github.com/mockrecon/mockrecon/test"
)

const (
	serverAccess = "test-server-access"
	serverSecret = "test-server-secret"
	clientAccess = "test-client-access"
	clientSecret = "test-client-secret"
)

type fixedRater struct {
	rating int
}

func (r fixedRater) Rate([]byte) int {
	return r.rating
}

func newTestServer(t *testing.T) (*Server, *store.Store, clock.FakeClock) {
	t.Helper()
	fc := clock.NewFake()
	st := store.New(fc, fixedRater{rating: 4})
	test.AssertNotError(t, st.CreateDatabase(&core.Database{
		Name:            "db",
		ServerAccessKey: serverAccess,
		ServerSecretKey: serverSecret,
		ClientAccessKey: clientAccess,
		ClientSecretKey: clientSecret,
	}), "creating database")
	return NewServer(st, fc, match.Exact{}, nil), st, fc
}

func makePNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	test.AssertNotError(t, png.Encode(&buf, img), "encoding png")
	return buf.Bytes()
}

func signature(secret, method string, body []byte, contentType, date, path string) string {
	digest := md5.Sum(body)
	canonical := strings.Join([]string{method, hex.EncodeToString(digest[:]), contentType, date, path}, "\n")
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signedRequest(fc clock.Clock, method, path string, body []byte, contentType, accessKey, secretKey string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	date := fc.Now().UTC().Format(time.RFC1123)
	req.Header.Set("Date", date)
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	sig := signature(secretKey, method, body, contentType, date, path)
	req.Header.Set("Authorization", "VWS "+accessKey+":"+sig)
	return req
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rw := httptest.NewRecorder()
	s.ServeHTTP(rw, req)
	return rw
}

func decodeBody(t *testing.T, rw *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	test.AssertNotError(t, json.Unmarshal(rw.Body.Bytes(), &body), "unmarshaling response body")
	return body
}

func createTarget(t *testing.T, s *Server, fc clock.Clock, name string, img []byte) string {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"name":  name,
		"width": 1.0,
		"image": base64.StdEncoding.EncodeToString(img),
	})
	test.AssertNotError(t, err, "marshaling create payload")
	rw := do(s, signedRequest(fc, "POST", "/targets", payload, "application/json", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusCreated)
	body := decodeBody(t, rw)
	test.AssertEquals(t, body["result_code"], string(core.ResultTargetCreated))
	return body["target_id"].(string)
}

func assertHex32(t *testing.T, s string) {
	t.Helper()
	test.AssertEquals(t, len(s), 32)
	_, err := hex.DecodeString(s)
	test.AssertNotError(t, err, "expected a hex string")
}

func TestCreateTarget(t *testing.T) {
	s, _, fc := newTestServer(t)
	payload, _ := json.Marshal(map[string]interface{}{
		"name":  "my-target",
		"width": 2.5,
		"image": base64.StdEncoding.EncodeToString(makePNG(t, color.White)),
	})
	rw := do(s, signedRequest(fc, "POST", "/targets", payload, "application/json", serverAccess, serverSecret))

	test.AssertEquals(t, rw.Code, http.StatusCreated)
	test.AssertEquals(t, rw.Header().Get("Server"), "nginx")
	test.AssertEquals(t, rw.Header().Get("Connection"), "keep-alive")
	test.AssertEquals(t, rw.Header().Get("Content-Type"), "application/json")
	test.Assert(t, rw.Header().Get("Date") != "", "Date header must be set")

	body := decodeBody(t, rw)
	test.AssertEquals(t, body["result_code"], string(core.ResultTargetCreated))
	assertHex32(t, body["target_id"].(string))
	assertHex32(t, body["transaction_id"].(string))
}

func TestCreateTargetDuplicateName(t *testing.T) {
	s, _, fc := newTestServer(t)
	createTarget(t, s, fc, "dup", makePNG(t, color.White))

	payload, _ := json.Marshal(map[string]interface{}{
		"name":  "dup",
		"width": 1.0,
		"image": base64.StdEncoding.EncodeToString(makePNG(t, color.Black)),
	})
	rw := do(s, signedRequest(fc, "POST", "/targets", payload, "application/json", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusForbidden)
	test.AssertEquals(t, decodeBody(t, rw)["result_code"], string(core.ResultTargetNameExist))
}

func TestGetTargetLifecycle(t *testing.T) {
	s, _, fc := newTestServer(t)
	id := createTarget(t, s, fc, "t", makePNG(t, color.White))

	rw := do(s, signedRequest(fc, "GET", "/targets/"+id, nil, "", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusOK)
	body := decodeBody(t, rw)
	test.AssertEquals(t, body["status"], string(core.StatusProcessing))
	record := body["target_record"].(map[string]interface{})
	test.AssertEquals(t, record["name"], "t")
	test.AssertEquals(t, record["target_id"], id)

	fc.Add(time.Second)
	rw = do(s, signedRequest(fc, "GET", "/targets/"+id, nil, "", serverAccess, serverSecret))
	body = decodeBody(t, rw)
	test.AssertEquals(t, body["status"], string(core.StatusSuccess))
	record = body["target_record"].(map[string]interface{})
	test.AssertEquals(t, record["tracking_rating"], float64(4))
}

func TestGetUnknownTarget(t *testing.T) {
	s, _, fc := newTestServer(t)
	rw := do(s, signedRequest(fc, "GET", "/targets/"+store.NewID(), nil, "", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusNotFound)
	test.AssertEquals(t, decodeBody(t, rw)["result_code"], string(core.ResultUnknownTarget))
}

func TestUndecodableImageFailsProcessing(t *testing.T) {
	s, st, fc := newTestServer(t)
	// The VWS chain rejects non-images, so install directly via the
	// store seam the way the admin fixtures do.
	now := fc.Now()
	test.AssertNotError(t, st.CreateTarget("db", &core.Target{
		ID: store.NewID(), Name: "broken", Width: 1,
		Image: []byte("junk"), ActiveFlag: true,
		CreatedAt: now, LastModified: now,
		ProcessingTimeSeconds: 0.5, RecoRating: -1,
	}), "installing target")

	fc.Add(time.Second)
	rw := do(s, signedRequest(fc, "GET", "/summary", nil, "", serverAccess, serverSecret))
	body := decodeBody(t, rw)
	test.AssertEquals(t, body["failed"], float64(1))
}

func TestListTargetsExcludesDeleted(t *testing.T) {
	s, _, fc := newTestServer(t)
	keep := createTarget(t, s, fc, "keep", makePNG(t, color.White))
	drop := createTarget(t, s, fc, "drop", makePNG(t, color.Black))

	fc.Add(time.Second)
	rw := do(s, signedRequest(fc, "DELETE", "/targets/"+drop, nil, "", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusOK)

	rw = do(s, signedRequest(fc, "GET", "/targets", nil, "", serverAccess, serverSecret))
	body := decodeBody(t, rw)
	results := body["results"].([]interface{})
	test.AssertEquals(t, len(results), 1)
	test.AssertEquals(t, results[0], keep)
}

func TestUpdateTarget(t *testing.T) {
	s, _, fc := newTestServer(t)
	id := createTarget(t, s, fc, "before", makePNG(t, color.White))

	payload, _ := json.Marshal(map[string]interface{}{"name": "after"})
	rw := do(s, signedRequest(fc, "PUT", "/targets/"+id, payload, "application/json", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusForbidden)
	test.AssertEquals(t, decodeBody(t, rw)["result_code"], string(core.ResultTargetStatusNotSuccess))

	fc.Add(time.Second)
	rw = do(s, signedRequest(fc, "PUT", "/targets/"+id, payload, "application/json", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusOK)
	test.AssertEquals(t, decodeBody(t, rw)["result_code"], string(core.ResultSuccess))

	rw = do(s, signedRequest(fc, "GET", "/targets/"+id, nil, "", serverAccess, serverSecret))
	record := decodeBody(t, rw)["target_record"].(map[string]interface{})
	test.AssertEquals(t, record["name"], "after")
}

func TestUpdateImageReopensProcessing(t *testing.T) {
	s, _, fc := newTestServer(t)
	id := createTarget(t, s, fc, "t", makePNG(t, color.White))
	fc.Add(time.Second)

	payload, _ := json.Marshal(map[string]interface{}{
		"image": base64.StdEncoding.EncodeToString(makePNG(t, color.Black)),
	})
	rw := do(s, signedRequest(fc, "PUT", "/targets/"+id, payload, "application/json", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusOK)

	rw = do(s, signedRequest(fc, "GET", "/targets/"+id, nil, "", serverAccess, serverSecret))
	test.AssertEquals(t, decodeBody(t, rw)["status"], string(core.StatusProcessing))

	fc.Add(time.Second)
	rw = do(s, signedRequest(fc, "GET", "/targets/"+id, nil, "", serverAccess, serverSecret))
	test.AssertEquals(t, decodeBody(t, rw)["status"], string(core.StatusSuccess))
}

func TestUpdateNameCollision(t *testing.T) {
	s, _, fc := newTestServer(t)
	createTarget(t, s, fc, "first", makePNG(t, color.White))
	second := createTarget(t, s, fc, "second", makePNG(t, color.Black))
	fc.Add(time.Second)

	payload, _ := json.Marshal(map[string]interface{}{"name": "first"})
	rw := do(s, signedRequest(fc, "PUT", "/targets/"+second, payload, "application/json", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusForbidden)
	test.AssertEquals(t, decodeBody(t, rw)["result_code"], string(core.ResultTargetNameExist))
}

func TestDeleteTarget(t *testing.T) {
	s, _, fc := newTestServer(t)
	id := createTarget(t, s, fc, "t", makePNG(t, color.White))
	fc.Add(time.Second)

	rw := do(s, signedRequest(fc, "DELETE", "/targets/"+id, nil, "", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusOK)
	test.AssertEquals(t, decodeBody(t, rw)["result_code"], string(core.ResultSuccess))

	// The management API reports the target gone immediately.
	rw = do(s, signedRequest(fc, "GET", "/targets/"+id, nil, "", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusNotFound)

	rw = do(s, signedRequest(fc, "DELETE", "/targets/"+id, nil, "", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusNotFound)
	test.AssertEquals(t, decodeBody(t, rw)["result_code"], string(core.ResultUnknownTarget))
}

func TestDatabaseSummary(t *testing.T) {
	s, _, fc := newTestServer(t)
	createTarget(t, s, fc, "done", makePNG(t, color.White))
	fc.Add(time.Second)
	createTarget(t, s, fc, "pending", makePNG(t, color.Black))

	rw := do(s, signedRequest(fc, "GET", "/summary", nil, "", serverAccess, serverSecret))
	body := decodeBody(t, rw)
	test.AssertEquals(t, body["result_code"], string(core.ResultSuccess))
	test.AssertEquals(t, body["processing"], float64(1))
	test.AssertEquals(t, body["success"], float64(1))
	test.AssertEquals(t, body["failed"], float64(0))
	test.AssertEquals(t, body["total_records"], float64(2))
}

func TestTargetSummary(t *testing.T) {
	s, _, fc := newTestServer(t)
	id := createTarget(t, s, fc, "t", makePNG(t, color.White))

	rw := do(s, signedRequest(fc, "GET", "/targets/"+id+"/summary", nil, "", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusOK)
	// Rating is withheld while processing.
	test.AssertNotContains(t, rw.Body.String(), "tracking_rating")
	body := decodeBody(t, rw)
	test.AssertEquals(t, body["status"], string(core.StatusProcessing))
	test.AssertEquals(t, body["database_name"], "db")

	fc.Add(time.Second)
	rw = do(s, signedRequest(fc, "GET", "/targets/"+id+"/summary", nil, "", serverAccess, serverSecret))
	body = decodeBody(t, rw)
	test.AssertEquals(t, body["status"], string(core.StatusSuccess))
	test.AssertEquals(t, body["tracking_rating"], float64(4))
}

func TestDuplicates(t *testing.T) {
	s, st, fc := newTestServer(t)
	shared := makePNG(t, color.White)
	other := makePNG(t, color.Black)

	install := func(name string, img []byte, active bool) string {
		now := fc.Now()
		id := store.NewID()
		test.AssertNotError(t, st.CreateTarget("db", &core.Target{
			ID: id, Name: name, Width: 1, Image: img, ActiveFlag: active,
			CreatedAt: now, LastModified: now,
			ProcessingTimeSeconds: 0.5, RecoRating: -1,
		}), "installing "+name)
		return id
	}

	// The subject's own active-flag is irrelevant.
	subject := install("subject", shared, false)
	dupActive := install("dup-active", shared, true)
	install("dup-inactive", shared, false)
	deleted := install("dup-deleted", shared, true)
	install("unrelated", other, true)

	fc.Add(time.Second)
	_, err := st.DeleteTarget("db", deleted, fc.Now())
	test.AssertNotError(t, err, "deleting target")

	// Still-processing candidates never appear.
	install("dup-processing", shared, true)

	rw := do(s, signedRequest(fc, "GET", "/duplicates/"+subject, nil, "", serverAccess, serverSecret))
	test.AssertEquals(t, rw.Code, http.StatusOK)
	body := decodeBody(t, rw)
	similar := body["similar_targets"].([]interface{})
	test.AssertEquals(t, len(similar), 1)
	test.AssertEquals(t, similar[0], dupActive)
}

func TestDuplicatesInactiveProjectPrecedesLookup(t *testing.T) {
	s, st, fc := newTestServer(t)
	test.AssertNotError(t, st.CreateDatabase(&core.Database{
		Name:            "sleepy",
		ServerAccessKey: "i-server-access",
		ServerSecretKey: "i-server-secret",
		ClientAccessKey: "i-client-access",
		ClientSecretKey: "i-client-secret",
		State:           core.ProjectStateInactive,
	}), "creating inactive database")

	rw := do(s, signedRequest(fc, "GET", "/duplicates/"+store.NewID(), nil, "", "i-server-access", "i-server-secret"))
	test.AssertEquals(t, rw.Code, http.StatusForbidden)
	test.AssertEquals(t, decodeBody(t, rw)["result_code"], string(core.ResultInactiveProject))
}

// TestAuthFailurePrecedence: a bad signature plus a malformed JSON
// body reports AuthenticationFailure, never a JSON error.
func TestAuthFailurePrecedence(t *testing.T) {
	s, _, fc := newTestServer(t)
	body := []byte("{malformed")
	req := httptest.NewRequest("POST", "/targets", bytes.NewReader(body))
	req.Header.Set("Date", fc.Now().UTC().Format(time.RFC1123))
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "VWS "+serverAccess+":bm90LWEtcmVhbC1zaWduYXR1cmU=")

	rw := do(s, req)
	test.AssertEquals(t, rw.Code, http.StatusUnauthorized)
	test.AssertEquals(t, decodeBody(t, rw)["result_code"], string(core.ResultAuthenticationFailure))
}

func TestClientKeyRejectedOnManagement(t *testing.T) {
	s, _, fc := newTestServer(t)
	rw := do(s, signedRequest(fc, "GET", "/targets", nil, "", clientAccess, clientSecret))
	test.AssertEquals(t, rw.Code, http.StatusUnauthorized)
	test.AssertEquals(t, decodeBody(t, rw)["result_code"], string(core.ResultAuthenticationFailure))
}

// TestGetIdempotent pins the idempotence property: the same GET twice
// returns equal bodies modulo transaction_id.
func TestGetIdempotent(t *testing.T) {
	s, _, fc := newTestServer(t)
	id := createTarget(t, s, fc, "t", makePNG(t, color.White))

	strip := func(body map[string]interface{}) map[string]interface{} {
		delete(body, "transaction_id")
		return body
	}
	first := strip(decodeBody(t, do(s, signedRequest(fc, "GET", "/targets/"+id, nil, "", serverAccess, serverSecret))))
	second := strip(decodeBody(t, do(s, signedRequest(fc, "GET", "/targets/"+id, nil, "", serverAccess, serverSecret))))
	test.AssertDeepEquals(t, first, second)
}
