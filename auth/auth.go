// Package auth implements the signature and credential matcher: it
// parses the "VWS <access_key>:<signature>" authorization header,
// verifies its HMAC-SHA1 signature against the canonical signing
// string, and resolves the owning database.
package auth

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mockrecon/mockrecon/core"
)

const scheme = "VWS "

// KeyKind distinguishes which credential pair an access key matched,
// since the management service accepts only server keys while the query
// service accepts either.
type KeyKind int

const (
	// ServerKey identifies a database's server access key.
	ServerKey KeyKind = iota
	// ClientKey identifies a database's client access key.
	ClientKey
)

// Resolver looks up which database (if any) owns a given access key, and
// whether it matched the server or client credential pair.
type Resolver interface {
	ResolveAccessKey(now time.Time, accessKey string) (db *core.Database, kind KeyKind, ok bool)
}

// StoreResolver adapts a core.StoreReader into a Resolver by scanning
// every database's four credentials.
type StoreResolver struct {
	Store core.StoreReader
}

// ResolveAccessKey implements Resolver.
func (r StoreResolver) ResolveAccessKey(now time.Time, accessKey string) (*core.Database, KeyKind, bool) {
	for _, db := range r.Store.Databases(now) {
		if db.ServerAccessKey == accessKey {
			return db, ServerKey, true
		}
		if db.ClientAccessKey == accessKey {
			return db, ClientKey, true
		}
	}
	return nil, 0, false
}

// Verify authenticates a request against the given resolver. The
// failure modes are checked in a fixed order: missing header, malformed
// header, unknown access key, signature mismatch. allowClientKey is
// false for the management service and true for the query service. On
// success it returns the owning database.
func Verify(r Resolver, now time.Time, req *http.Request, body []byte, date string, allowClientKey bool) (*core.Database, *core.Failure) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return nil, authHeaderMissing()
	}
	accessKey, signature, ok := parseHeader(header)
	if !ok {
		return nil, malformedAuthHeader()
	}

	db, kind, ok := r.ResolveAccessKey(now, accessKey)
	if !ok {
		return nil, authenticationFailure()
	}
	if kind == ClientKey && !allowClientKey {
		return nil, authenticationFailure()
	}

	secret := db.ServerSecretKey
	if kind == ClientKey {
		secret = db.ClientSecretKey
	}
	expected := sign(secret, req.Method, body, req.Header.Get("Content-Type"), date, req.URL.Path)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, authenticationFailure()
	}
	return db, nil
}

// parseHeader splits a "VWS access_key:signature" header into its parts.
func parseHeader(header string) (accessKey, signature string, ok bool) {
	if !strings.HasPrefix(header, scheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(header, scheme)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// sign computes the base64 HMAC-SHA1 signature over the canonical
// signing string: method, hex md5 of the body, content type, date
// header and path, newline-joined.
func sign(secret, method string, body []byte, contentType, date, path string) string {
	digest := md5.Sum(body)
	canonical := strings.Join([]string{
		method,
		hex.EncodeToString(digest[:]),
		contentType,
		date,
		path,
	}, "\n")

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type failureBody struct {
	ResultCode string `json:"result_code"`
}

// failure builds the Failure the validator chain short-circuits with.
// Only success responses carry a transaction_id; failure bodies carry
// only the result code.
func failure(status int, code core.ResultCode) *core.Failure {
	body, _ := json.Marshal(failureBody{ResultCode: string(code)})
	return &core.Failure{
		Status: status,
		Body:   body,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

func authHeaderMissing() *core.Failure {
	return failure(http.StatusUnauthorized, core.ResultAuthenticationFailure)
}

func malformedAuthHeader() *core.Failure {
	return failure(http.StatusBadRequest, core.ResultMalformedRequest)
}

func authenticationFailure() *core.Failure {
	return failure(http.StatusUnauthorized, core.ResultAuthenticationFailure)
}
