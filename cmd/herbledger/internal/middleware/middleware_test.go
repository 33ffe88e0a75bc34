package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(p))
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthn_Bearer(t *testing.T) {
	h := NewAuthn(AuthnOptions{Secret: secret})(echoPrincipal())

	token, err := IssueToken(secret, " collector-1 ", time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/batches", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "collector-1", rec.Body.String())
}

func TestAuthn_BearerNormalisesAddress(t *testing.T) {
	h := NewAuthn(AuthnOptions{Secret: secret})(echoPrincipal())

	token, err := IssueToken(secret, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", rec.Body.String())
}

func TestAuthn_Rejections(t *testing.T) {
	h := NewAuthn(AuthnOptions{Secret: secret})(echoPrincipal())

	expired, err := IssueToken(secret, "alice", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("another-secret-of-enough-length"), "alice", time.Hour, time.Now())
	require.NoError(t, err)
	noIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)

	cases := map[string]string{
		"no header":    "",
		"not bearer":   "Basic YWxpY2U6cHc=",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not-a-token",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + foreign,
		"wrong issuer": "Bearer " + noIssuer,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := serve(h, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthenticated", body["code"])
		})
	}
}

func TestAuthn_HeaderIgnoredWhenSecretSet(t *testing.T) {
	h := NewAuthn(AuthnOptions{Secret: secret})(echoPrincipal())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(PrincipalHeader, "alice")
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)
}

func TestAuthn_DevHeader(t *testing.T) {
	h := NewAuthn(AuthnOptions{})(echoPrincipal())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(PrincipalHeader, "  lab-7 ")
	rec := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lab-7", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestAuthn_Skipper(t *testing.T) {
	h := NewAuthn(AuthnOptions{Secret: secret, Skipper: SkipPaths("/health")})(echoPrincipal())

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestIssueToken(t *testing.T) {
	_, err := IssueToken(nil, "alice", time.Hour, time.Now())
	assert.Error(t, err)

	_, err = IssueToken(secret, "   ", time.Hour, time.Now())
	assert.Error(t, err)

	token, err := IssueToken(secret, "alice", 0, time.Now())
	require.NoError(t, err)
	sub, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(AccessLog(log, nil))
	r.Get("/api/batches/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/batches/7", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/api/batches/{id}", line["route"])
	assert.EqualValues(t, 404, line["status"])
	assert.Equal(t, "request", line["message"])
}
