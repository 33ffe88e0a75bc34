package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/telemetry"
)

const (
	// PrincipalHeader carries the caller identity in development mode.
	PrincipalHeader = "X-Ledger-Principal"

	// Issuer is the iss claim of tokens minted by IssueToken.
	Issuer = "herbledger"

	authMethodBearer = "bearer"
	authMethodHeader = "header"
)

var (
	errMissingCredentials = errors.New("missing credentials")
	errMissingSubject     = errors.New("invalid token: missing subject")
)

// Skipper reports requests that bypass authentication.
type Skipper func(*http.Request) bool

// AuthnOptions configures NewAuthn.
type AuthnOptions struct {
	// Secret is the HS256 key. Empty enables trusted-header mode.
	Secret  []byte
	Skipper Skipper
	Metrics *telemetry.AuthMetrics
	Logger  zerolog.Logger
}

// SkipPaths returns a Skipper matching the exact request paths.
func SkipPaths(paths ...string) Skipper {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.URL.Path]
		return ok
	}
}

// NewAuthn resolves the caller principal from a bearer token, or from
// PrincipalHeader when no secret is configured, and stores it on the request
// context. Requests without a resolvable principal receive 401.
func NewAuthn(opts AuthnOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Skipper != nil && opts.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			method := authMethodBearer
			if len(opts.Secret) == 0 {
				method = authMethodHeader
			}

			principal, err := resolve(r, opts.Secret)
			if err == nil {
				principal, err = custody.NormalizePrincipal(principal)
			}
			opts.Metrics.RecordAuth(r.Context(), method, err == nil, float64(time.Since(start).Milliseconds()))
			if err != nil {
				opts.Logger.Debug().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("authentication failed")
				unauthenticated(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func resolve(r *http.Request, secret []byte) (string, error) {
	if len(secret) == 0 {
		p := strings.TrimSpace(r.Header.Get(PrincipalHeader))
		if p == "" {
			return "", errMissingCredentials
		}
		return p, nil
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errMissingCredentials
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", errMissingCredentials
	}
	return ParseToken(secret, token)
}

// ParseToken verifies an HS256 token and returns its subject.
func ParseToken(secret []byte, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return "", errMissingSubject
	}
	return claims.Subject, nil
}

func unauthenticated(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  "unauthenticated",
	})
}
