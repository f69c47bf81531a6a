package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TokenParser validates a login token and returns its wallet address.
type TokenParser interface {
	ParseToken(token string) (common.Address, error)
}

type principalKey struct{}

// Principal is the authenticated caller of a request.
type Principal struct {
	Address common.Address // zero for API-key callers
	APIKey  bool
}

// PrincipalFrom returns the caller attached by Authenticate.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticate requires either a login JWT or the static API key, sent as a
// Bearer token or in the X-API-Key header. An empty apiKey disables the key
// path; JWTs are always accepted.
func Authenticate(tokens TokenParser, apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing authentication token")
				return
			}

			var p Principal
			if apiKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) == 1 {
				p.APIKey = true
			} else {
				addr, err := tokens.ParseToken(token)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "invalid authentication token")
					return
				}
				p.Address = addr
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
		})
	}
}

// RequireOperator admits only the operator wallet or API-key callers. It
// must run inside Authenticate. A zero operator means no wallet is loaded and
// every caller gets 503.
func RequireOperator(operator common.Address) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing authentication token")
				return
			}
			if operator == (common.Address{}) {
				writeError(w, http.StatusServiceUnavailable, "wallet not connected")
				return
			}
			if !p.APIKey && p.Address != operator {
				writeError(w, http.StatusForbidden, "wallet is not the operator account")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
