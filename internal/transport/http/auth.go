package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller as asserted by the external
// identity service's bearer token. The engine trusts the token's claims
// and never issues tokens itself.
type Identity struct {
	UserID string
	IsHost bool
}

type identityKey struct{}

type claims struct {
	jwt.RegisteredClaims
	IsHost bool `json:"is_host"`
}

// RequireAuth validates the bearer token and stores the caller's Identity
// in the request context.
func RequireAuth(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization header required")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid authorization header format")
			return
		}

		var c claims
		parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid || c.Subject == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
			return
		}

		identity := Identity{UserID: c.Subject, IsHost: c.IsHost}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

// OptionalAuth parses a bearer token when one is present but lets
// anonymous requests through; handlers that need an identity check for it
// themselves. A present-but-invalid token is still rejected.
func OptionalAuth(secret string, next http.Handler) http.Handler {
	authed := RequireAuth(secret, next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		authed.ServeHTTP(w, r)
	})
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by RequireAuth.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
