package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/credvault/credvault/pkg/identity"
	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/token"
)

// Resolver maps a raw bearer token to its user, or nil.
type Resolver interface {
	Resolve(ctx context.Context, raw string) *model.User
}

// JWTAuthenticator is middleware that requires a valid access token and
// puts the caller's identity in the request context.
type JWTAuthenticator struct {
	Tokens  Resolver
	Trusted func(ip string) bool
}

// NewJWTAuthenticator creates a new JWT authenticator middleware
func NewJWTAuthenticator(tokens Resolver, trusted func(ip string) bool) *JWTAuthenticator {
	return &JWTAuthenticator{Tokens: tokens, Trusted: trusted}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// Middleware returns an HTTP middleware that validates access tokens
func (j *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := token.FromHeader(r.Header.Get("Authorization"))
		if raw == "" {
			unauthorized(w, "Authentication credentials were not provided.")
			return
		}

		user := j.Tokens.Resolve(r.Context(), raw)
		if user == nil {
			unauthorized(w, "Invalid token.")
			return
		}

		id := identity.FromUser(user).WithRemoteIP(net.ParseIP(ClientIP(r, j.Trusted)))
		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}
