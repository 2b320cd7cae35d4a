package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credvault/credvault/pkg/identity"
	"github.com/credvault/credvault/pkg/model"
)

type staticResolver map[string]*model.User

func (s staticResolver) Resolve(_ context.Context, raw string) *model.User {
	return s[raw]
}

func TestJWTAuthenticatorMiddleware(t *testing.T) {
	alice := &model.User{ID: 1, Username: "alice", IsActive: true}
	auth := NewJWTAuthenticator(staticResolver{"good": alice}, nil)

	var seen *identity.Identity
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.Get(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantDetail string
	}{
		{"missing header", "", http.StatusUnauthorized, "Authentication credentials were not provided."},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, "Invalid token."},
		{"bearer token", "Bearer good", http.StatusOK, ""},
		{"bare token", "good", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.RemoteAddr = "203.0.113.9:5555"
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Nil(t, seen)
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantDetail, body["detail"])
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, "alice", seen.Username())
			assert.Equal(t, "203.0.113.9", seen.RemoteIP.String())
		})
	}
}

func TestClientIP(t *testing.T) {
	trusted := func(ip string) bool { return ip == "10.0.0.1" || ip == "10.0.0.2" }

	tests := []struct {
		name      string
		remote    string
		forwarded string
		trusted   func(string) bool
		want      string
	}{
		{"direct peer", "198.51.100.7:1234", "", trusted, "198.51.100.7"},
		{"untrusted peer ignores header", "198.51.100.7:1234", "1.2.3.4", trusted, "198.51.100.7"},
		{"no trust function", "10.0.0.1:80", "1.2.3.4", nil, "10.0.0.1"},
		{"trusted proxy", "10.0.0.1:80", "1.2.3.4", trusted, "1.2.3.4"},
		{"proxy chain", "10.0.0.1:80", "9.9.9.9, 1.2.3.4, 10.0.0.2", trusted, "1.2.3.4"},
		{"only proxies", "10.0.0.1:80", "10.0.0.2", trusted, "10.0.0.2"},
		{"no port", "198.51.100.7", "", trusted, "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.trusted))
		})
	}
}
