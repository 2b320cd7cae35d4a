package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/credvault/credvault/pkg/authn"
	"github.com/credvault/credvault/pkg/config"
	"github.com/credvault/credvault/pkg/server/middleware"
	"github.com/credvault/credvault/pkg/server/store"
	"github.com/credvault/credvault/pkg/token"
	"github.com/credvault/credvault/pkg/vault"
)

// Deps are the collaborators a Server is built from.
type Deps struct {
	Config   *config.Config
	Secret   string
	Stores   vault.Stores
	Health   store.HealthStore
	Sealer   vault.Sealer
	Notifier vault.Notifier
}

type Server struct {
	Router        *mux.Router
	Vault         *vault.Vault
	Authn         *authn.Provider
	Tokens        *token.Service
	HealthStore   store.HealthStore
	JWTMiddleware *middleware.JWTAuthenticator
	Throttle      *middleware.Throttle

	cfg atomic.Pointer[config.Config]
	srv *http.Server
}

func NewServer(deps Deps, host string, port string) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("server config is required")
	}

	tokens, err := token.NewService(deps.Secret, deps.Config.AccessTokenTTL(), deps.Stores.Users)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Router:      mux.NewRouter(),
		Vault:       vault.New(deps.Stores, deps.Sealer, deps.Notifier),
		Authn:       authn.NewProvider(deps.Stores.Users, tokens),
		Tokens:      tokens,
		HealthStore: deps.Health,
	}
	s.cfg.Store(deps.Config)
	s.JWTMiddleware = middleware.NewJWTAuthenticator(tokens, s.isTrustedProxy)
	s.Throttle = middleware.NewThrottle(deps.Config.ThrottleRate, deps.Config.ThrottleBurst, s.isTrustedProxy)

	s.srv = &http.Server{
		Handler:           s.Handler(),
		Addr:              host + ":" + port,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadTimeout:       15 * time.Second,
	}
	return s, nil
}

// Config returns the configuration currently in effect.
func (s *Server) Config() *config.Config {
	return s.cfg.Load()
}

// ApplyConfig swaps in a reloaded configuration. Rate limits and trusted
// proxies take effect immediately; the token lifetime does not change.
func (s *Server) ApplyConfig(c *config.Config) {
	s.cfg.Store(c)
	s.Throttle.SetLimit(c.ThrottleRate, c.ThrottleBurst)
}

func (s *Server) isTrustedProxy(ip string) bool {
	return s.Config().IsTrustedProxy(ip)
}

// trimTrailingSlash lets "/credentials/" and "/credentials" reach the same
// route without a redirect, so POST bodies survive.
func trimTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimRight(r.URL.Path, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

// Handler is the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	recoveryLog := slog.NewLogLogger(slog.Default().Handler(), slog.LevelError)
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLog),
	)(handlers.LoggingHandler(os.Stdout, s.Throttle.Middleware(trimTrailingSlash(s.Router))))
}

func (s *Server) Start() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
