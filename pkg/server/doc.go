// Package server provides the HTTP server for the credential vault API.
//
// It uses gorilla/mux for routing and wraps the router with access
// logging, panic recovery, per-client throttling and trailing-slash
// normalisation.
//
// # Server Setup
//
//	srv, err := server.NewServer(server.Deps{...}, "0.0.0.0", "8000")
//	endpoints.RegisterAll(srv)
//	err = srv.Start()
//
// # Components
//
// The Server struct holds:
//
//   - Vault: the credential store service
//   - Authn: registration and login
//   - Tokens: access token issuance and resolution
//   - JWTMiddleware: bearer token validation
//   - Throttle: per-client rate limiting, retunable at runtime
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage:
//
//   - /register, /login - accounts and tokens
//   - /credentials - credential CRUD, sharing and access history
//   - /services, /tags - catalog
//   - /whoami - token introspection
//   - / - status
package server
