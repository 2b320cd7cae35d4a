// Package middleware holds the HTTP middleware shared by all endpoints:
// bearer token authentication and per-client rate limiting.
package middleware
