// Package store provides storage abstractions for the credvault server.
//
// Endpoints and domain services depend on these interfaces rather than on
// GORM directly, so they can be tested with mocks.
//
// # Available Stores
//
//   - UserStore: accounts (create, lookup, staff flag)
//   - CredentialStore: credentials and their allowed-user sets
//   - ServiceStore, TagStore: catalog entries credentials refer to
//   - AccessLogStore: append-only record of credential reads
//   - HealthStore: database connectivity
//
// # Errors
//
// Every not-found error wraps ErrNotFound:
//
//	cred, err := credentials.FindCredential(ctx, id)
//	if errors.Is(err, store.ErrNotFound) {
//	    // 404
//	}
package store
