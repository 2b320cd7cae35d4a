// Package vault is the credential store service.
//
// It combines the access policy, the envelope cipher and the access
// notifier around the persistence interfaces in pkg/server/store:
//
//   - writes seal the password exactly once, and only when one is supplied
//   - reads open it exactly once per returned credential and enqueue one
//     access event each
//   - not-found is reported before forbidden
//
// Errors are ValidationError (400), ErrForbidden (403), store.ErrNotFound
// or ReferenceError (404) and CryptoError (500).
package vault
