// Package envelope encrypts credential passwords at rest.
//
// A single AES-256 key is derived from the server master secret at start-up
// and injected wherever secrets are sealed or opened:
//
//	env, err := envelope.NewEnvelope(envelope.DeriveKey(secret))
//	sealed, err := env.Seal("hunter2")
//	plain, err := env.Open(sealed)
//
// Sealed values use AES-GCM with a random nonce, framed as
// "magic | tag | iv | ctext" and then URL-safe base64 encoded, so they can be
// stored in a text column.
package envelope
