// Package authn is the identity provider: it registers accounts with
// bcrypt-hashed passwords and exchanges a username and password for a
// bearer token.
package authn
