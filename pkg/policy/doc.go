// Package policy decides who may read, write or share a credential.
//
// The rules are pure functions of the user and the credential, with no I/O,
// so they are evaluated both in SQL-backed listing (as a re-check) and in
// single-object operations.
package policy
