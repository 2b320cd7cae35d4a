package vault

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/credvault/credvault/pkg/server/store"
)

// ErrForbidden is returned when a user is known but lacks the right to the
// requested operation.
var ErrForbidden = errors.New("you do not have permission to perform this action")

const (
	msgRequired = "This field is required."
	msgTooLong  = "Ensure this field has no more than %d characters."
	msgTooLarge = "Ensure this field is no larger than %d bytes when encoded."
)

// ValidationError carries field-level messages for bad input.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// orNil returns e only if it holds messages, so callers can write
// `return v.orNil()`.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ReferenceError reports ids in the input that point at nothing.
type ReferenceError struct {
	Field   string
	Missing []uint
}

func (e *ReferenceError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%s not found: %s", e.Field, strings.Join(ids, ", "))
}

// Unwrap lets errors.Is(err, store.ErrNotFound) match reference errors.
func (e *ReferenceError) Unwrap() error {
	return store.ErrNotFound
}

// CryptoError is a failure to open a stored secret. Its message never
// includes cipher details.
type CryptoError struct {
	CredentialID uint
	Err          error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("credential %d: stored secret could not be decrypted", e.CredentialID)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}
