package store

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFound is wrapped by every "does not exist" error in this package,
// so callers can test for absence with errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("not found")

var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrCredentialNotFound = fmt.Errorf("credential %w", ErrNotFound)
	ErrServiceNotFound    = fmt.Errorf("service %w", ErrNotFound)
	ErrTagNotFound        = fmt.Errorf("tag %w", ErrNotFound)
)

// MaxID is the largest value a serial primary key can hold.
const MaxID = math.MaxInt32

// ValidID reports whether id could name a row. Anything else is absent by
// definition and must not reach the database.
func ValidID(id uint) bool {
	return id > 0 && id <= MaxID
}

// ErrUsernameTaken is returned when a username is already registered.
var ErrUsernameTaken = errors.New("username already exists")

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}
