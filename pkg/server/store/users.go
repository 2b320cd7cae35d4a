package store

import (
	"context"

	"github.com/credvault/credvault/pkg/model"
)

// UserStore abstracts account storage for the identity provider.
type UserStore interface {
	// CreateUser inserts u and fills in its ID.
	// Returns ErrUsernameTaken if the username is already registered.
	CreateUser(ctx context.Context, u *model.User) error

	// FindUserByID returns ErrUserNotFound if no such user exists.
	FindUserByID(ctx context.Context, id uint) (*model.User, error)

	// FindUserByUsername returns ErrUserNotFound if no such user exists.
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)

	// SetStaff changes the administrator flag of a user.
	SetStaff(ctx context.Context, username string, staff bool) error
}
