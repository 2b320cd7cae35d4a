package identity

import (
	"context"
	"net"

	"github.com/credvault/credvault/pkg/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	User *model.User

	// Request context
	RemoteIP net.IP
}

// FromUser creates an Identity for a resolved user.
func FromUser(u *model.User) *Identity {
	return &Identity{User: u}
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// UserID returns the caller's id, or 0 when anonymous.
func (i *Identity) UserID() uint {
	if i == nil || i.User == nil {
		return 0
	}
	return i.User.ID
}

// Username returns the caller's username, or "" when anonymous.
func (i *Identity) Username() string {
	if i == nil || i.User == nil {
		return ""
	}
	return i.User.Username
}

// IsStaff reports whether the caller is an administrator.
func (i *Identity) IsStaff() bool {
	return i != nil && i.User != nil && i.User.IsStaff
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
