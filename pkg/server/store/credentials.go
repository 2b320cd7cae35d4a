package store

import (
	"context"

	"github.com/credvault/credvault/pkg/model"
)

// CredentialFilter narrows a credential listing. Service and Tag are
// case-insensitive substring matches; empty means no filter.
type CredentialFilter struct {
	Service string
	Tag     string
	Page
}

// CredentialStore abstracts credential persistence. It never sees plaintext
// passwords; Password fields are always sealed envelopes.
type CredentialStore interface {
	// ListCredentials returns what viewer may read: everything for staff,
	// owned or shared credentials for everyone else. Service, tags and
	// allowed users are loaded.
	ListCredentials(ctx context.Context, viewer *model.User, filter CredentialFilter) ([]model.Credential, error)

	// FindCredential loads a credential with its service, owner, tags and
	// allowed users. Returns ErrCredentialNotFound if it doesn't exist.
	FindCredential(ctx context.Context, id uint) (*model.Credential, error)

	// CreateCredential inserts c and links the given tags.
	CreateCredential(ctx context.Context, c *model.Credential, tagIDs []uint) error

	// UpdateCredential applies the column changes in fields. When tagIDs is
	// non-nil the tag set is replaced.
	UpdateCredential(ctx context.Context, id uint, fields map[string]interface{}, tagIDs []uint) error

	// DeleteCredential removes a credential and, by cascade, its links and
	// access logs.
	DeleteCredential(ctx context.Context, id uint) error

	// AddAllowedUser adds userID to the credential's allowed set. It is an
	// atomic set insert: concurrent and repeated grants are safe.
	AddAllowedUser(ctx context.Context, credentialID, userID uint) error

	// RemoveAllowedUser removes userID from the allowed set if present.
	RemoveAllowedUser(ctx context.Context, credentialID, userID uint) error
}
