package store

import (
	"context"

	"github.com/credvault/credvault/pkg/model"
)

// AccessLogStore records credential reads.
type AccessLogStore interface {
	// CreateAccessLog appends a row and returns it with its ID and
	// AccessedAt as stored.
	CreateAccessLog(ctx context.Context, userID, credentialID uint) (*model.AccessLog, error)

	// ListAccessLogs returns the newest entries for a credential first.
	ListAccessLogs(ctx context.Context, credentialID uint, page Page) ([]model.AccessLog, error)
}
