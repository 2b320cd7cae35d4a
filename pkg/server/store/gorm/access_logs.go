package gorm

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/server/store"
)

// Ensure AccessLogStore implements store.AccessLogStore
var _ store.AccessLogStore = (*AccessLogStore)(nil)

// AccessLogStore implements store.AccessLogStore using GORM
type AccessLogStore struct {
	db *gorm.DB
}

// NewAccessLogStore creates a new AccessLogStore
func NewAccessLogStore(db *gorm.DB) *AccessLogStore {
	return &AccessLogStore{db: db}
}

// CreateAccessLog appends a row. The returned entry is the one written, so
// callers never need to look up "the latest" entry afterwards.
func (s *AccessLogStore) CreateAccessLog(ctx context.Context, userID, credentialID uint) (*model.AccessLog, error) {
	entry := &model.AccessLog{
		UserID:       userID,
		CredentialID: credentialID,
		AccessedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *AccessLogStore) ListAccessLogs(ctx context.Context, credentialID uint, page store.Page) ([]model.AccessLog, error) {
	var entries []model.AccessLog
	q := s.db.WithContext(ctx).
		Preload("User").
		Where("credential_id = ?", credentialID).
		Order("id DESC")
	err := paged(q, page).Find(&entries).Error
	return entries, err
}
