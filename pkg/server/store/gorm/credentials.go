package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/server/store"
)

// Ensure CredentialStore implements store.CredentialStore
var _ store.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements store.CredentialStore using GORM
type CredentialStore struct {
	db *gorm.DB
}

// NewCredentialStore creates a new CredentialStore
func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) withRelations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Service").
		Preload("CreatedBy").
		Preload("Tags").
		Preload("AllowedUsers")
}

// ListCredentials returns the credentials viewer may read, oldest first.
func (s *CredentialStore) ListCredentials(ctx context.Context, viewer *model.User, filter store.CredentialFilter) ([]model.Credential, error) {
	q := s.withRelations(ctx).Model(&model.Credential{})

	if !viewer.IsStaff {
		q = q.Where(`credentials.created_by_id = ? OR credentials.id IN (
			SELECT credential_id FROM credential_allowed_users WHERE user_id = ?)`,
			viewer.ID, viewer.ID)
	}
	if filter.Service != "" {
		q = q.Where(`credentials.service_id IN (
			SELECT id FROM services WHERE name ILIKE ?)`,
			likePattern(filter.Service))
	}
	if filter.Tag != "" {
		q = q.Where(`credentials.id IN (
			SELECT ct.credential_id FROM credential_tags ct
			JOIN tags t ON t.id = ct.tag_id
			WHERE t.name ILIKE ?)`,
			likePattern(filter.Tag))
	}

	q = q.Order("credentials.id")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var creds []model.Credential
	if err := q.Find(&creds).Error; err != nil {
		return nil, err
	}
	return creds, nil
}

func (s *CredentialStore) FindCredential(ctx context.Context, id uint) (*model.Credential, error) {
	var c model.Credential
	err := s.withRelations(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CredentialStore) CreateCredential(ctx context.Context, c *model.Credential, tagIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return err
		}
		return linkTags(tx, c.ID, tagIDs)
	})
}

func (s *CredentialStore) UpdateCredential(ctx context.Context, id uint, fields map[string]interface{}, tagIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			res := tx.Model(&model.Credential{ID: id}).Omit(clause.Associations).Updates(fields)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return store.ErrCredentialNotFound
			}
		}
		if tagIDs == nil {
			return nil
		}
		if err := tx.Exec(`DELETE FROM credential_tags WHERE credential_id = ?`, id).Error; err != nil {
			return err
		}
		return linkTags(tx, id, tagIDs)
	})
}

func linkTags(tx *gorm.DB, credentialID uint, tagIDs []uint) error {
	for _, tagID := range tagIDs {
		err := tx.Exec(`
			INSERT INTO credential_tags (credential_id, tag_id)
			VALUES (?, ?)
			ON CONFLICT DO NOTHING`, credentialID, tagID).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *CredentialStore) DeleteCredential(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Exec(`DELETE FROM credentials WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrCredentialNotFound
	}
	return nil
}

// AddAllowedUser is a single idempotent insert, so concurrent grants to the
// same credential never overwrite one another.
func (s *CredentialStore) AddAllowedUser(ctx context.Context, credentialID, userID uint) error {
	return s.db.WithContext(ctx).Exec(`
		INSERT INTO credential_allowed_users (credential_id, user_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING`, credentialID, userID).Error
}

func (s *CredentialStore) RemoveAllowedUser(ctx context.Context, credentialID, userID uint) error {
	return s.db.WithContext(ctx).Exec(`
		DELETE FROM credential_allowed_users
		WHERE credential_id = ? AND user_id = ?`, credentialID, userID).Error
}
