package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/server/store"
)

var (
	_ store.ServiceStore = (*ServiceStore)(nil)
	_ store.TagStore     = (*TagStore)(nil)
)

// ServiceStore implements store.ServiceStore using GORM
type ServiceStore struct {
	db *gorm.DB
}

// NewServiceStore creates a new ServiceStore
func NewServiceStore(db *gorm.DB) *ServiceStore {
	return &ServiceStore{db: db}
}

func paged(q *gorm.DB, page store.Page) *gorm.DB {
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	if page.Offset > 0 {
		q = q.Offset(page.Offset)
	}
	return q
}

func (s *ServiceStore) ListServices(ctx context.Context, page store.Page) ([]model.Service, error) {
	var services []model.Service
	err := paged(s.db.WithContext(ctx).Order("id"), page).Find(&services).Error
	return services, err
}

func (s *ServiceStore) FindService(ctx context.Context, id uint) (*model.Service, error) {
	var svc model.Service
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrServiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *ServiceStore) CreateService(ctx context.Context, svc *model.Service) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(svc).Error
}

func (s *ServiceStore) RenameService(ctx context.Context, id uint, name string) error {
	res := s.db.WithContext(ctx).Exec(`UPDATE services SET name = ? WHERE id = ?`, name, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrServiceNotFound
	}
	return nil
}

func (s *ServiceStore) DeleteService(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Exec(`DELETE FROM services WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrServiceNotFound
	}
	return nil
}

// TagStore implements store.TagStore using GORM
type TagStore struct {
	db *gorm.DB
}

// NewTagStore creates a new TagStore
func NewTagStore(db *gorm.DB) *TagStore {
	return &TagStore{db: db}
}

func (s *TagStore) ListTags(ctx context.Context, page store.Page) ([]model.Tag, error) {
	var tags []model.Tag
	err := paged(s.db.WithContext(ctx).Order("id"), page).Find(&tags).Error
	return tags, err
}

func (s *TagStore) FindTag(ctx context.Context, id uint) (*model.Tag, error) {
	var tag model.Tag
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *TagStore) FindTags(ctx context.Context, ids []uint) ([]model.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []model.Tag
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&tags).Error
	return tags, err
}

func (s *TagStore) CreateTag(ctx context.Context, tag *model.Tag) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(tag).Error
}

func (s *TagStore) RenameTag(ctx context.Context, id uint, name string) error {
	res := s.db.WithContext(ctx).Exec(`UPDATE tags SET name = ? WHERE id = ?`, name, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrTagNotFound
	}
	return nil
}

func (s *TagStore) DeleteTag(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Exec(`DELETE FROM tags WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrTagNotFound
	}
	return nil
}
