package store

import (
	"context"

	"github.com/credvault/credvault/pkg/model"
)

// ServiceStore abstracts service catalog persistence.
type ServiceStore interface {
	ListServices(ctx context.Context, page Page) ([]model.Service, error)
	// FindService returns ErrServiceNotFound if it doesn't exist.
	FindService(ctx context.Context, id uint) (*model.Service, error)
	CreateService(ctx context.Context, s *model.Service) error
	RenameService(ctx context.Context, id uint, name string) error
	DeleteService(ctx context.Context, id uint) error
}

// TagStore abstracts tag persistence.
type TagStore interface {
	ListTags(ctx context.Context, page Page) ([]model.Tag, error)
	// FindTag returns ErrTagNotFound if it doesn't exist.
	FindTag(ctx context.Context, id uint) (*model.Tag, error)
	// FindTags returns the tags that exist among ids, in id order.
	FindTags(ctx context.Context, ids []uint) ([]model.Tag, error)
	CreateTag(ctx context.Context, t *model.Tag) error
	RenameTag(ctx context.Context, id uint, name string) error
	DeleteTag(ctx context.Context, id uint) error
}
