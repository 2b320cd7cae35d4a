package vault

import (
	"context"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/policy"
	"github.com/credvault/credvault/pkg/server/store"
)

func validName(name string) error {
	verr := &ValidationError{}
	checkName(verr, "name", name, true)
	return verr.orNil()
}

func (v *Vault) ListServices(ctx context.Context, page store.Page) ([]model.Service, error) {
	return v.stores.Services.ListServices(ctx, page)
}

func (v *Vault) GetService(ctx context.Context, id uint) (*model.Service, error) {
	return v.stores.Services.FindService(ctx, id)
}

// CreateService adds a service owned by user.
func (v *Vault) CreateService(ctx context.Context, user *model.User, name string) (*model.Service, error) {
	if user == nil {
		return nil, ErrForbidden
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	svc := &model.Service{Name: name, CreatedByID: user.ID}
	if err := v.stores.Services.CreateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// RenameService is allowed to the service's creator and staff.
func (v *Vault) RenameService(ctx context.Context, user *model.User, id uint, name string) (*model.Service, error) {
	svc, err := v.stores.Services.FindService(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyOwned(user, svc.CreatedByID) {
		return nil, ErrForbidden
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	if err := v.stores.Services.RenameService(ctx, id, name); err != nil {
		return nil, err
	}
	svc.Name = name
	return svc, nil
}

// DeleteService removes a service and, by cascade, its credentials.
func (v *Vault) DeleteService(ctx context.Context, user *model.User, id uint) error {
	svc, err := v.stores.Services.FindService(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanModifyOwned(user, svc.CreatedByID) {
		return ErrForbidden
	}
	return v.stores.Services.DeleteService(ctx, id)
}

func (v *Vault) ListTags(ctx context.Context, page store.Page) ([]model.Tag, error) {
	return v.stores.Tags.ListTags(ctx, page)
}

func (v *Vault) GetTag(ctx context.Context, id uint) (*model.Tag, error) {
	return v.stores.Tags.FindTag(ctx, id)
}

// CreateTag adds a tag owned by user.
func (v *Vault) CreateTag(ctx context.Context, user *model.User, name string) (*model.Tag, error) {
	if user == nil {
		return nil, ErrForbidden
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	tag := &model.Tag{Name: name, CreatedByID: user.ID}
	if err := v.stores.Tags.CreateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// RenameTag is allowed to the tag's creator and staff.
func (v *Vault) RenameTag(ctx context.Context, user *model.User, id uint, name string) (*model.Tag, error) {
	tag, err := v.stores.Tags.FindTag(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyOwned(user, tag.CreatedByID) {
		return nil, ErrForbidden
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	if err := v.stores.Tags.RenameTag(ctx, id, name); err != nil {
		return nil, err
	}
	tag.Name = name
	return tag, nil
}

// DeleteTag removes a tag; credentials keep existing without it.
func (v *Vault) DeleteTag(ctx context.Context, user *model.User, id uint) error {
	tag, err := v.stores.Tags.FindTag(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanModifyOwned(user, tag.CreatedByID) {
		return ErrForbidden
	}
	return v.stores.Tags.DeleteTag(ctx, id)
}
