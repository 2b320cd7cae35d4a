package endpoints

import (
	"time"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/token"
	"github.com/credvault/credvault/pkg/vault"
)

type UserView struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   bool   `json:"is_staff"`
}

func userView(u *model.User) UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsStaff:   u.IsStaff,
	}
}

type TokenResponse struct {
	Token token.Token `json:"token"`
}

type CatalogView struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	CreatedBy uint   `json:"created_by"`
}

func serviceView(s *model.Service) CatalogView {
	return CatalogView{ID: s.ID, Name: s.Name, CreatedBy: s.CreatedByID}
}

func tagView(t *model.Tag) CatalogView {
	return CatalogView{ID: t.ID, Name: t.Name, CreatedBy: t.CreatedByID}
}

// CredentialView is a credential as clients see it: the password in
// plaintext, relations as ids.
type CredentialView struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Service      uint      `json:"service"`
	ServiceName  string    `json:"service_name"`
	Username     *string   `json:"username"`
	Password     string    `json:"password"`
	PublicKey    *string   `json:"public_key"`
	Tags         []uint    `json:"tags"`
	CreatedBy    uint      `json:"created_by"`
	AllowedUsers []uint    `json:"allowed_users"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func credentialView(r *vault.Revealed) CredentialView {
	c := r.Credential
	v := CredentialView{
		ID:           c.ID,
		Name:         c.Name,
		Service:      c.ServiceID,
		ServiceName:  c.Service.Name,
		Username:     c.Username,
		Password:     r.Password,
		PublicKey:    c.PublicKey,
		Tags:         make([]uint, 0, len(c.Tags)),
		CreatedBy:    c.CreatedByID,
		AllowedUsers: make([]uint, 0, len(c.AllowedUsers)),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	for _, t := range c.Tags {
		v.Tags = append(v.Tags, t.ID)
	}
	for _, u := range c.AllowedUsers {
		v.AllowedUsers = append(v.AllowedUsers, u.ID)
	}
	return v
}

type AccessLogView struct {
	ID         uint64    `json:"id"`
	User       uint      `json:"user"`
	Username   string    `json:"username"`
	Credential uint      `json:"credential"`
	AccessedAt time.Time `json:"accessed_at"`
}

func accessLogView(l *model.AccessLog) AccessLogView {
	return AccessLogView{
		ID:         l.ID,
		User:       l.UserID,
		Username:   l.User.Username,
		Credential: l.CredentialID,
		AccessedAt: l.AccessedAt,
	}
}
