package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/server/store"
	"github.com/credvault/credvault/pkg/token"
	"github.com/credvault/credvault/pkg/vault"
)

// ErrInvalidCredentials is returned for an unknown user, a wrong password or
// an inactive account. The cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid username or password")

const (
	maxUsernameLength = 150
	// bcrypt only accepts this many bytes of password.
	maxPasswordBytes = 72
	msgMismatch       = "Passwords does not match!"
)

// Issuer signs access tokens.
type Issuer interface {
	Issue(userID uint) (*token.Token, error)
}

// Registration is the data for a new account.
type Registration struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
	FirstName string
	LastName  string
}

// Provider registers and logs in users.
type Provider struct {
	users  store.UserStore
	tokens Issuer
	cost   int
}

// NewProvider creates a Provider hashing with bcrypt.DefaultCost.
func NewProvider(users store.UserStore, tokens Issuer) *Provider {
	return &Provider{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

func (r Registration) validate() error {
	verr := &vault.ValidationError{}
	username := strings.TrimSpace(r.Username)
	switch {
	case username == "":
		verr.Add("username", "This field is required.")
	case len([]rune(username)) > maxUsernameLength:
		verr.Add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", maxUsernameLength))
	}
	if r.Password1 == "" {
		verr.Add("password1", "This field is required.")
	}
	if r.Password2 == "" {
		verr.Add("password2", "This field is required.")
	}
	if len(verr.Fields) > 0 {
		return verr
	}

	if r.Password1 != r.Password2 {
		verr.Add("password", msgMismatch)
		return verr
	}
	if len(r.Password1) > maxPasswordBytes {
		verr.Add("password1", fmt.Sprintf("Ensure this field is no larger than %d bytes.", maxPasswordBytes))
		return verr
	}
	for _, p := range vault.PasswordProblems(r.Password1) {
		verr.Add("password1", p)
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Register creates an active account and returns a token for it. A taken
// username yields store.ErrUsernameTaken and creates nothing.
func (p *Provider) Register(ctx context.Context, r Registration) (*model.User, *token.Token, error) {
	if err := r.validate(); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password1), p.cost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &model.User{
		Username:     strings.TrimSpace(r.Username),
		Email:        strings.TrimSpace(r.Email),
		PasswordHash: string(hash),
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		IsActive:     true,
		DateJoined:   time.Now().UTC(),
	}
	if err := p.users.CreateUser(ctx, u); err != nil {
		return nil, nil, err
	}

	t, err := p.tokens.Issue(u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, t, nil
}

// Login checks a username and password and returns a fresh token.
func (p *Provider) Login(ctx context.Context, username, password string) (*model.User, *token.Token, error) {
	u, err := p.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, nil, ErrInvalidCredentials
	}

	t, err := p.tokens.Issue(u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, t, nil
}
