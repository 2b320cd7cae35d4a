package vault

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/credvault/credvault/pkg/envelope"
	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/notify"
	"github.com/credvault/credvault/pkg/policy"
	"github.com/credvault/credvault/pkg/server/store"
)

// MaxNameLength bounds names and usernames.
const MaxNameLength = 100

// Sealer seals and opens credential passwords.
type Sealer interface {
	Seal(plaintext string) (model.SecretEnvelope, error)
	Open(sealed model.SecretEnvelope) (string, error)
}

// Notifier receives one event per credential read.
type Notifier interface {
	Enqueue(e notify.Event)
}

// Stores groups the persistence the vault depends on.
type Stores struct {
	Credentials store.CredentialStore
	Services    store.ServiceStore
	Tags        store.TagStore
	Users       store.UserStore
	AccessLogs  store.AccessLogStore
}

// Vault is the credential store: every read and write of a credential goes
// through it so that policy, encryption and access notification are applied
// uniformly.
type Vault struct {
	stores   Stores
	envelope Sealer
	notifier Notifier
}

// New creates a Vault.
func New(stores Stores, sealer Sealer, notifier Notifier) *Vault {
	return &Vault{stores: stores, envelope: sealer, notifier: notifier}
}

// Revealed is a credential together with its decrypted password.
type Revealed struct {
	Credential *model.Credential
	Password   string
}

// CreateInput is the data for a new credential.
type CreateInput struct {
	Name      string
	ServiceID uint
	Username  *string
	Password  string
	PublicKey *string
	TagIDs    []uint
}

// UpdateInput is a credential change. Nil fields are left untouched. When
// Partial is false the request replaces the credential and name, service
// and password become required.
type UpdateInput struct {
	Name      *string
	ServiceID *uint
	Username  *string
	Password  *string
	PublicKey *string
	TagIDs    *[]uint
	Partial   bool
}

func (v *Vault) reveal(c *model.Credential) (*Revealed, error) {
	plain, err := v.envelope.Open(c.Password)
	if err != nil {
		return nil, &CryptoError{CredentialID: c.ID, Err: err}
	}
	return &Revealed{Credential: c, Password: plain}, nil
}

func (v *Vault) accessed(user *model.User, c *model.Credential) {
	v.notifier.Enqueue(notify.Event{Accessor: *user, Credential: *c})
}

// find loads a credential and checks op against it. Absence is reported
// before permission.
func (v *Vault) find(ctx context.Context, user *model.User, id uint, op policy.Operation) (*model.Credential, error) {
	if user == nil {
		return nil, ErrForbidden
	}
	if !store.ValidID(id) {
		return nil, store.ErrCredentialNotFound
	}
	c, err := v.stores.Credentials.FindCredential(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Can(user, c, op) {
		return nil, ErrForbidden
	}
	return c, nil
}

// List returns the credentials user may read, decrypted, filtered by
// service and tag name substrings. Each returned credential counts as one
// read.
func (v *Vault) List(ctx context.Context, user *model.User, filter store.CredentialFilter) ([]Revealed, error) {
	if user == nil {
		return nil, ErrForbidden
	}

	creds, err := v.stores.Credentials.ListCredentials(ctx, user, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	creds = policy.Visible(user, creds)

	out := make([]Revealed, 0, len(creds))
	for i := range creds {
		r, err := v.reveal(&creds[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}

	for i := range out {
		v.accessed(user, out[i].Credential)
	}
	return out, nil
}

// Get returns one decrypted credential and records the read.
func (v *Vault) Get(ctx context.Context, user *model.User, id uint) (*Revealed, error) {
	c, err := v.find(ctx, user, id, policy.Read)
	if err != nil {
		return nil, err
	}
	r, err := v.reveal(c)
	if err != nil {
		return nil, err
	}
	v.accessed(user, c)
	return r, nil
}

func checkName(verr *ValidationError, field, value string, required bool) {
	if value == "" {
		if required {
			verr.Add(field, msgRequired)
		}
		return
	}
	if utf8.RuneCountInString(value) > MaxNameLength {
		verr.Add(field, fmt.Sprintf(msgTooLong, MaxNameLength))
	}
}

func checkPassword(verr *ValidationError, password string) {
	if password == "" {
		verr.Add("password", msgRequired)
		return
	}
	if utf8.RuneCountInString(password) > envelope.MaxPasswordLength {
		verr.Add("password", fmt.Sprintf(msgTooLong, envelope.MaxPasswordLength))
		return
	}
	// The sealed column grows with bytes, not characters.
	if len(password) > envelope.MaxPasswordLength {
		verr.Add("password", fmt.Sprintf(msgTooLarge, envelope.MaxPasswordLength))
		return
	}
	for _, p := range PasswordProblems(password) {
		verr.Add("password", p)
	}
}

func (v *Vault) checkService(ctx context.Context, id uint) error {
	if !store.ValidID(id) {
		return &ReferenceError{Field: "service", Missing: []uint{id}}
	}
	_, err := v.stores.Services.FindService(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &ReferenceError{Field: "service", Missing: []uint{id}}
	}
	return err
}

func (v *Vault) checkTags(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	lookup := make([]uint, 0, len(ids))
	for _, id := range ids {
		if store.ValidID(id) {
			lookup = append(lookup, id)
		}
	}
	var found []model.Tag
	if len(lookup) > 0 {
		var err error
		if found, err = v.stores.Tags.FindTags(ctx, lookup); err != nil {
			return err
		}
	}

	have := make(map[uint]bool, len(found))
	for _, t := range found {
		have[t.ID] = true
	}
	var missing []uint
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
			have[id] = true
		}
	}
	if len(missing) > 0 {
		return &ReferenceError{Field: "tags", Missing: missing}
	}
	return nil
}

func optional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// Create validates in, seals the password once and stores a credential
// owned by user.
func (v *Vault) Create(ctx context.Context, user *model.User, in CreateInput) (*Revealed, error) {
	if user == nil {
		return nil, ErrForbidden
	}

	verr := &ValidationError{}
	checkName(verr, "name", in.Name, true)
	if in.ServiceID == 0 {
		verr.Add("service", msgRequired)
	}
	if in.Username != nil {
		checkName(verr, "username", *in.Username, false)
	}
	checkPassword(verr, in.Password)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if err := v.checkService(ctx, in.ServiceID); err != nil {
		return nil, err
	}
	if err := v.checkTags(ctx, in.TagIDs); err != nil {
		return nil, err
	}

	sealed, err := v.envelope.Seal(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to seal password: %w", err)
	}

	c := &model.Credential{
		Name:        in.Name,
		ServiceID:   in.ServiceID,
		Username:    optional(in.Username),
		Password:    sealed,
		PublicKey:   optional(in.PublicKey),
		CreatedByID: user.ID,
	}
	if err := v.stores.Credentials.CreateCredential(ctx, c, in.TagIDs); err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	stored, err := v.stores.Credentials.FindCredential(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &Revealed{Credential: stored, Password: in.Password}, nil
}

// Update changes a credential the user may write. The password is
// re-sealed only when a new one is supplied; otherwise the stored envelope
// is left exactly as it was.
func (v *Vault) Update(ctx context.Context, user *model.User, id uint, in UpdateInput) (*Revealed, error) {
	if _, err := v.find(ctx, user, id, policy.Write); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if !in.Partial {
		if in.Name == nil {
			verr.Add("name", msgRequired)
		}
		if in.ServiceID == nil {
			verr.Add("service", msgRequired)
		}
		if in.Password == nil {
			verr.Add("password", msgRequired)
		}
	}
	if in.Name != nil {
		checkName(verr, "name", *in.Name, true)
	}
	if in.ServiceID != nil && *in.ServiceID == 0 {
		verr.Add("service", msgRequired)
	}
	if in.Username != nil {
		checkName(verr, "username", *in.Username, false)
	}
	if in.Password != nil {
		checkPassword(verr, *in.Password)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.ServiceID != nil {
		if err := v.checkService(ctx, *in.ServiceID); err != nil {
			return nil, err
		}
		fields["service_id"] = *in.ServiceID
	}
	var tagIDs []uint
	if in.TagIDs != nil {
		if err := v.checkTags(ctx, *in.TagIDs); err != nil {
			return nil, err
		}
		tagIDs = append([]uint{}, *in.TagIDs...)
	}

	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Username != nil {
		fields["username"] = optional(in.Username)
	}
	if in.PublicKey != nil {
		fields["public_key"] = optional(in.PublicKey)
	}
	if in.Password != nil {
		sealed, err := v.envelope.Seal(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to seal password: %w", err)
		}
		fields["password"] = sealed
	}

	if err := v.stores.Credentials.UpdateCredential(ctx, id, fields, tagIDs); err != nil {
		return nil, fmt.Errorf("failed to update credential: %w", err)
	}

	stored, err := v.stores.Credentials.FindCredential(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Password != nil {
		return &Revealed{Credential: stored, Password: *in.Password}, nil
	}
	return v.reveal(stored)
}

// Delete removes a credential the user may write.
func (v *Vault) Delete(ctx context.Context, user *model.User, id uint) error {
	if _, err := v.find(ctx, user, id, policy.Write); err != nil {
		return err
	}
	return v.stores.Credentials.DeleteCredential(ctx, id)
}

// Grant gives targetUserID read access. Granting twice is a no-op.
func (v *Vault) Grant(ctx context.Context, user *model.User, id, targetUserID uint) error {
	if _, err := v.find(ctx, user, id, policy.Grant); err != nil {
		return err
	}
	if err := v.checkUser(ctx, targetUserID); err != nil {
		return err
	}
	if err := v.stores.Credentials.AddAllowedUser(ctx, id, targetUserID); err != nil {
		return fmt.Errorf("failed to grant access: %w", err)
	}
	return nil
}

// Revoke removes targetUserID's read access. Revoking an absent grant is a
// no-op.
func (v *Vault) Revoke(ctx context.Context, user *model.User, id, targetUserID uint) error {
	if _, err := v.find(ctx, user, id, policy.Grant); err != nil {
		return err
	}
	if err := v.checkUser(ctx, targetUserID); err != nil {
		return err
	}
	if err := v.stores.Credentials.RemoveAllowedUser(ctx, id, targetUserID); err != nil {
		return fmt.Errorf("failed to revoke access: %w", err)
	}
	return nil
}

func (v *Vault) checkUser(ctx context.Context, id uint) error {
	if !store.ValidID(id) {
		return store.ErrUserNotFound
	}
	_, err := v.stores.Users.FindUserByID(ctx, id)
	return err
}

// AccessHistory lists recorded reads of a credential, newest first, to
// those who may write it.
func (v *Vault) AccessHistory(ctx context.Context, user *model.User, id uint, page store.Page) ([]model.AccessLog, error) {
	if _, err := v.find(ctx, user, id, policy.Write); err != nil {
		return nil, err
	}
	return v.stores.AccessLogs.ListAccessLogs(ctx, id, page)
}
