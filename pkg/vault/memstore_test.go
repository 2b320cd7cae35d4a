package vault

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/notify"
	"github.com/credvault/credvault/pkg/server/store"
)

// memStore is an in-memory implementation of every store interface the
// vault uses. Relations are resolved on read, like the GORM preloads.
type memStore struct {
	mu          sync.Mutex
	users       map[uint]model.User
	services    map[uint]model.Service
	tags        map[uint]model.Tag
	credentials map[uint]model.Credential
	credTags    map[uint]map[uint]bool
	allowed     map[uint]map[uint]bool
	logs        []model.AccessLog
	nextID      uint
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[uint]model.User{},
		services:    map[uint]model.Service{},
		tags:        map[uint]model.Tag{},
		credentials: map[uint]model.Credential{},
		credTags:    map[uint]map[uint]bool{},
		allowed:     map[uint]map[uint]bool{},
	}
}

func (m *memStore) stores() Stores {
	return Stores{Credentials: m, Services: m, Tags: m, Users: m, AccessLogs: m}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(u model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id()
	u.IsActive = true
	m.users[u.ID] = u
	return &u
}

// UserStore

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return store.ErrUsernameTaken
		}
	}
	u.ID = m.id()
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) FindUserByID(_ context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memStore) SetStaff(_ context.Context, username string, staff bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Username == username {
			u.IsStaff = staff
			m.users[id] = u
			return nil
		}
	}
	return store.ErrUserNotFound
}

// ServiceStore

func (m *memStore) ListServices(context.Context, store.Page) ([]model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Service{}
	for _, s := range m.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindService(_ context.Context, id uint) (*model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, store.ErrServiceNotFound
	}
	return &s, nil
}

func (m *memStore) CreateService(_ context.Context, s *model.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	m.services[s.ID] = *s
	return nil
}

func (m *memStore) RenameService(_ context.Context, id uint, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return store.ErrServiceNotFound
	}
	s.Name = name
	m.services[id] = s
	return nil
}

func (m *memStore) DeleteService(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[id]; !ok {
		return store.ErrServiceNotFound
	}
	delete(m.services, id)
	for cid, c := range m.credentials {
		if c.ServiceID == id {
			delete(m.credentials, cid)
		}
	}
	return nil
}

// TagStore

func (m *memStore) ListTags(context.Context, store.Page) ([]model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Tag{}
	for _, t := range m.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindTag(_ context.Context, id uint) (*model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[id]
	if !ok {
		return nil, store.ErrTagNotFound
	}
	return &t, nil
}

func (m *memStore) FindTags(_ context.Context, ids []uint) ([]model.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Tag
	for _, id := range ids {
		if t, ok := m.tags[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) CreateTag(_ context.Context, t *model.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	m.tags[t.ID] = *t
	return nil
}

func (m *memStore) RenameTag(_ context.Context, id uint, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[id]
	if !ok {
		return store.ErrTagNotFound
	}
	t.Name = name
	m.tags[id] = t
	return nil
}

func (m *memStore) DeleteTag(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tags[id]; !ok {
		return store.ErrTagNotFound
	}
	delete(m.tags, id)
	for _, links := range m.credTags {
		delete(links, id)
	}
	return nil
}

// CredentialStore

func (m *memStore) load(c model.Credential) model.Credential {
	c.Service = m.services[c.ServiceID]
	c.CreatedBy = m.users[c.CreatedByID]
	c.Tags = nil
	for id := range m.credTags[c.ID] {
		c.Tags = append(c.Tags, m.tags[id])
	}
	sort.Slice(c.Tags, func(i, j int) bool { return c.Tags[i].ID < c.Tags[j].ID })
	c.AllowedUsers = nil
	for id := range m.allowed[c.ID] {
		c.AllowedUsers = append(c.AllowedUsers, m.users[id])
	}
	sort.Slice(c.AllowedUsers, func(i, j int) bool { return c.AllowedUsers[i].ID < c.AllowedUsers[j].ID })
	return c
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (m *memStore) ListCredentials(_ context.Context, viewer *model.User, f store.CredentialFilter) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Credential
	for _, c := range m.credentials {
		c = m.load(c)
		if !viewer.IsStaff && c.CreatedByID != viewer.ID && !m.allowed[c.ID][viewer.ID] {
			continue
		}
		if f.Service != "" && !containsFold(c.Service.Name, f.Service) {
			continue
		}
		if f.Tag != "" {
			match := false
			for _, t := range c.Tags {
				match = match || containsFold(t.Name, f.Tag)
			}
			if !match {
				continue
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindCredential(_ context.Context, id uint) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credentials[id]
	if !ok {
		return nil, store.ErrCredentialNotFound
	}
	c = m.load(c)
	return &c, nil
}

func (m *memStore) CreateCredential(_ context.Context, c *model.Credential, tagIDs []uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.credentials[c.ID] = *c
	m.credTags[c.ID] = map[uint]bool{}
	for _, id := range tagIDs {
		m.credTags[c.ID][id] = true
	}
	return nil
}

func (m *memStore) UpdateCredential(_ context.Context, id uint, fields map[string]interface{}, tagIDs []uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credentials[id]
	if !ok {
		return store.ErrCredentialNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			c.Name = v.(string)
		case "service_id":
			c.ServiceID = v.(uint)
		case "username":
			c.Username = v.(*string)
		case "public_key":
			c.PublicKey = v.(*string)
		case "password":
			c.Password = v.(model.SecretEnvelope)
		}
	}
	c.UpdatedAt = time.Now()
	m.credentials[id] = c
	if tagIDs != nil {
		m.credTags[id] = map[uint]bool{}
		for _, t := range tagIDs {
			m.credTags[id][t] = true
		}
	}
	return nil
}

func (m *memStore) DeleteCredential(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credentials[id]; !ok {
		return store.ErrCredentialNotFound
	}
	delete(m.credentials, id)
	return nil
}

func (m *memStore) AddAllowedUser(_ context.Context, credentialID, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowed[credentialID] == nil {
		m.allowed[credentialID] = map[uint]bool{}
	}
	m.allowed[credentialID][userID] = true
	return nil
}

func (m *memStore) RemoveAllowedUser(_ context.Context, credentialID, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.allowed[credentialID], userID)
	return nil
}

// AccessLogStore

func (m *memStore) CreateAccessLog(_ context.Context, userID, credentialID uint) (*model.AccessLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := model.AccessLog{ID: uint64(len(m.logs) + 1), UserID: userID, CredentialID: credentialID, AccessedAt: time.Now()}
	m.logs = append(m.logs, e)
	return &e, nil
}

func (m *memStore) ListAccessLogs(_ context.Context, credentialID uint, _ store.Page) ([]model.AccessLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AccessLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].CredentialID == credentialID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

// recordingNotifier collects access events synchronously.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Enqueue(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
