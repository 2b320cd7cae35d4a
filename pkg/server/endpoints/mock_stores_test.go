package endpoints

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/notify"
	"github.com/credvault/credvault/pkg/server/store"
)

// MockUserStore implements store.UserStore for testing using testify/mock
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) FindUserByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) SetStaff(ctx context.Context, username string, staff bool) error {
	args := m.Called(ctx, username, staff)
	return args.Error(0)
}

// MockCredentialStore implements store.CredentialStore for testing using testify/mock
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) ListCredentials(ctx context.Context, viewer *model.User, filter store.CredentialFilter) ([]model.Credential, error) {
	args := m.Called(ctx, viewer, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Credential), args.Error(1)
}

func (m *MockCredentialStore) FindCredential(ctx context.Context, id uint) (*model.Credential, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialStore) CreateCredential(ctx context.Context, c *model.Credential, tagIDs []uint) error {
	args := m.Called(ctx, c, tagIDs)
	return args.Error(0)
}

func (m *MockCredentialStore) UpdateCredential(ctx context.Context, id uint, fields map[string]interface{}, tagIDs []uint) error {
	args := m.Called(ctx, id, fields, tagIDs)
	return args.Error(0)
}

func (m *MockCredentialStore) DeleteCredential(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCredentialStore) AddAllowedUser(ctx context.Context, credentialID, userID uint) error {
	args := m.Called(ctx, credentialID, userID)
	return args.Error(0)
}

func (m *MockCredentialStore) RemoveAllowedUser(ctx context.Context, credentialID, userID uint) error {
	args := m.Called(ctx, credentialID, userID)
	return args.Error(0)
}

// MockServiceStore implements store.ServiceStore for testing using testify/mock
type MockServiceStore struct {
	mock.Mock
}

func (m *MockServiceStore) ListServices(ctx context.Context, page store.Page) ([]model.Service, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]model.Service), args.Error(1)
}

func (m *MockServiceStore) FindService(ctx context.Context, id uint) (*model.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Service), args.Error(1)
}

func (m *MockServiceStore) CreateService(ctx context.Context, s *model.Service) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockServiceStore) RenameService(ctx context.Context, id uint, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockServiceStore) DeleteService(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTagStore implements store.TagStore for testing using testify/mock
type MockTagStore struct {
	mock.Mock
}

func (m *MockTagStore) ListTags(ctx context.Context, page store.Page) ([]model.Tag, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]model.Tag), args.Error(1)
}

func (m *MockTagStore) FindTag(ctx context.Context, id uint) (*model.Tag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tag), args.Error(1)
}

func (m *MockTagStore) FindTags(ctx context.Context, ids []uint) ([]model.Tag, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]model.Tag), args.Error(1)
}

func (m *MockTagStore) CreateTag(ctx context.Context, t *model.Tag) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTagStore) RenameTag(ctx context.Context, id uint, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockTagStore) DeleteTag(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAccessLogStore implements store.AccessLogStore for testing using testify/mock
type MockAccessLogStore struct {
	mock.Mock
}

func (m *MockAccessLogStore) CreateAccessLog(ctx context.Context, userID, credentialID uint) (*model.AccessLog, error) {
	args := m.Called(ctx, userID, credentialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessLog), args.Error(1)
}

func (m *MockAccessLogStore) ListAccessLogs(ctx context.Context, credentialID uint, page store.Page) ([]model.AccessLog, error) {
	args := m.Called(ctx, credentialID, page)
	return args.Get(0).([]model.AccessLog), args.Error(1)
}

// MockHealthStore implements store.HealthStore for testing using testify/mock
type MockHealthStore struct {
	mock.Mock
}

func (m *MockHealthStore) CheckConnectivity(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// recordingNotifier collects access events instead of dispatching them.
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
