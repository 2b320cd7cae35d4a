package endpoints

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/credvault/credvault/pkg/audit"
	"github.com/credvault/credvault/pkg/config"
	"github.com/credvault/credvault/pkg/envelope"
	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/server"
	"github.com/credvault/credvault/pkg/vault"
)

func TestMain(m *testing.M) {
	audit.SetEnabled(false)
	os.Exit(m.Run())
}

type testEnv struct {
	t        *testing.T
	srv      *server.Server
	handler  http.Handler
	envelope *envelope.Envelope
	notifier *recordingNotifier

	users    *MockUserStore
	creds    *MockCredentialStore
	services *MockServiceStore
	tags     *MockTagStore
	logs     *MockAccessLogStore
	health   *MockHealthStore

	alice, bob, admin *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env, err := envelope.NewEnvelope(envelope.DeriveKey("endpoint-tests"))
	require.NoError(t, err)

	e := &testEnv{
		t:        t,
		envelope: env,
		notifier: &recordingNotifier{},
		users:    &MockUserStore{},
		creds:    &MockCredentialStore{},
		services: &MockServiceStore{},
		tags:     &MockTagStore{},
		logs:     &MockAccessLogStore{},
		health:   &MockHealthStore{},
		alice:    &model.User{ID: 1, Username: "alice", Email: "alice@example.com", IsActive: true},
		bob:      &model.User{ID: 2, Username: "bob", IsActive: true},
		admin:    &model.User{ID: 3, Username: "admin", IsStaff: true, IsActive: true},
	}
	for _, u := range []*model.User{e.alice, e.bob, e.admin} {
		e.users.On("FindUserByID", mock.Anything, u.ID).Return(u, nil).Maybe()
	}

	cfg := config.Default()
	cfg.ThrottleRate = 0
	e.srv, err = server.NewServer(server.Deps{
		Config: cfg,
		Secret: "endpoint-tests",
		Stores: vault.Stores{
			Credentials: e.creds,
			Services:    e.services,
			Tags:        e.tags,
			Users:       e.users,
			AccessLogs:  e.logs,
		},
		Health:   e.health,
		Sealer:   env,
		Notifier: e.notifier,
	}, "127.0.0.1", "0")
	require.NoError(t, err)

	RegisterAll(e.srv)
	e.handler = e.srv.Handler()
	return e
}

func (e *testEnv) tokenFor(u *model.User) string {
	e.t.Helper()
	tok, err := e.srv.Tokens.Issue(u.ID)
	require.NoError(e.t, err)
	return tok.AccessToken
}

// do sends a request as user (nil for anonymous) and returns the recorder.
func (e *testEnv) do(user *model.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.tokenFor(user))
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seal(plain string) model.SecretEnvelope {
	e.t.Helper()
	sealed, err := e.envelope.Seal(plain)
	require.NoError(e.t, err)
	return sealed
}

func (e *testEnv) credential(id uint, owner *model.User, password string) *model.Credential {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Credential{
		ID:          id,
		Name:        "db",
		ServiceID:   10,
		Service:     model.Service{ID: 10, Name: "Postgres"},
		Password:    e.seal(password),
		CreatedByID: owner.ID,
		CreatedBy:   *owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}
