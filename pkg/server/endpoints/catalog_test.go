package endpoints

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/server/store"
)

func TestServicesEndpoints(t *testing.T) {
	e := newTestEnv(t)
	e.services.On("ListServices", mock.Anything, store.Page{Limit: 100}).
		Return([]model.Service{{ID: 10, Name: "Postgres", CreatedByID: e.alice.ID}}, nil)
	e.services.On("FindService", mock.Anything, uint(10)).
		Return(&model.Service{ID: 10, Name: "Postgres", CreatedByID: e.alice.ID}, nil)
	e.services.On("FindService", mock.Anything, uint(11)).Return(nil, store.ErrServiceNotFound)

	t.Run("list", func(t *testing.T) {
		w := e.do(e.bob, http.MethodGet, "/services/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"id":10,"name":"Postgres","created_by":1}]`, w.Body.String())
	})

	t.Run("get", func(t *testing.T) {
		w := e.do(e.bob, http.MethodGet, "/services/10/", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = e.do(e.bob, http.MethodGet, "/services/11/", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("create", func(t *testing.T) {
		e.services.On("CreateService", mock.Anything, mock.MatchedBy(func(s *model.Service) bool {
			return s.Name == "Redis" && s.CreatedByID == e.bob.ID
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*model.Service).ID = 12
		}).Return(nil).Once()

		w := e.do(e.bob, http.MethodPost, "/services/", map[string]string{"name": "Redis"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.JSONEq(t, `{"id":12,"name":"Redis","created_by":2}`, w.Body.String())

		w = e.do(e.bob, http.MethodPost, "/services/", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rename by owner or staff only", func(t *testing.T) {
		e.services.On("RenameService", mock.Anything, uint(10), "PG").Return(nil)

		w := e.do(e.bob, http.MethodPut, "/services/10/", map[string]string{"name": "PG"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = e.do(e.alice, http.MethodPut, "/services/10/", map[string]string{"name": "PG"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":10,"name":"PG","created_by":1}`, w.Body.String())

		w = e.do(e.admin, http.MethodPut, "/services/10/", map[string]string{"name": "PG"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		e.services.On("DeleteService", mock.Anything, uint(10)).Return(nil).Once()

		w := e.do(e.bob, http.MethodDelete, "/services/10/", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = e.do(e.alice, http.MethodDelete, "/services/10/", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestTagsEndpoints(t *testing.T) {
	e := newTestEnv(t)
	e.tags.On("ListTags", mock.Anything, store.Page{Limit: 2, Offset: 1}).
		Return([]model.Tag{{ID: 4, Name: "prod", CreatedByID: e.bob.ID}}, nil)
	e.tags.On("FindTag", mock.Anything, uint(4)).
		Return(&model.Tag{ID: 4, Name: "prod", CreatedByID: e.bob.ID}, nil)
	e.tags.On("DeleteTag", mock.Anything, uint(4)).Return(nil)

	w := e.do(e.alice, http.MethodGet, "/tags?limit=2&offset=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":4,"name":"prod","created_by":2}]`, w.Body.String())

	w = e.do(e.alice, http.MethodDelete, "/tags/4/", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(e.admin, http.MethodDelete, "/tags/4/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	e.tags.AssertNumberOfCalls(t, "DeleteTag", 1)
}
