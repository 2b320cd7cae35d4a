package endpoints

import (
	"context"
	"net/http"

	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/server"
	"github.com/credvault/credvault/pkg/server/store"
	"github.com/credvault/credvault/pkg/vault"
)

type catalogRequest struct {
	Name *string `json:"name"`
}

// catalog adapts the service and tag operations of the vault to one set of
// handlers.
type catalog struct {
	list   func(ctx context.Context, page store.Page) ([]CatalogView, error)
	get    func(ctx context.Context, id uint) (CatalogView, error)
	create func(ctx context.Context, user *model.User, name string) (CatalogView, error)
	rename func(ctx context.Context, user *model.User, id uint, name string) (CatalogView, error)
	delete func(ctx context.Context, user *model.User, id uint) error
}

func servicesCatalog(v *vault.Vault) catalog {
	return catalog{
		list: func(ctx context.Context, page store.Page) ([]CatalogView, error) {
			items, err := v.ListServices(ctx, page)
			views := make([]CatalogView, 0, len(items))
			for i := range items {
				views = append(views, serviceView(&items[i]))
			}
			return views, err
		},
		get: func(ctx context.Context, id uint) (CatalogView, error) {
			svc, err := v.GetService(ctx, id)
			if err != nil {
				return CatalogView{}, err
			}
			return serviceView(svc), nil
		},
		create: func(ctx context.Context, user *model.User, name string) (CatalogView, error) {
			svc, err := v.CreateService(ctx, user, name)
			if err != nil {
				return CatalogView{}, err
			}
			return serviceView(svc), nil
		},
		rename: func(ctx context.Context, user *model.User, id uint, name string) (CatalogView, error) {
			svc, err := v.RenameService(ctx, user, id, name)
			if err != nil {
				return CatalogView{}, err
			}
			return serviceView(svc), nil
		},
		delete: v.DeleteService,
	}
}

func tagsCatalog(v *vault.Vault) catalog {
	return catalog{
		list: func(ctx context.Context, page store.Page) ([]CatalogView, error) {
			items, err := v.ListTags(ctx, page)
			views := make([]CatalogView, 0, len(items))
			for i := range items {
				views = append(views, tagView(&items[i]))
			}
			return views, err
		},
		get: func(ctx context.Context, id uint) (CatalogView, error) {
			tag, err := v.GetTag(ctx, id)
			if err != nil {
				return CatalogView{}, err
			}
			return tagView(tag), nil
		},
		create: func(ctx context.Context, user *model.User, name string) (CatalogView, error) {
			tag, err := v.CreateTag(ctx, user, name)
			if err != nil {
				return CatalogView{}, err
			}
			return tagView(tag), nil
		},
		rename: func(ctx context.Context, user *model.User, id uint, name string) (CatalogView, error) {
			tag, err := v.RenameTag(ctx, user, id, name)
			if err != nil {
				return CatalogView{}, err
			}
			return tagView(tag), nil
		},
		delete: v.DeleteTag,
	}
}

// RegisterCatalogEndpoints registers /services and /tags.
func RegisterCatalogEndpoints(s *server.Server) {
	for prefix, c := range map[string]catalog{
		"/services": servicesCatalog(s.Vault),
		"/tags":     tagsCatalog(s.Vault),
	} {
		router := s.Router.PathPrefix(prefix).Subrouter()
		router.Use(s.JWTMiddleware.Middleware)

		router.HandleFunc("", handleCatalogList(s, c)).Methods("GET")
		router.HandleFunc("", handleCatalogCreate(c)).Methods("POST")
		router.HandleFunc("/{id}", handleCatalogGet(c)).Methods("GET")
		router.HandleFunc("/{id}", handleCatalogRename(c)).Methods("PUT")
		router.HandleFunc("/{id}", handleCatalogDelete(c)).Methods("DELETE")
	}
}

func handleCatalogList(s *server.Server, c catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := c.list(r.Context(), pageFromQuery(r, s.Config()))
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, views)
	}
}

func handleCatalogGet(c catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		view, err := c.get(r.Context(), id)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, view)
	}
}

func decodeName(w http.ResponseWriter, r *http.Request) (string, error) {
	var req catalogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return "", err
	}
	if req.Name == nil {
		return "", nil
	}
	return *req.Name, nil
}

func handleCatalogCreate(c catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, user := caller(r)
		name, err := decodeName(w, r)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		view, err := c.create(r.Context(), user, name)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, view)
	}
}

func handleCatalogRename(c catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, user := caller(r)
		id, err := pathID(r)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		name, err := decodeName(w, r)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		view, err := c.rename(r.Context(), user, id, name)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, view)
	}
}

func handleCatalogDelete(c catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, user := caller(r)
		id, err := pathID(r)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		if err := c.delete(r.Context(), user, id); err != nil {
			respondWithErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
