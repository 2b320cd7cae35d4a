package endpoints

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/credvault/credvault/pkg/config"
	"github.com/credvault/credvault/pkg/identity"
	"github.com/credvault/credvault/pkg/model"
	"github.com/credvault/credvault/pkg/server/store"
	"github.com/credvault/credvault/pkg/vault"
)

const maxBodyBytes = 1 << 20

func respondWithError(w http.ResponseWriter, code int, detail string) {
	respondWithJSON(w, code, map[string]string{"detail": detail})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// decodeJSON reads a JSON object body into dst. A malformed body becomes a
// ValidationError under "non_field_errors".
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		verr := &vault.ValidationError{}
		switch {
		case errors.Is(err, io.EOF):
			verr.Add("non_field_errors", "No data provided.")
		default:
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				verr.Add(typeErr.Field, "Incorrect type. Expected "+typeErr.Type.String()+".")
			} else {
				verr.Add("non_field_errors", "Malformed JSON body.")
			}
		}
		return verr
	}
	return nil
}

// pathID parses the {id} route variable. Anything outside the primary key
// range cannot name a row, so it is reported as not found.
func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 0)
	if err != nil || !store.ValidID(uint(id)) {
		return 0, store.ErrNotFound
	}
	return uint(id), nil
}

// pageFromQuery reads limit and offset, clamped to the configured bounds.
func pageFromQuery(r *http.Request, cfg *config.Config) store.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return store.Page{Limit: cfg.ClampLimit(limit), Offset: offset}
}

// caller returns the authenticated user set by the JWT middleware.
func caller(r *http.Request) (*identity.Identity, *model.User) {
	id, ok := identity.Get(r.Context())
	if !ok {
		return nil, nil
	}
	return id, id.User
}

func clientIP(id *identity.Identity) string {
	if id == nil || id.RemoteIP == nil {
		return ""
	}
	return id.RemoteIP.String()
}
