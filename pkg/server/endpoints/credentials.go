package endpoints

import (
	"net/http"

	"github.com/credvault/credvault/pkg/audit"
	"github.com/credvault/credvault/pkg/server"
	"github.com/credvault/credvault/pkg/server/store"
	"github.com/credvault/credvault/pkg/vault"
)

// credentialRequest is the create/update body. Pointer fields tell an
// absent key from an empty one.
type credentialRequest struct {
	Name      *string `json:"name"`
	Service   *uint   `json:"service"`
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	PublicKey *string `json:"public_key"`
	Tags      *[]uint `json:"tags"`
}

type grantRequest struct {
	UserID *uint `json:"user_id"`
}

func RegisterCredentialsEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/credentials").Subrouter()
	router.Use(s.JWTMiddleware.Middleware)

	router.HandleFunc("", handleListCredentials(s)).Methods("GET")
	router.HandleFunc("/create", handleCreateCredential(s)).Methods("POST")
	router.HandleFunc("/{id}", handleGetCredential(s)).Methods("GET")
	router.HandleFunc("/{id}/update", handleUpdateCredential(s)).Methods("PUT", "PATCH")
	router.HandleFunc("/{id}", handleDeleteCredential(s)).Methods("DELETE")
	router.HandleFunc("/{id}/grant-access", handleGrantAccess(s, false)).Methods("POST")
	router.HandleFunc("/{id}/revoke-access", handleGrantAccess(s, true)).Methods("POST")
	router.HandleFunc("/{id}/access-logs", handleAccessLogs(s)).Methods("GET")
}

func handleListCredentials(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, user := caller(r)
		q := r.URL.Query()
		filter := store.CredentialFilter{
			Service: q.Get("service"),
			Tag:     q.Get("tag"),
			Page:    pageFromQuery(r, s.Config()),
		}

		creds, err := s.Vault.List(r.Context(), user, filter)

		event := audit.ListEvent{Username: id.Username(), ClientIP: clientIP(id), Count: len(creds), Success: err == nil}
		if err != nil {
			event.ErrorMessage = err.Error()
		}
		audit.Log(event)

		if err != nil {
			respondWithErr(w, r, err)
			return
		}

		views := make([]CredentialView, 0, len(creds))
		for i := range creds {
			views = append(views, credentialView(&creds[i]))
		}
		respondWithJSON(w, http.StatusOK, views)
	}
}

func handleGetCredential(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, user := caller(r)
		credID, err := pathID(r)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}

		revealed, err := s.Vault.Get(r.Context(), user, credID)

		event := audit.FetchEvent{Username: id.Username(), ClientIP: clientIP(id), CredentialID: credID, Success: err == nil}
		if err != nil {
			event.ErrorMessage = err.Error()
		}
		audit.Log(event)

		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, credentialView(revealed))
	}
}

func logUpdate(r *http.Request, op string, credID uint, err error) {
	id, _ := caller(r)
	event := audit.UpdateEvent{
		Username:     id.Username(),
		ClientIP:     clientIP(id),
		CredentialID: credID,
		Operation:    op,
		Success:      err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
}

func handleCreateCredential(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, user := caller(r)
		var req credentialRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithErr(w, r, err)
			return
		}

		in := vault.CreateInput{
			Username:  req.Username,
			PublicKey: req.PublicKey,
		}
		if req.Name != nil {
			in.Name = *req.Name
		}
		if req.Service != nil {
			in.ServiceID = *req.Service
		}
		if req.Password != nil {
			in.Password = *req.Password
		}
		if req.Tags != nil {
			in.TagIDs = *req.Tags
		}

		revealed, err := s.Vault.Create(r.Context(), user, in)
		var credID uint
		if revealed != nil {
			credID = revealed.Credential.ID
		}
		logUpdate(r, "create", credID, err)

		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, credentialView(revealed))
	}
}

func handleUpdateCredential(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, user := caller(r)
		credID, err := pathID(r)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}

		var req credentialRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithErr(w, r, err)
			return
		}

		revealed, err := s.Vault.Update(r.Context(), user, credID, vault.UpdateInput{
			Name:      req.Name,
			ServiceID: req.Service,
			Username:  req.Username,
			Password:  req.Password,
			PublicKey: req.PublicKey,
			TagIDs:    req.Tags,
			Partial:   r.Method == http.MethodPatch,
		})
		logUpdate(r, "update", credID, err)

		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, credentialView(revealed))
	}
}

func handleDeleteCredential(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, user := caller(r)
		credID, err := pathID(r)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}

		err = s.Vault.Delete(r.Context(), user, credID)
		logUpdate(r, "delete", credID, err)

		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleGrantAccess(s *server.Server, revoke bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, user := caller(r)
		credID, err := pathID(r)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}

		var req grantRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithErr(w, r, err)
			return
		}
		if req.UserID == nil {
			verr := &vault.ValidationError{}
			verr.Add("user_id", "This field is required.")
			respondWithErr(w, r, verr)
			return
		}

		if revoke {
			err = s.Vault.Revoke(r.Context(), user, credID, *req.UserID)
		} else {
			err = s.Vault.Grant(r.Context(), user, credID, *req.UserID)
		}

		event := audit.GrantEvent{
			Username:     id.Username(),
			ClientIP:     clientIP(id),
			CredentialID: credID,
			TargetUserID: *req.UserID,
			Revoke:       revoke,
			Success:      err == nil,
		}
		if err != nil {
			event.ErrorMessage = err.Error()
		}
		audit.Log(event)

		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleAccessLogs(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, user := caller(r)
		credID, err := pathID(r)
		if err != nil {
			respondWithErr(w, r, err)
			return
		}

		logs, err := s.Vault.AccessHistory(r.Context(), user, credID, pageFromQuery(r, s.Config()))
		if err != nil {
			respondWithErr(w, r, err)
			return
		}

		views := make([]AccessLogView, 0, len(logs))
		for i := range logs {
			views = append(views, accessLogView(&logs[i]))
		}
		respondWithJSON(w, http.StatusOK, views)
	}
}
