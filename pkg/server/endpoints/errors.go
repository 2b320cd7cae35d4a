package endpoints

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/credvault/credvault/pkg/authn"
	"github.com/credvault/credvault/pkg/server/store"
	"github.com/credvault/credvault/pkg/vault"
)

// respondWithErr maps a domain error to its HTTP response. Unexpected
// errors are logged and reported without detail.
func respondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *vault.ValidationError
		rerr *vault.ReferenceError
		cerr *vault.CryptoError
	)

	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": verr.Fields})
	case errors.As(err, &rerr):
		respondWithError(w, http.StatusNotFound, rerr.Error())
	case errors.Is(err, vault.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, store.ErrUsernameTaken):
		respondWithError(w, http.StatusForbidden, "A user with that username already exists.")
	case errors.Is(err, authn.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found.")
	case errors.As(err, &cerr):
		slog.ErrorContext(r.Context(), "stored secret could not be decrypted",
			"credential_id", cerr.CredentialID, "method", r.Method, "path", r.URL.Path)
		respondWithError(w, http.StatusInternalServerError, "Internal server error.")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error.")
	}
}
