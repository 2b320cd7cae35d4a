package endpoints

import (
	"net/http"

	"github.com/credvault/credvault/pkg/server"
)

// WhoamiResponse represents the response from the /whoami endpoint
type WhoamiResponse struct {
	UserView
	ClientIP string `json:"client_ip,omitempty"`
}

// RegisterWhoamiEndpoint registers the /whoami endpoint
func RegisterWhoamiEndpoint(s *server.Server) {
	whoamiRouter := s.Router.PathPrefix("/whoami").Subrouter()
	whoamiRouter.Use(s.JWTMiddleware.Middleware)

	whoamiRouter.HandleFunc("", handleWhoami()).Methods("GET")
}

func handleWhoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, user := caller(r)
		if user == nil {
			respondWithError(w, http.StatusUnauthorized, "Unable to determine identity")
			return
		}
		respondWithJSON(w, http.StatusOK, WhoamiResponse{
			UserView: userView(user),
			ClientIP: clientIP(id),
		})
	}
}
