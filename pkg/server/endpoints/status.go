package endpoints

import (
	"context"
	"net/http"
	"time"

	"github.com/credvault/credvault/pkg/server"
	"github.com/credvault/credvault/pkg/server/store"
)

// Version is reported by the status endpoint. Set at build time with
// -ldflags "-X github.com/credvault/credvault/pkg/server/endpoints.Version=...".
var Version = "0.1.0"

// StatusResponse represents the response from GET /
type StatusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// RegisterStatusEndpoints registers the unauthenticated status page.
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/", handleStatus(s.HealthStore)).Methods("GET")
}

func handleStatus(health store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := health.CheckConnectivity(ctx); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, StatusResponse{
				Status:   "error",
				Version:  Version,
				Database: "unreachable",
			})
			return
		}
		respondWithJSON(w, http.StatusOK, StatusResponse{
			Status:   "ok",
			Version:  Version,
			Database: "ok",
		})
	}
}
