package endpoints

import (
	"github.com/credvault/credvault/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterAuthenticateEndpoints(srv)
	RegisterCredentialsEndpoints(srv)
	RegisterCatalogEndpoints(srv)
	RegisterWhoamiEndpoint(srv)
}
