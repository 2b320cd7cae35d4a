package endpoints

import (
	"net/http"

	"github.com/credvault/credvault/pkg/audit"
	"github.com/credvault/credvault/pkg/authn"
	"github.com/credvault/credvault/pkg/server"
	"github.com/credvault/credvault/pkg/server/middleware"
	"github.com/credvault/credvault/pkg/vault"
)

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterAuthenticateEndpoints registers account creation and login.
// Neither requires a token.
func RegisterAuthenticateEndpoints(s *server.Server) {
	s.Router.HandleFunc("/register", handleRegister(s)).Methods("POST")
	s.Router.HandleFunc("/login", handleLogin(s)).Methods("POST")
}

func requestIP(s *server.Server, r *http.Request) string {
	return middleware.ClientIP(r, func(ip string) bool {
		return s.Config().IsTrustedProxy(ip)
	})
}

func handleRegister(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithErr(w, r, err)
			return
		}

		_, tok, err := s.Authn.Register(r.Context(), authn.Registration{
			Username:  req.Username,
			Email:     req.Email,
			Password1: req.Password1,
			Password2: req.Password2,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})

		event := audit.RegisterEvent{Username: req.Username, ClientIP: requestIP(s, r), Success: err == nil}
		if err != nil {
			event.ErrorMessage = err.Error()
		}
		audit.Log(event)

		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, TokenResponse{Token: *tok})
	}
}

func handleLogin(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithErr(w, r, err)
			return
		}

		verr := &vault.ValidationError{}
		if req.Username == "" {
			verr.Add("username", "This field is required.")
		}
		if req.Password == "" {
			verr.Add("password", "This field is required.")
		}
		if len(verr.Fields) > 0 {
			respondWithErr(w, r, verr)
			return
		}

		_, tok, err := s.Authn.Login(r.Context(), req.Username, req.Password)

		event := audit.AuthenticateEvent{Username: req.Username, ClientIP: requestIP(s, r), Success: err == nil}
		if err != nil {
			event.ErrorMessage = err.Error()
		}
		audit.Log(event)

		if err != nil {
			respondWithErr(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, TokenResponse{Token: *tok})
	}
}

