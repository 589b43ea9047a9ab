package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-client/identity"
)

// NowTimeFunc Injectable time function for testing
var NowTimeFunc = time.Now

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type protectedResponse struct {
	Message string             `json:"message"`
	User    *identity.Identity `json:"user"`
	Data    string             `json:"data"`
}

type validateResponse struct {
	Valid   bool               `json:"valid"`
	User    *identity.Identity `json:"user"`
	Message string             `json:"message"`
}

// HealthHandler reports liveness. No authentication required.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:    "OK",
			Timestamp: NowTimeFunc().UTC().Format(time.RFC3339),
		})
	}
}

// ProtectedHandler serves data only reachable with a valid access
// token.
func (s *Server) ProtectedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := IdentityFromContext(r.Context())
		writeJSON(w, http.StatusOK, protectedResponse{
			Message: "This is protected data",
			User:    user,
			Data:    "Secret information only available to authenticated users",
		})
	}
}

// ValidateHandler lets a client confirm its stored token is still
// accepted without fetching any data.
func (s *Server) ValidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := IdentityFromContext(r.Context())
		writeJSON(w, http.StatusOK, validateResponse{
			Valid:   true,
			User:    user,
			Message: "Token is valid",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
