package userinfo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-client/internal/config"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token/userinfo"
)

func newTestValidator(t *testing.T, handler http.HandlerFunc) *userinfo.Validator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("USERINFO_ENDPOINT", server.URL+"/me")
	t.Setenv("ISSUER", server.URL)

	return userinfo.NewValidator(config.Provider{}, userinfo.WithHTTPClient(server.Client()))
}

func TestValidator_Validate(t *testing.T) {
	t.Run("normalizes provider claims", func(t *testing.T) {
		var gotAuth string
		validator := newTestValidator(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "user-123",
				"givenName": "Ada",
				"surname": "Lovelace",
				"mail": "ada@example.com",
				"userPrincipalName": "ada@corp.example.com",
				"displayName": "Ada Lovelace"
			}`))
		})

		ident, err := validator.Validate(context.Background(), "AT1")
		require.NoError(t, err)
		require.Equal(t, "Bearer AT1", gotAuth)
		require.Equal(t, "user-123", ident.ID)
		require.Equal(t, "Ada", ident.GivenName)
		require.Equal(t, "Lovelace", ident.FamilyName)
		require.Equal(t, "ada@example.com", ident.Email)
		require.Equal(t, "Ada Lovelace", ident.DisplayName)
	})

	t.Run("email falls back to userPrincipalName", func(t *testing.T) {
		validator := newTestValidator(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"user-123","userPrincipalName":"ada@corp.example.com"}`))
		})

		ident, err := validator.Validate(context.Background(), "AT1")
		require.NoError(t, err)
		require.Equal(t, "ada@corp.example.com", ident.Email)
	})

	t.Run("non-2xx is InvalidToken", func(t *testing.T) {
		validator := newTestValidator(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"InvalidAuthenticationToken"}}`))
		})

		_, err := validator.Validate(context.Background(), "expired-token")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("empty token is InvalidToken without network call", func(t *testing.T) {
		calls := 0
		validator := newTestValidator(t, func(w http.ResponseWriter, _ *http.Request) {
			calls++
		})

		_, err := validator.Validate(context.Background(), "")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		require.Zero(t, calls)
	})
}
