package token_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-client/internal/config"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
)

func newTestExchanger(t *testing.T, handler http.HandlerFunc) *token.Exchanger {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("CLIENT_ID", "test-client")
	t.Setenv("SCOPE", "openid profile email User.Read")
	t.Setenv("TOKEN_ENDPOINT", server.URL+"/token")
	t.Setenv("LOGOUT_ENDPOINT", server.URL+"/logout")
	t.Setenv("REDIRECT_URI", "http://localhost:3000")

	return token.NewExchanger(config.Provider{}, token.WithHTTPClient(server.Client()))
}

func TestExchanger_ExchangeCode(t *testing.T) {
	t.Run("sends PKCE grant without client secret", func(t *testing.T) {
		var gotForm map[string]string
		exchanger := newTestExchanger(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotForm = map[string]string{
				"grant_type":    r.FormValue("grant_type"),
				"code":          r.FormValue("code"),
				"code_verifier": r.FormValue("code_verifier"),
				"client_id":     r.FormValue("client_id"),
				"client_secret": r.FormValue("client_secret"),
				"redirect_uri":  r.FormValue("redirect_uri"),
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"AT1","refresh_token":"RT1","token_type":"Bearer"}`))
		})

		resp, err := exchanger.ExchangeCode(context.Background(), "abc123", "verifier-1")
		require.NoError(t, err)
		require.Equal(t, "AT1", resp.AccessToken)
		require.Equal(t, "RT1", resp.RefreshToken)

		require.Equal(t, "authorization_code", gotForm["grant_type"])
		require.Equal(t, "abc123", gotForm["code"])
		require.Equal(t, "verifier-1", gotForm["code_verifier"])
		require.Equal(t, "test-client", gotForm["client_id"])
		require.Equal(t, "http://localhost:3000", gotForm["redirect_uri"])
		require.Empty(t, gotForm["client_secret"])
	})

	t.Run("tolerates missing refresh token", func(t *testing.T) {
		exchanger := newTestExchanger(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"AT1","token_type":"Bearer"}`))
		})

		resp, err := exchanger.ExchangeCode(context.Background(), "abc123", "verifier-1")
		require.NoError(t, err)
		require.Empty(t, resp.RefreshToken)
	})

	t.Run("surfaces provider error description verbatim", func(t *testing.T) {
		exchanger := newTestExchanger(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"AADSTS70008: code expired"}`))
		})

		_, err := exchanger.ExchangeCode(context.Background(), "abc123", "verifier-1")
		require.ErrorIs(t, err, apperrors.ErrTokenExchangeFailed)
		require.Contains(t, err.Error(), "AADSTS70008: code expired")
	})
}

func TestExchanger_Refresh(t *testing.T) {
	t.Run("sends refresh grant with scope", func(t *testing.T) {
		var gotForm map[string]string
		exchanger := newTestExchanger(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotForm = map[string]string{
				"grant_type":    r.FormValue("grant_type"),
				"refresh_token": r.FormValue("refresh_token"),
				"scope":         r.FormValue("scope"),
				"client_id":     r.FormValue("client_id"),
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"AT2","refresh_token":"RT2"}`))
		})

		resp, err := exchanger.Refresh(context.Background(), "RT1")
		require.NoError(t, err)
		require.Equal(t, "AT2", resp.AccessToken)
		require.Equal(t, "RT2", resp.RefreshToken, "rotated refresh token must be returned")

		require.Equal(t, "refresh_token", gotForm["grant_type"])
		require.Equal(t, "RT1", gotForm["refresh_token"])
		require.Equal(t, "openid profile email User.Read", gotForm["scope"])
		require.Equal(t, "test-client", gotForm["client_id"])
	})

	t.Run("empty refresh token fails without network call", func(t *testing.T) {
		calls := 0
		exchanger := newTestExchanger(t, func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := exchanger.Refresh(context.Background(), "  ")
		require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
		require.Zero(t, calls)
	})

	t.Run("provider rejection", func(t *testing.T) {
		exchanger := newTestExchanger(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
		})

		_, err := exchanger.Refresh(context.Background(), "RT1")
		require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
		require.Contains(t, err.Error(), "refresh token revoked")
	})

	t.Run("response missing access token", func(t *testing.T) {
		exchanger := newTestExchanger(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
		})

		_, err := exchanger.Refresh(context.Background(), "RT1")
		require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	})
}

func TestExchanger_Revoke(t *testing.T) {
	t.Run("posts token with type hint", func(t *testing.T) {
		var gotToken, gotHint string
		exchanger := newTestExchanger(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotToken = r.FormValue("token")
			gotHint = r.FormValue("token_type_hint")
			w.WriteHeader(http.StatusOK)
		})

		require.NoError(t, exchanger.Revoke(context.Background(), "AT1"))
		require.Equal(t, "AT1", gotToken)
		require.Equal(t, "access_token", gotHint)
	})

	t.Run("empty token is a no-op", func(t *testing.T) {
		calls := 0
		exchanger := newTestExchanger(t, func(w http.ResponseWriter, _ *http.Request) {
			calls++
		})

		require.NoError(t, exchanger.Revoke(context.Background(), ""))
		require.Zero(t, calls)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		exchanger := newTestExchanger(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		require.Error(t, exchanger.Revoke(context.Background(), "AT1"))
	})
}
