// Package token talks to the provider's token endpoint: authorization
// code exchange, refresh grants, and best-effort revocation. It is pure
// request/response — callers own all storage mutation.
package token

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-auth-client/internal/config"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

const defaultRequestTimeout = 15 * time.Second

// Response is the token endpoint's success payload (RFC 6749 §5.1).
// RefreshToken may be absent per provider policy; callers must always
// persist whatever pair is returned because providers rotate refresh
// tokens.
type Response struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// providerError is the token endpoint's failure payload (RFC 6749 §5.2).
type providerError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Exchanger issues token grants for a public client (PKCE, no client
// secret).
type Exchanger struct {
	oauthConfig    *oauth2.Config
	tokenEndpoint  string
	logoutEndpoint string
	scope          string
	httpClient     *http.Client
}

// ExchangerOption defines a function type to modify the Exchanger instance.
type ExchangerOption func(*Exchanger)

// WithHTTPClient sets the HTTP client used for provider calls
// (primarily for testing).
func WithHTTPClient(client *http.Client) ExchangerOption {
	return func(e *Exchanger) {
		e.httpClient = client
	}
}

// NewExchanger creates an Exchanger from the provider configuration.
func NewExchanger(cfg config.ProviderConfig, options ...ExchangerOption) *Exchanger {
	e := &Exchanger{
		oauthConfig: &oauth2.Config{
			ClientID: cfg.GetClientID(),
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.GetAuthorizeEndpoint(),
				TokenURL: cfg.GetTokenEndpoint(),
			},
			RedirectURL: cfg.GetRedirectURI(),
			Scopes:      cfg.GetScopes(),
		},
		tokenEndpoint:  cfg.GetTokenEndpoint(),
		logoutEndpoint: cfg.GetLogoutEndpoint(),
		scope:          strings.Join(cfg.GetScopes(), " "),
		httpClient:     &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// ExchangeCode exchanges an authorization code plus its PKCE verifier
// for a token pair. Provider rejections surface the provider's
// error_description verbatim, wrapped in ErrTokenExchangeFailed.
func (e *Exchanger) ExchangeCode(ctx context.Context, code, verifier string) (*Response, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	tok, err := e.oauthConfig.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorDescription != "" {
			return nil, apperrors.Wrapf(apperrors.ErrTokenExchangeFailed, "%s", retrieveErr.ErrorDescription)
		}
		return nil, apperrors.Wrapf(apperrors.ErrTokenExchangeFailed, "token endpoint: %v", err)
	}

	return &Response{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}, nil
}

// Refresh exchanges a refresh token for a fresh pair. It fails
// immediately, without a network call, when refreshToken is empty.
// Successive calls with the same refresh token are not idempotent:
// providers may rotate the refresh token, so callers must persist the
// returned pair in full. This method never mutates storage; on
// ErrRefreshFailed the caller is responsible for invalidating the
// token store.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*Response, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.Wrapf(apperrors.ErrRefreshFailed, "no refresh token available")
	}

	form := url.Values{
		"client_id":     {e.oauthConfig.ClientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {e.scope},
	}

	resp, err := e.postForm(ctx, e.tokenEndpoint, form)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrRefreshFailed, "token endpoint: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrRefreshFailed, "reading response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var provErr providerError
		if err := json.Unmarshal(body, &provErr); err == nil && provErr.ErrorDescription != "" {
			return nil, apperrors.Wrapf(apperrors.ErrRefreshFailed, "%s", provErr.ErrorDescription)
		}
		return nil, apperrors.Wrapf(apperrors.ErrRefreshFailed, "token endpoint returned %d", resp.StatusCode)
	}

	var tokenResp Response
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrRefreshFailed, "decoding response: %v", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrRefreshFailed, "response missing access_token")
	}
	return &tokenResp, nil
}

// Revoke posts the access token to the provider's revocation-capable
// logout endpoint. Best effort: callers log and swallow failures.
func (e *Exchanger) Revoke(ctx context.Context, accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return nil
	}

	form := url.Values{
		"token":           {accessToken},
		"token_type_hint": {"access_token"},
	}

	resp, err := e.postForm(ctx, e.logoutEndpoint, form)
	if err != nil {
		return errors.Wrap(err, "[Exchanger.Revoke] postForm")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("[Exchanger.Revoke] provider returned %d", resp.StatusCode)
	}
	return nil
}

// postForm relies on the client's overall timeout rather than a
// per-request deadline so the body stays readable after return.
func (e *Exchanger) postForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.httpClient.Do(req)
}
