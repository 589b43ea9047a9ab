// Package userinfo validates access tokens by introspecting them
// against the provider's user-info endpoint. Used by clients that
// trust the provider over the network; resource servers use the
// signature validator instead.
package userinfo

import (
	"context"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/internal/config"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

const defaultRequestTimeout = 15 * time.Second

// Validator introspects bearer tokens against the userinfo endpoint.
type Validator struct {
	provider   *oidc.Provider
	httpClient *http.Client
}

// ValidatorOption defines a function type to modify the Validator instance.
type ValidatorOption func(*Validator)

// WithHTTPClient sets the HTTP client used for userinfo calls
// (primarily for testing).
func WithHTTPClient(client *http.Client) ValidatorOption {
	return func(v *Validator) {
		v.httpClient = client
	}
}

// NewValidator creates a Validator for the configured userinfo
// endpoint. The endpoint is configured directly rather than through
// OIDC discovery: Graph-style userinfo endpoints live outside the
// issuer's discovery document.
func NewValidator(cfg config.ProviderConfig, options ...ValidatorOption) *Validator {
	providerConfig := oidc.ProviderConfig{
		IssuerURL:   cfg.GetIssuer(),
		UserInfoURL: cfg.GetUserInfoEndpoint(),
	}

	v := &Validator{
		provider:   providerConfig.NewProvider(context.Background()),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// Validate calls the userinfo endpoint with the bearer token and
// normalizes the returned claims. Any non-2xx response is
// ErrInvalidToken.
func (v *Validator) Validate(ctx context.Context, accessToken string) (*identity.Identity, error) {
	if accessToken == "" {
		return nil, apperrors.ErrInvalidToken
	}

	ctx = oidc.ClientContext(ctx, v.httpClient)
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	userInfo, err := v.provider.UserInfo(ctx, tokenSource)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "userinfo endpoint: %v", err)
	}

	var claims identity.UserInfoClaims
	if err := userInfo.Claims(&claims); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "decoding claims: %v", err)
	}

	return identity.FromUserInfoClaims(claims), nil
}
