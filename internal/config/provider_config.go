package config

import (
	"fmt"
	"strings"
)

// ProviderConfig describes the external identity provider and how this
// application is registered with it. All endpoints can be overridden
// individually; the defaults are derived from the tenant authority.
type ProviderConfig interface {
	GetClientID() string
	GetTenantID() string
	GetRedirectURI() string
	GetScopes() []string
	GetAuthorizeEndpoint() string
	GetTokenEndpoint() string
	GetUserInfoEndpoint() string
	GetJWKSEndpoint() string
	GetLogoutEndpoint() string
	GetIssuer() string
	GetAudience() string
}

type Provider struct{}

var _ ProviderConfig = Provider{}

func (Provider) GetClientID() string {
	return GetEnv("CLIENT_ID", "")
}

func (Provider) GetTenantID() string {
	return GetEnv("TENANT_ID", "")
}

func (Provider) GetRedirectURI() string {
	return GetEnv("REDIRECT_URI", "http://localhost:3000")
}

func (Provider) GetScopes() []string {
	scope := GetEnv("SCOPE", "openid profile email User.Read")
	return strings.Fields(scope)
}

// authority is the base URL of the tenant's OAuth2 endpoints.
func (p Provider) authority() string {
	return GetEnv("AUTHORITY", fmt.Sprintf("https://login.microsoftonline.com/%s", p.GetTenantID()))
}

func (p Provider) GetAuthorizeEndpoint() string {
	return GetEnv("AUTHORIZE_ENDPOINT", p.authority()+"/oauth2/v2.0/authorize")
}

func (p Provider) GetTokenEndpoint() string {
	return GetEnv("TOKEN_ENDPOINT", p.authority()+"/oauth2/v2.0/token")
}

func (p Provider) GetUserInfoEndpoint() string {
	return GetEnv("USERINFO_ENDPOINT", "https://graph.microsoft.com/v1.0/me")
}

func (p Provider) GetJWKSEndpoint() string {
	return GetEnv("JWKS_ENDPOINT", p.authority()+"/discovery/v2.0/keys")
}

func (p Provider) GetLogoutEndpoint() string {
	return GetEnv("LOGOUT_ENDPOINT", p.authority()+"/oauth2/v2.0/logout")
}

func (p Provider) GetIssuer() string {
	return GetEnv("ISSUER", p.authority()+"/v2.0")
}

// GetAudience is the audience expected in access tokens presented to the
// resource server. Defaults to the client ID.
func (p Provider) GetAudience() string {
	return GetEnv("AUDIENCE", p.GetClientID())
}
