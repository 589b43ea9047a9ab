// Package jwtcheck validates access tokens cryptographically: the
// token's signature is verified against the provider's published
// signing keys, then the audience, issuer, and expiry claims are
// checked. No per-request network round-trip to the provider is
// needed; the key set is cached and refreshed in the background.
package jwtcheck

import (
	"context"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/internal/config"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

const jwksMinRefreshInterval = 15 * time.Minute

// Validator verifies token signatures against a cached JWKS.
type Validator struct {
	issuer   string
	audience string
	jwksURL  string
	cache    *jwk.Cache
}

// NewValidator creates a Validator whose JWKS cache auto-refreshes for
// the lifetime of ctx.
func NewValidator(ctx context.Context, cfg config.ProviderConfig) (*Validator, error) {
	jwksURL := cfg.GetJWKSEndpoint()
	if jwksURL == "" {
		return nil, fmt.Errorf("[NewValidator] JWKS endpoint is required")
	}

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(jwksMinRefreshInterval)); err != nil {
		return nil, fmt.Errorf("[NewValidator] failed to register JWKS URL: %w", err)
	}

	return &Validator{
		issuer:   cfg.GetIssuer(),
		audience: cfg.GetAudience(),
		jwksURL:  jwksURL,
		cache:    cache,
	}, nil
}

// Validate verifies the token and returns the identity carried in its
// claims. Every failure — unknown key id, signature mismatch, wrong
// audience or issuer, expiry — collapses to ErrInvalidToken; the
// distinction only matters for logging.
func (v *Validator) Validate(ctx context.Context, rawToken string) (*identity.Identity, error) {
	claims := jwtlib.MapClaims{}

	parsed, err := jwtlib.ParseWithClaims(rawToken, claims,
		func(t *jwtlib.Token) (interface{}, error) { return v.verificationKey(ctx, t) },
		jwtlib.WithValidMethods([]string{"RS256"}),
		jwtlib.WithIssuer(v.issuer),
		jwtlib.WithAudience(v.audience),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		log.Debug().Err(err).Msg("token rejected")
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "token verification: %v", err)
	}

	return identityFromClaims(claims), nil
}

// verificationKey resolves the token's kid against the cached JWKS.
func (v *Validator) verificationKey(ctx context.Context, token *jwtlib.Token) (interface{}, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, fmt.Errorf("token header missing kid")
	}

	keySet, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	key, found := keySet.LookupKeyID(kid)
	if !found {
		return nil, fmt.Errorf("key ID %s not found in JWKS", kid)
	}

	var rawKey interface{}
	if err := key.Raw(&rawKey); err != nil {
		return nil, fmt.Errorf("failed to get raw key: %w", err)
	}
	return rawKey, nil
}

func identityFromClaims(claims jwtlib.MapClaims) *identity.Identity {
	sub, _ := claims["sub"].(string)
	givenName, _ := claims["given_name"].(string)
	familyName, _ := claims["family_name"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	if email == "" {
		// Access tokens for some tenants carry the address in
		// preferred_username instead of email.
		email, _ = claims["preferred_username"].(string)
	}

	return &identity.Identity{
		ID:          sub,
		GivenName:   givenName,
		FamilyName:  familyName,
		Email:       email,
		DisplayName: name,
	}
}
