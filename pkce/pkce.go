// Package pkce generates the verifier/challenge/state triple for one
// OAuth2 authorization attempt (RFC 7636).
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const verifierByteLength = 32 // 256 bits of entropy, 43 chars once encoded

// Params holds the PKCE parameters for a single login attempt. A
// Challenge must never be reused across authorization requests unless
// it was regenerated from a fresh Verifier.
type Params struct {
	Verifier  string
	Challenge string
	State     string
}

// GenerateParams produces a fresh verifier, its S256 challenge and a
// per-attempt state nonce.
func GenerateParams() (*Params, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return nil, err
	}
	return &Params{
		Verifier:  verifier,
		Challenge: ChallengeFromVerifier(verifier),
		State:     GenerateState(),
	}, nil
}

// GenerateVerifier returns a cryptographically random code verifier:
// 32 random bytes, base64url encoded without padding.
func GenerateVerifier() (string, error) {
	bytes := make([]byte, verifierByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", apperrors.Wrapf(apperrors.ErrPKCEGeneration, "rand.Read: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ChallengeFromVerifier computes the S256 code challenge:
// base64url(SHA-256(verifier)) without padding. Deterministic.
func ChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateState returns an unguessable per-attempt nonce. The timestamp
// prefix gives best-effort uniqueness; unguessability comes from the
// uuid's random source. The state is a replay/CSRF check, not a
// security boundary on its own.
func GenerateState() string {
	return strconv.FormatInt(NowTimeFunc().UnixNano(), 36) + "-" + uuid.New().String()
}
