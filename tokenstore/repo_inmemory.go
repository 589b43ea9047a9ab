package tokenstore

import (
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu   sync.RWMutex
	pair *Pair
}

// NewInMemoryRepo creates a new in-memory token repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

// Get returns a copy of the stored pair, or ErrNoToken when nothing is
// stored.
func (r *InMemoryRepo) Get() (*Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.pair == nil {
		return nil, apperrors.ErrNoToken
	}

	// Return a copy to prevent external modifications
	return &Pair{
		AccessToken:  r.pair.AccessToken,
		RefreshToken: r.pair.RefreshToken,
		IssuedAt:     r.pair.IssuedAt,
	}, nil
}

// Set replaces the stored pair. IssuedAt is stamped at storage time.
// An empty refresh token is accepted; an empty access token is not.
func (r *InMemoryRepo) Set(accessToken, refreshToken string) error {
	if accessToken == "" {
		return errors.New("access token cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pair = &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     NowTimeFunc(),
	}
	return nil
}

// Clear drops the stored pair.
func (r *InMemoryRepo) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pair = nil
}
