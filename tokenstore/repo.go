// Package tokenstore owns the current access/refresh token pair. The
// pair survives across page loads within one client instance and is
// only ever mutated when a token grant result is applied or the
// session is torn down.
package tokenstore

import "time"

// Pair is the current token pair. RefreshToken may be empty: some
// providers do not issue one, and that is not an error.
type Pair struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
}

// Repo stores at most one token pair. Set replaces the whole pair
// atomically; readers never observe a half-updated pair.
type Repo interface {
	Get() (*Pair, error)
	Set(accessToken, refreshToken string) error
	Clear()
}
