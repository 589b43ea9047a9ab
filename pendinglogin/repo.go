// Package pendinglogin holds the PKCE verifier and state parameter for
// the single login attempt in flight, across the redirect to the
// provider and back.
package pendinglogin

import (
	"time"

	"github.com/jrsteele09/go-auth-client/pkce"
)

// PendingLogin is the stored half of one login attempt.
type PendingLogin struct {
	Verifier  string
	State     string
	CreatedAt time.Time
}

// Repo stores at most one pending login. Save overwrites any previous
// attempt. TakeForCallback consumes the entry whether or not the state
// matches, so a second callback can never replay it.
type Repo interface {
	Save(params *pkce.Params) error
	TakeForCallback(receivedState string) (verifier string, err error)
	Clear()
}
