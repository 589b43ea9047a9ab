package pendinglogin

import (
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/pkce"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu    sync.Mutex
	login *PendingLogin
}

// NewInMemoryRepo creates a new in-memory pending login repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

// Save stores the verifier and state for the current login attempt,
// replacing any previous attempt.
func (r *InMemoryRepo) Save(params *pkce.Params) error {
	if params == nil {
		return errors.New("params cannot be nil")
	}
	if params.Verifier == "" || params.State == "" {
		return errors.New("verifier and state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.login = &PendingLogin{
		Verifier:  params.Verifier,
		State:     params.State,
		CreatedAt: NowTimeFunc(),
	}
	return nil
}

// TakeForCallback consumes the pending login and returns its verifier
// when receivedState matches the stored state. The entry is released on
// both the success and the failure path; a second call always fails
// with ErrMissingPendingLogin.
func (r *InMemoryRepo) TakeForCallback(receivedState string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	login := r.login
	r.login = nil

	if login == nil {
		return "", apperrors.ErrMissingPendingLogin
	}
	if receivedState != login.State {
		return "", apperrors.ErrStateMismatch
	}
	return login.Verifier, nil
}

// Clear drops any pending login without consuming it.
func (r *InMemoryRepo) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.login = nil
}
