package errors

import (
	"errors"
	"fmt"
)

// Common error kinds for the OAuth2 client and resource server.
// Provider and network failures are converted to one of these at the
// boundary of the component that detected them.
var (
	// Login start errors
	ErrPKCEGeneration = errors.New("pkce generation failed")

	// Callback errors
	ErrStateMismatch       = errors.New("state mismatch")
	ErrMissingPendingLogin = errors.New("no pending login")
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// Token errors
	ErrInvalidToken  = errors.New("invalid token")
	ErrRefreshFailed = errors.New("token refresh failed")

	// Executor errors
	ErrNoToken        = errors.New("no access token available")
	ErrSessionExpired = errors.New("session expired")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
