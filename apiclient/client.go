// Package apiclient wraps arbitrary HTTP calls to the resource server
// with bearer authorization and transparent token refresh: try, detect
// 401/403, refresh once, retry once.
package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/tokenstore"
)

const defaultRequestTimeout = 15 * time.Second

// Refresher exchanges a refresh token for a fresh pair on the
// executor's behalf.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*token.Response, error)
}

// Client issues authorized requests against the resource server.
type Client struct {
	baseURL    string
	tokens     tokenstore.Repo
	refresher  Refresher
	httpClient *http.Client

	// Concurrent 401s coalesce into a single refresh so a rotated
	// refresh token is never consumed twice.
	refreshGroup singleflight.Group
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for resource calls
// (primarily for testing).
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New creates a Client. baseURL is the resource server root, e.g.
// "http://localhost:3001".
func New(baseURL string, tokens tokenstore.Repo, refresher Refresher, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		refresher:  refresher,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Do issues req with the current access token. On a 401 or 403 it
// refreshes the pair once and retries once, returning the retried
// response whatever its status. A failed refresh clears the token
// store and fails with ErrSessionExpired; callers must treat that as
// "force logout and show login". A missing token fails with ErrNoToken
// before any network call; callers route that to login, not to retry
// logic. Any other status passes through unmodified.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	pair, err := c.tokens.Get()
	if err != nil {
		return nil, err
	}

	resp, err := c.send(req, pair.AccessToken)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}
	drainAndClose(resp)

	log.Debug().Int("status", resp.StatusCode).Str("url", req.URL.String()).
		Msg("access token rejected, attempting refresh")

	accessToken, err := c.refreshAccessToken(req.Context(), pair.AccessToken)
	if err != nil {
		c.tokens.Clear()
		return nil, apperrors.Wrapf(apperrors.ErrSessionExpired, "refresh after %d: %v", resp.StatusCode, err)
	}

	return c.send(req, accessToken)
}

// refreshAccessToken coalesces concurrent refresh attempts. The stored
// pair is re-read inside the flight: if another call already rotated
// it, the rejected token differs from the stored one and no second
// provider call is made.
func (c *Client) refreshAccessToken(ctx context.Context, rejectedAccessToken string) (string, error) {
	result, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		pair, err := c.tokens.Get()
		if err != nil {
			return nil, err
		}
		if pair.AccessToken != rejectedAccessToken {
			return pair.AccessToken, nil
		}

		resp, err := c.refresher.Refresh(ctx, pair.RefreshToken)
		if err != nil {
			return nil, err
		}
		if err := c.tokens.Set(resp.AccessToken, resp.RefreshToken); err != nil {
			return nil, err
		}
		return resp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) send(req *http.Request, accessToken string) (*http.Response, error) {
	attempt := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("reusing request body: %w", err)
		}
		attempt.Body = body
	}
	attempt.Header.Set("Authorization", "Bearer "+accessToken)
	return c.httpClient.Do(attempt)
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
