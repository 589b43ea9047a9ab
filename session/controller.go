// Package session drives the client side of the authorization code
// flow: starting a login, completing the redirect callback, resuming a
// previous session on startup and tearing everything down on logout.
package session

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/pendinglogin"
	"github.com/jrsteele09/go-auth-client/pkce"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/tokenstore"
)

// Status describes where the session currently is in its lifecycle.
type Status string

// Session lifecycle statuses.
const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
	StatusError           Status = "error"
)

// State is the externally observable session state. User is set only
// when Status is StatusAuthenticated, Err only when it is StatusError.
type State struct {
	Status Status
	User   *identity.Identity
	Err    error
}

// Navigator abstracts the user agent. Navigate performs a full
// redirect, ReplaceURL rewrites the current address without reloading
// so one-time callback parameters cannot be replayed.
type Navigator interface {
	Navigate(targetURL string) error
	ReplaceURL(targetURL string) error
}

// Exchanger talks to the provider's token and logout endpoints.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code, verifier string) (*token.Response, error)
	Refresh(ctx context.Context, refreshToken string) (*token.Response, error)
	Revoke(ctx context.Context, accessToken string) error
}

// Validator checks an access token and returns the identity it proves.
type Validator interface {
	Validate(ctx context.Context, accessToken string) (*identity.Identity, error)
}

// Repos bundles the two stores the controller owns.
type Repos struct {
	PendingLogins pendinglogin.Repo
	Tokens        tokenstore.Repo
}

// Controller owns the session state machine. All methods are safe for
// concurrent use.
type Controller struct {
	cfg       config.ProviderConfig
	navigator Navigator
	exchanger Exchanger
	validator Validator
	repos     Repos

	generateParams func() (*pkce.Params, error)

	mu       sync.Mutex
	state    State
	listener func(State)
}

// ControllerOption defines a function type to modify the Controller
// instance.
type ControllerOption func(*Controller)

// WithStateListener registers a callback invoked on every state
// transition, outside the controller's lock.
func WithStateListener(fn func(State)) ControllerOption {
	return func(c *Controller) {
		c.listener = fn
	}
}

// WithPKCEParams overrides the PKCE parameter generator (primarily for
// testing).
func WithPKCEParams(fn func() (*pkce.Params, error)) ControllerOption {
	return func(c *Controller) {
		c.generateParams = fn
	}
}

// New creates a Controller in the unauthenticated state.
func New(cfg config.ProviderConfig, navigator Navigator, exchanger Exchanger, validator Validator, repos Repos, options ...ControllerOption) (*Controller, error) {
	if cfg == nil {
		return nil, errors.New("[session.New] nil config")
	}
	if navigator == nil {
		return nil, errors.New("[session.New] nil navigator")
	}
	if exchanger == nil {
		return nil, errors.New("[session.New] nil exchanger")
	}
	if validator == nil {
		return nil, errors.New("[session.New] nil validator")
	}
	if repos.PendingLogins == nil || repos.Tokens == nil {
		return nil, errors.New("[session.New] nil repos")
	}

	c := &Controller{
		cfg:            cfg,
		navigator:      navigator,
		exchanger:      exchanger,
		validator:      validator,
		repos:          repos,
		generateParams: pkce.GenerateParams,
		state:          State{Status: StatusUnauthenticated},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Login starts a fresh authorization code flow: generates PKCE
// parameters, records them for the upcoming callback and redirects the
// user agent to the provider's authorize endpoint.
func (c *Controller) Login(_ context.Context) error {
	params, err := c.generateParams()
	if err != nil {
		c.setState(State{Status: StatusError, Err: err})
		return errors.Wrap(err, "[Controller.Login]")
	}
	if err := c.repos.PendingLogins.Save(params); err != nil {
		c.setState(State{Status: StatusError, Err: err})
		return errors.Wrap(err, "[Controller.Login pendingLogins.Save]")
	}

	c.setState(State{Status: StatusAuthenticating})

	authorizeURL := c.authorizeURL(params)
	log.Debug().Str("state", params.State).Msg("redirecting to authorize endpoint")
	if err := c.navigator.Navigate(authorizeURL); err != nil {
		c.setState(State{Status: StatusError, Err: err})
		return errors.Wrap(err, "[Controller.Login navigator.Navigate]")
	}
	return nil
}

func (c *Controller) authorizeURL(params *pkce.Params) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.GetClientID())
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.cfg.GetRedirectURI())
	q.Set("scope", strings.Join(c.cfg.GetScopes(), " "))
	q.Set("response_mode", "query")
	q.Set("code_challenge", params.Challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", params.State)
	return c.cfg.GetAuthorizeEndpoint() + "?" + q.Encode()
}

// HandleStartup inspects the page URL the application was loaded with
// and dispatches to exactly one startup path: logout return, provider
// error, authorization callback or session resume.
func (c *Controller) HandleStartup(ctx context.Context, pageURL string) error {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return errors.Wrap(err, "[Controller.HandleStartup url.Parse]")
	}
	q := parsed.Query()

	switch {
	case q.Has("logout"):
		return c.handleLogoutReturn(parsed)
	case q.Get("error") != "":
		return c.handleProviderError(parsed)
	case q.Get("code") != "":
		return c.handleCallback(ctx, parsed)
	default:
		return c.resume(ctx)
	}
}

// handleLogoutReturn finishes a logout round trip. Both stores are
// cleared again because the pre-redirect state never survives a full
// page reload in all runtimes.
func (c *Controller) handleLogoutReturn(pageURL *url.URL) error {
	c.repos.PendingLogins.Clear()
	c.repos.Tokens.Clear()
	if err := c.navigator.ReplaceURL(stripParams(pageURL, "logout")); err != nil {
		return errors.Wrap(err, "[Controller.handleLogoutReturn navigator.ReplaceURL]")
	}
	c.setState(State{Status: StatusUnauthenticated})
	return nil
}

func (c *Controller) handleProviderError(pageURL *url.URL) error {
	q := pageURL.Query()
	providerErr := errors.Errorf("provider returned %q: %s", q.Get("error"), q.Get("error_description"))
	log.Debug().Str("error", q.Get("error")).Msg("authorize endpoint returned an error")

	c.repos.PendingLogins.Clear()
	if err := c.navigator.ReplaceURL(stripParams(pageURL, "error", "error_description", "state")); err != nil {
		return errors.Wrap(err, "[Controller.handleProviderError navigator.ReplaceURL]")
	}
	c.setState(State{Status: StatusError, Err: providerErr})
	return nil
}

// handleCallback completes the authorization code flow. The pending
// login is consumed before any network call so a forged or replayed
// callback can never reach the token endpoint.
func (c *Controller) handleCallback(ctx context.Context, pageURL *url.URL) error {
	q := pageURL.Query()

	verifier, err := c.repos.PendingLogins.TakeForCallback(q.Get("state"))
	if err != nil {
		c.setState(State{Status: StatusError, Err: err})
		return errors.Wrap(err, "[Controller.handleCallback]")
	}

	c.setState(State{Status: StatusAuthenticating})

	resp, err := c.exchanger.ExchangeCode(ctx, q.Get("code"), verifier)
	if err != nil {
		c.setState(State{Status: StatusError, Err: err})
		return errors.Wrap(err, "[Controller.handleCallback exchanger.ExchangeCode]")
	}
	if err := c.repos.Tokens.Set(resp.AccessToken, resp.RefreshToken); err != nil {
		c.setState(State{Status: StatusError, Err: err})
		return errors.Wrap(err, "[Controller.handleCallback tokens.Set]")
	}

	user, err := c.validator.Validate(ctx, resp.AccessToken)
	if err != nil {
		c.repos.Tokens.Clear()
		c.setState(State{Status: StatusError, Err: err})
		return errors.Wrap(err, "[Controller.handleCallback validator.Validate]")
	}

	if err := c.navigator.ReplaceURL(stripParams(pageURL, "code", "state", "session_state")); err != nil {
		return errors.Wrap(err, "[Controller.handleCallback navigator.ReplaceURL]")
	}
	c.setState(State{Status: StatusAuthenticated, User: user})
	return nil
}

// resume revives a stored session. A stale access token gets exactly
// one refresh attempt; any failure after that falls back silently to
// the unauthenticated state.
func (c *Controller) resume(ctx context.Context) error {
	pair, err := c.repos.Tokens.Get()
	if err != nil {
		c.setState(State{Status: StatusUnauthenticated})
		return nil
	}

	if user, err := c.validator.Validate(ctx, pair.AccessToken); err == nil {
		c.setState(State{Status: StatusAuthenticated, User: user})
		return nil
	}

	log.Debug().Msg("stored access token rejected, attempting refresh")
	resp, err := c.exchanger.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		c.repos.Tokens.Clear()
		c.setState(State{Status: StatusUnauthenticated})
		return nil
	}
	if err := c.repos.Tokens.Set(resp.AccessToken, resp.RefreshToken); err != nil {
		c.repos.Tokens.Clear()
		c.setState(State{Status: StatusUnauthenticated})
		return nil
	}

	user, err := c.validator.Validate(ctx, resp.AccessToken)
	if err != nil {
		c.repos.Tokens.Clear()
		c.setState(State{Status: StatusUnauthenticated})
		return nil
	}
	c.setState(State{Status: StatusAuthenticated, User: user})
	return nil
}

// Logout clears local state first so the session dies even when the
// provider is unreachable, then best-effort revokes the access token
// and redirects through the provider's logout endpoint. The provider
// sends the user back with the logout marker appended.
func (c *Controller) Logout(ctx context.Context) error {
	pair, _ := c.repos.Tokens.Get()

	c.repos.PendingLogins.Clear()
	c.repos.Tokens.Clear()
	c.setState(State{Status: StatusUnauthenticated})

	if pair != nil && pair.AccessToken != "" {
		if err := c.exchanger.Revoke(ctx, pair.AccessToken); err != nil {
			log.Debug().Err(err).Msg("token revocation failed")
		}
	}

	q := url.Values{}
	q.Set("post_logout_redirect_uri", c.cfg.GetRedirectURI()+"?logout=true")
	logoutURL := c.cfg.GetLogoutEndpoint() + "?" + q.Encode()
	if err := c.navigator.Navigate(logoutURL); err != nil {
		return errors.Wrap(err, "[Controller.Logout navigator.Navigate]")
	}
	return nil
}

// QuickLogout clears the session locally without contacting the
// provider or leaving the current page.
func (c *Controller) QuickLogout() {
	c.repos.PendingLogins.Clear()
	c.repos.Tokens.Clear()
	c.setState(State{Status: StatusUnauthenticated})
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	listener := c.listener
	c.mu.Unlock()

	if listener != nil {
		listener(state)
	}
}

// stripParams returns pageURL with the named query parameters removed.
func stripParams(pageURL *url.URL, keys ...string) string {
	clean := *pageURL
	q := clean.Query()
	for _, key := range keys {
		q.Del(key)
	}
	clean.RawQuery = q.Encode()
	return clean.String()
}
