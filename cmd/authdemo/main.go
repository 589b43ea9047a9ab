// Command authdemo walks the whole session lifecycle against a real
// identity provider: opens the system browser for login, completes the
// callback on a loopback server, calls the protected API and logs out.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/pendinglogin"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/token/userinfo"
	"github.com/jrsteele09/go-auth-client/tokenstore"
)

const loginTimeout = 2 * time.Minute

// browserNavigator sends the user agent to the system browser. The
// demo has no address bar, so ReplaceURL only logs the rewrite.
type browserNavigator struct{}

func (browserNavigator) Navigate(targetURL string) error {
	return browser.OpenURL(targetURL)
}

func (browserNavigator) ReplaceURL(targetURL string) error {
	log.Printf("address rewritten to %s\n", targetURL)
	return nil
}

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatalf("authdemo: %s\n", err)
	}
}

func run() error {
	cfg := config.New()
	ctx := context.Background()

	redirects, stopCallbackServer, err := startCallbackServer(cfg.GetRedirectURI())
	if err != nil {
		return err
	}
	defer stopCallbackServer()

	exchanger := token.NewExchanger(cfg)
	validator := userinfo.NewValidator(cfg)
	repos := session.Repos{
		PendingLogins: pendinglogin.NewInMemoryRepo(),
		Tokens:        tokenstore.NewInMemoryRepo(),
	}

	controller, err := session.New(cfg, browserNavigator{}, exchanger, validator, repos,
		session.WithStateListener(func(s session.State) {
			log.Printf("session state: %s\n", s.Status)
		}))
	if err != nil {
		return err
	}

	log.Println("opening browser for login")
	if err := controller.Login(ctx); err != nil {
		return err
	}

	callbackURL, err := waitForRedirect(redirects)
	if err != nil {
		return err
	}
	if err := controller.HandleStartup(ctx, callbackURL); err != nil {
		return err
	}

	state := controller.State()
	if state.Status != session.StatusAuthenticated {
		return fmt.Errorf("login did not complete: %v", state.Err)
	}
	fmt.Printf("\nLogged in as %s <%s>\n", state.User.DisplayName, state.User.Email)

	api := apiclient.New(resourceServerURL(cfg), repos.Tokens, exchanger)
	protected, err := api.CallProtected(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Protected endpoint says: %s\n", protected.Message)
	fmt.Printf("Data: %s\n\n", protected.Data)

	log.Println("logging out")
	if err := controller.Logout(ctx); err != nil {
		return err
	}
	logoutURL, err := waitForRedirect(redirects)
	if err != nil {
		return err
	}
	if err := controller.HandleStartup(ctx, logoutURL); err != nil {
		return err
	}
	fmt.Printf("Session is now %s\n", controller.State().Status)
	return nil
}

// startCallbackServer listens on the redirect URI's host so provider
// redirects land back in this process. Each redirect's full URL is
// delivered on the returned channel.
func startCallbackServer(redirectURI string) (<-chan string, func(), error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redirect URI: %w", err)
	}

	redirects := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case redirects <- (&url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: r.URL.Path, RawQuery: r.URL.RawQuery}).String():
		default:
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>You can return to the terminal.</p></body></html>"))
	})

	srv := &http.Server{Addr: parsed.Host, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("callback server: %s\n", err)
		}
	}()

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return redirects, stop, nil
}

func waitForRedirect(redirects <-chan string) (string, error) {
	select {
	case redirectURL := <-redirects:
		return redirectURL, nil
	case <-time.After(loginTimeout):
		return "", errors.New("timed out waiting for the browser redirect")
	}
}

func resourceServerURL(cfg config.Config) string {
	return config.GetEnv("RESOURCE_SERVER_URL", "http://localhost"+cfg.GetPort())
}
