package oidcclient

import (
	"context"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-prompt-client/identity"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// LoginPopup runs the popup-style interactive flow: open the system browser
// and complete the authorization code exchange in-process on a loopback
// listener. Fails fast when the loopback port is unavailable so callers can
// fall back to the redirect flow.
func (c *OIDCClient) LoginPopup(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	return c.popupFlow(ctx, req)
}

// LoginRedirect starts the redirect-style interactive flow. The flow cannot
// complete in this process: pending state is persisted and the continuation
// is resolved by HandleRedirectPromise on the next start. Always returns
// identity.RedirectStartedErr on success.
func (c *OIDCClient) LoginRedirect(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	return c.redirectFlow(ctx, req)
}

func (c *OIDCClient) AcquireTokenPopup(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	return c.popupFlow(ctx, req)
}

func (c *OIDCClient) AcquireTokenRedirect(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	return c.redirectFlow(ctx, req)
}

func (c *OIDCClient) popupFlow(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	if c.provider == nil {
		return nil, identity.NotInitializedErr
	}

	state := uuid.New().String()
	nonce := uuid.New().String()
	verifier := oauth2.GenerateVerifier()

	listener, err := net.Listen("tcp", "127.0.0.1:"+c.config.RedirectPort)
	if err != nil {
		return nil, errors.Wrap(err, "[popupFlow] loopback listener unavailable")
	}

	callbacks := make(chan string, 1)
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case callbacks <- r.URL.String():
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>Signed in. You can close this window.</body></html>"))
		default:
			http.Error(w, "login already completed", http.StatusConflict)
		}
	})}
	go func() {
		_ = server.Serve(listener)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := c.authCodeURL(state, nonce, verifier, req)
	log.Info().Str("url", authURL).Msg("opening browser for sign-in")
	if err := c.openBrowser(authURL); err != nil {
		return nil, errors.Wrap(err, "[popupFlow] open browser")
	}

	var callback string
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "[popupFlow] waiting for callback")
	case callback = <-callbacks:
	}

	code, err := parseCallback(callback, state)
	if err != nil {
		return nil, errors.Wrap(err, "[popupFlow] callback")
	}
	return c.exchange(ctx, code, verifier, nonce)
}

func (c *OIDCClient) redirectFlow(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	if c.provider == nil {
		return nil, identity.NotInitializedErr
	}

	state := uuid.New().String()
	nonce := uuid.New().String()
	verifier := oauth2.GenerateVerifier()

	if err := c.cache.setPending(&pendingRedirect{
		State:        state,
		CodeVerifier: verifier,
		Nonce:        nonce,
		Scopes:       req.Scopes,
		CreatedAt:    c.nowTime(),
	}); err != nil {
		return nil, errors.Wrap(err, "[redirectFlow] persist pending state")
	}

	authURL := c.authCodeURL(state, nonce, verifier, req)
	log.Info().Str("url", authURL).Msg("redirect sign-in started; complete it in the browser")
	if err := c.openBrowser(authURL); err != nil {
		log.Warn().Err(err).Msg("could not open browser; visit the sign-in URL manually")
	}
	return nil, identity.RedirectStartedErr
}

func (c *OIDCClient) authCodeURL(state, nonce, verifier string, req identity.TokenRequest) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
	}
	if req.Hint == identity.HintSelectAccount {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "select_account"))
	}
	if req.Account != nil && req.Account.Username != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", req.Account.Username))
	}

	cfg := *c.oauth
	if len(req.Scopes) > 0 {
		cfg.Scopes = req.Scopes
	}
	return cfg.AuthCodeURL(state, opts...)
}

func launchBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
