// Package oidcclient implements the identity.Client capability against a
// standard OIDC provider. Interactive acquisition opens the system browser;
// the popup-style flow completes in-process on a loopback listener, while
// the redirect-style flow persists its state and is resolved by
// HandleRedirectPromise after a process restart.
package oidcclient

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-prompt-client/accounts"
	"github.com/jrsteele09/go-prompt-client/identity"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const pendingRedirectTimeout = 15 * time.Minute

// Config holds the immutable identity provider settings supplied at startup.
type Config struct {
	IssuerURL    string
	ClientID     string
	RedirectPort string
	Scopes       []string
	CacheDir     string
}

var _ identity.Client = (*OIDCClient)(nil)

// OIDCClient is the concrete identity client. It must be initialized once
// before any other operation.
type OIDCClient struct {
	config   Config
	provider *oidc.Provider
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	cache    *cache

	openBrowser func(url string) error // injectable for testing
	nowTime     func() time.Time
}

// Option modifies an OIDCClient instance.
type Option func(*OIDCClient)

// WithBrowserOpener sets the function used to launch the system browser
// (primarily for testing).
func WithBrowserOpener(open func(url string) error) Option {
	return func(c *OIDCClient) {
		c.openBrowser = open
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *OIDCClient) {
		c.nowTime = nowFunc
	}
}

func New(config Config, options ...Option) (*OIDCClient, error) {
	if config.IssuerURL == "" {
		return nil, errors.New("[oidcclient.New] IssuerURL is required")
	}
	if config.ClientID == "" {
		return nil, errors.New("[oidcclient.New] ClientID is required")
	}
	if config.CacheDir == "" {
		return nil, errors.New("[oidcclient.New] CacheDir is required")
	}

	client := &OIDCClient{
		config:      config,
		cache:       newCache(config.CacheDir),
		openBrowser: launchBrowser,
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// Initialize performs OIDC discovery and loads the session cache. It must
// succeed before any login or token operation.
func (c *OIDCClient) Initialize(ctx context.Context) error {
	provider, err := oidc.NewProvider(ctx, c.config.IssuerURL)
	if err != nil {
		return errors.Wrap(err, "[OIDCClient.Initialize] provider discovery")
	}
	c.provider = provider
	c.verifier = provider.Verifier(&oidc.Config{ClientID: c.config.ClientID})
	c.oauth = &oauth2.Config{
		ClientID:    c.config.ClientID,
		Endpoint:    provider.Endpoint(),
		RedirectURL: c.redirectURL(),
		Scopes:      c.config.Scopes,
	}

	if err := c.cache.load(); err != nil {
		return errors.Wrap(err, "[OIDCClient.Initialize] load cache")
	}
	return nil
}

func (c *OIDCClient) AllAccounts() []accounts.Account {
	return c.cache.allAccounts()
}

func (c *OIDCClient) ActiveAccount() (accounts.Account, bool) {
	return c.cache.activeAccount()
}

func (c *OIDCClient) SetActiveAccount(account accounts.Account) {
	if err := c.cache.setActive(account.HomeID); err != nil {
		log.Warn().Err(err).Msg("failed to persist active account")
	}
}

// Logout removes the account's cached credentials and opens the provider's
// end-session page. The navigation is best effort: the cache is cleared
// regardless of whether the browser ever completes it.
func (c *OIDCClient) Logout(ctx context.Context, opts identity.LogoutOptions) error {
	if c.provider == nil {
		return identity.NotInitializedErr
	}

	account, ok := c.resolveAccount(opts.Account)
	if ok {
		if err := c.cache.removeAccount(account.HomeID); err != nil {
			return errors.Wrap(err, "[OIDCClient.Logout] remove account")
		}
	}

	endSession := c.endSessionEndpoint()
	if endSession == "" {
		return nil
	}
	if err := c.openBrowser(endSession); err != nil {
		log.Warn().Err(err).Msg("could not open end-session page")
	}
	return nil
}

// HandleRedirectPromise resolves a redirect-based login begun before a
// restart. Returns (nil, nil) when nothing is pending or the callback has
// not arrived yet; a provider-reported error or a stale flow is returned
// as an error after the pending state is discarded.
func (c *OIDCClient) HandleRedirectPromise(ctx context.Context) (*identity.AuthResult, error) {
	if c.provider == nil {
		return nil, identity.NotInitializedErr
	}

	pending := c.cache.pending()
	if pending == nil {
		return nil, nil
	}

	callback, err := c.cache.takeCallbackURL()
	if err != nil {
		return nil, errors.Wrap(err, "[HandleRedirectPromise] read callback")
	}
	if callback == "" {
		if c.nowTime().Sub(pending.CreatedAt) > pendingRedirectTimeout {
			_ = c.cache.clearPending()
			return nil, errors.New("[HandleRedirectPromise] pending login expired")
		}
		return nil, nil
	}

	// The flow resolves exactly once, whatever the outcome.
	defer func() {
		_ = c.cache.clearPending()
	}()

	code, err := parseCallback(callback, pending.State)
	if err != nil {
		return nil, errors.Wrap(err, "[HandleRedirectPromise] callback")
	}

	result, err := c.exchange(ctx, code, pending.CodeVerifier, pending.Nonce)
	if err != nil {
		return nil, errors.Wrap(err, "[HandleRedirectPromise] exchange")
	}
	return result, nil
}

func (c *OIDCClient) redirectURL() string {
	return "http://127.0.0.1:" + c.config.RedirectPort + "/callback"
}

func (c *OIDCClient) resolveAccount(requested *accounts.Account) (accounts.Account, bool) {
	if requested != nil {
		return *requested, true
	}
	return c.cache.activeAccount()
}

func (c *OIDCClient) endSessionEndpoint() string {
	var claims struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := c.provider.Claims(&claims); err != nil {
		return ""
	}
	return claims.EndSessionEndpoint
}

// exchange swaps an authorization code for tokens, verifies the ID token
// (including the nonce) and persists the resulting account.
func (c *OIDCClient) exchange(ctx context.Context, code, codeVerifier, nonce string) (*identity.AuthResult, error) {
	oauth2Token, err := c.oauth.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[exchange] token exchange")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("[exchange] no ID token in response")
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "[exchange] ID token verification")
	}

	var claims struct {
		Nonce             string `json:"nonce"`
		Sub               string `json:"sub"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[exchange] extract claims")
	}
	if claims.Nonce != nonce {
		return nil, errors.New("[exchange] nonce mismatch")
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Email
	}
	account := accounts.Account{
		HomeID:   claims.Sub,
		Name:     claims.Name,
		Username: username,
	}

	if err := c.cache.upsertAccount(account, oauth2Token.RefreshToken); err != nil {
		return nil, errors.Wrap(err, "[exchange] cache account")
	}
	if err := c.cache.setActive(account.HomeID); err != nil {
		return nil, errors.Wrap(err, "[exchange] set active")
	}

	return &identity.AuthResult{
		Account:     account,
		AccessToken: oauth2Token.AccessToken,
		Expiry:      oauth2Token.Expiry,
	}, nil
}

// parseCallback extracts the authorization code from a captured redirect
// callback URL, validating state and surfacing provider-reported errors.
func parseCallback(rawURL, expectedState string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", errors.Wrap(err, "parse callback URL")
	}
	q := u.Query()

	if errParam := q.Get("error"); errParam != "" {
		if errParam == "access_denied" {
			return "", identity.UserCancelledErr
		}
		return "", errors.Errorf("provider error: %s - %s", errParam, q.Get("error_description"))
	}

	if q.Get("state") != expectedState {
		return "", errors.New("state mismatch")
	}

	code := q.Get("code")
	if code == "" {
		return "", errors.New("missing code parameter")
	}
	return code, nil
}
