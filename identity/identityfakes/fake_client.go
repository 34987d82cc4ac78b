package identityfakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-prompt-client/accounts"
	"github.com/jrsteele09/go-prompt-client/identity"
)

var _ identity.Client = (*FakeClient)(nil)

// FakeClient is a scriptable in-memory identity client. Each operation
// returns the configured result and records its calls.
type FakeClient struct {
	lock sync.Mutex

	InitializeErr error

	LoginPopupResult    *identity.AuthResult
	LoginPopupErr       error
	LoginRedirectResult *identity.AuthResult
	LoginRedirectErr    error

	SilentResult        *identity.AuthResult
	SilentErr           error
	TokenPopupResult    *identity.AuthResult
	TokenPopupErr       error
	TokenRedirectResult *identity.AuthResult
	TokenRedirectErr    error

	RedirectPromiseResult *identity.AuthResult
	RedirectPromiseErr    error

	LogoutErr error

	CachedAccounts []accounts.Account

	InitializeCalls      int
	LoginPopupCalls      int
	LoginRedirectCalls   int
	SilentCalls          int
	TokenPopupCalls      int
	TokenRedirectCalls   int
	LogoutCalls          int
	RedirectPromiseCalls int

	LastRequest identity.TokenRequest

	active *accounts.Account
}

func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (c *FakeClient) Initialize(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.InitializeCalls++
	return c.InitializeErr
}

func (c *FakeClient) AllAccounts() []accounts.Account {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]accounts.Account, len(c.CachedAccounts))
	copy(out, c.CachedAccounts)
	return out
}

func (c *FakeClient) ActiveAccount() (accounts.Account, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.active == nil {
		return accounts.Account{}, false
	}
	return *c.active, true
}

func (c *FakeClient) SetActiveAccount(account accounts.Account) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.active = &account
}

func (c *FakeClient) LoginPopup(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.LoginPopupCalls++
	c.LastRequest = req
	return c.LoginPopupResult, c.LoginPopupErr
}

func (c *FakeClient) LoginRedirect(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.LoginRedirectCalls++
	c.LastRequest = req
	return c.LoginRedirectResult, c.LoginRedirectErr
}

func (c *FakeClient) AcquireTokenSilent(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.SilentCalls++
	c.LastRequest = req
	return c.SilentResult, c.SilentErr
}

func (c *FakeClient) AcquireTokenPopup(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.TokenPopupCalls++
	c.LastRequest = req
	return c.TokenPopupResult, c.TokenPopupErr
}

func (c *FakeClient) AcquireTokenRedirect(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.TokenRedirectCalls++
	c.LastRequest = req
	return c.TokenRedirectResult, c.TokenRedirectErr
}

func (c *FakeClient) Logout(ctx context.Context, opts identity.LogoutOptions) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.LogoutCalls++
	c.active = nil
	return c.LogoutErr
}

func (c *FakeClient) HandleRedirectPromise(ctx context.Context) (*identity.AuthResult, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.RedirectPromiseCalls++
	return c.RedirectPromiseResult, c.RedirectPromiseErr
}
