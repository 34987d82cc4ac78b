package identity

import (
	"context"
	"time"

	"github.com/jrsteele09/go-prompt-client/accounts"
)

// InteractionHint controls how much UI an interactive flow presents.
type InteractionHint string

const (
	HintNone          InteractionHint = ""
	HintSelectAccount InteractionHint = "select_account"
)

// TokenRequest describes a single token acquisition. Constructed fresh per
// request, never persisted.
type TokenRequest struct {
	Scopes  []string
	Account *accounts.Account // nil means the provider picks (login flows)
	Hint    InteractionHint
}

// AuthResult is the outcome of a successful login or token acquisition.
// The access token is used once to build a request header; caching is the
// identity client's concern.
type AuthResult struct {
	Account     accounts.Account
	AccessToken string
	Expiry      time.Time
}

// LogoutOptions configures a provider logout.
type LogoutOptions struct {
	Account *accounts.Account // nil logs out the active account
}

// Client is the identity provider capability the core consumes. Interactive
// operations (popup, redirect) suspend until the user completes or abandons
// the flow; silent operations never present UI.
//
// HandleRedirectPromise resolves a redirect-based flow begun before a process
// restart. It returns (nil, nil) when no continuation is pending.
type Client interface {
	Initialize(ctx context.Context) error
	AllAccounts() []accounts.Account
	ActiveAccount() (accounts.Account, bool)
	SetActiveAccount(account accounts.Account)

	LoginPopup(ctx context.Context, req TokenRequest) (*AuthResult, error)
	LoginRedirect(ctx context.Context, req TokenRequest) (*AuthResult, error)

	AcquireTokenSilent(ctx context.Context, req TokenRequest) (*AuthResult, error)
	AcquireTokenPopup(ctx context.Context, req TokenRequest) (*AuthResult, error)
	AcquireTokenRedirect(ctx context.Context, req TokenRequest) (*AuthResult, error)

	Logout(ctx context.Context, opts LogoutOptions) error
	HandleRedirectPromise(ctx context.Context) (*AuthResult, error)
}
