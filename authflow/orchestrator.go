// Package authflow owns the login/logout/token-fallback state machine.
// All session store writes are serialized through it (and the startup
// handler, which completes before any operation here can run).
package authflow

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-prompt-client/accounts"
	"github.com/jrsteele09/go-prompt-client/identity"
	apperrors "github.com/jrsteele09/go-prompt-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// InteractionState tracks whether an interactive operation is in flight.
// Exactly one holder; interactive operations only start from StateIdle.
type InteractionState string

const (
	StateIdle            InteractionState = "idle"
	StateLoginInProgress InteractionState = "loginInProgress"
	StateTokenInProgress InteractionState = "tokenInProgress"
	StateRedirectPending InteractionState = "redirectPending"
)

// Orchestrator drives authentication against the identity client and is
// the single writer of the account store during normal operation.
type Orchestrator struct {
	client identity.Client
	store  *accounts.Store
	scopes []string // minimal scope set used for login and submit tokens

	stateLock sync.Mutex
	state     InteractionState
}

func New(client identity.Client, store *accounts.Store, scopes []string) (*Orchestrator, error) {
	if client == nil {
		return nil, errors.New("[authflow.New] identity client is required")
	}
	if store == nil {
		return nil, errors.New("[authflow.New] account store is required")
	}

	return &Orchestrator{
		client: client,
		store:  store,
		scopes: scopes,
		state:  StateIdle,
	}, nil
}

// State returns the current interaction state.
func (o *Orchestrator) State() InteractionState {
	o.stateLock.Lock()
	defer o.stateLock.Unlock()
	return o.state
}

// Login runs one interactive sign-in with an account-selection hint.
// It is a no-op while any interactive operation is already in flight:
// duplicate calls are neither queued nor retried. A popup failure other
// than user cancellation falls back exactly once to the redirect flow.
func (o *Orchestrator) Login(ctx context.Context) error {
	if !o.begin(StateLoginInProgress) {
		log.Debug().Msg("login ignored: interaction already in progress")
		return nil
	}
	defer o.end()

	req := identity.TokenRequest{
		Scopes: o.scopes,
		Hint:   identity.HintSelectAccount,
	}

	result, err := o.interactive(ctx, req, o.client.LoginPopup, o.client.LoginRedirect)
	if err != nil {
		if errors.Is(err, identity.UserCancelledErr) || errors.Is(err, identity.RedirectStartedErr) {
			return err
		}
		return errors.Wrap(err, apperrors.ErrAuthInteraction.Error())
	}

	o.client.SetActiveAccount(result.Account)
	o.store.SetActive(result.Account)
	log.Info().Str("username", result.Account.Username).Msg("signed in")
	return nil
}

// Logout clears the session store and delegates to the identity client.
// The store is cleared before the provider navigation, so the active
// account is gone even if that navigation never completes observably.
func (o *Orchestrator) Logout(ctx context.Context) error {
	o.store.Clear()

	if err := o.client.Logout(ctx, identity.LogoutOptions{}); err != nil {
		return errors.Wrap(err, "[Orchestrator.Logout] identity logout")
	}
	return nil
}

// AccessToken obtains a bearer token for the active account. Returns
// (nil, nil) when no account is active. Silent acquisition is tried first;
// on any silent failure exactly one interactive attempt follows (popup,
// then redirect), bound to the same account and scopes.
func (o *Orchestrator) AccessToken(ctx context.Context, scopes []string) (*identity.AuthResult, error) {
	active, ok := o.store.Active()
	if !ok {
		return nil, nil
	}

	req := identity.TokenRequest{Scopes: scopes, Account: &active}

	result, err := o.client.AcquireTokenSilent(ctx, req)
	if err == nil {
		return result, nil
	}
	log.Debug().Err(err).Msg("silent token acquisition failed; trying interactive")

	if !o.begin(StateTokenInProgress) {
		return nil, errors.New("[Orchestrator.AccessToken] interaction already in progress")
	}
	defer o.end()

	result, err = o.interactive(ctx, req, o.client.AcquireTokenPopup, o.client.AcquireTokenRedirect)
	if err != nil {
		return nil, errors.Wrap(err, apperrors.ErrTokenAcquisition.Error())
	}
	return result, nil
}

type interactiveAttempt func(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error)

// interactive evaluates the tagged attempt sequence [popup, redirect], each
// at most once. User cancellation never triggers the redirect fallback.
func (o *Orchestrator) interactive(ctx context.Context, req identity.TokenRequest, popup, redirect interactiveAttempt) (*identity.AuthResult, error) {
	result, err := popup(ctx, req)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, identity.UserCancelledErr) {
		return nil, err
	}

	log.Warn().Err(err).Msg("popup flow failed; falling back to redirect")
	result, err = redirect(ctx, req)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HoldForRedirect marks the redirect continuation as in flight. Only the
// startup handler calls this, before any other operation is possible.
func (o *Orchestrator) HoldForRedirect() {
	o.stateLock.Lock()
	defer o.stateLock.Unlock()
	o.state = StateRedirectPending
}

// Release returns the orchestrator to idle after the startup handler has
// resolved (or abandoned) the pending continuation.
func (o *Orchestrator) Release() {
	o.stateLock.Lock()
	defer o.stateLock.Unlock()
	o.state = StateIdle
}

func (o *Orchestrator) begin(next InteractionState) bool {
	o.stateLock.Lock()
	defer o.stateLock.Unlock()

	if o.state != StateIdle {
		return false
	}
	o.state = next
	return true
}

func (o *Orchestrator) end() {
	o.stateLock.Lock()
	defer o.stateLock.Unlock()
	o.state = StateIdle
}
