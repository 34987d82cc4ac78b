// Package bootstrap resolves a pending redirect-based login and seeds the
// account store. It runs exactly once, before any UI is presented.
package bootstrap

import (
	"context"

	"github.com/jrsteele09/go-prompt-client/accounts"
	"github.com/jrsteele09/go-prompt-client/authflow"
	"github.com/jrsteele09/go-prompt-client/identity"
	apperrors "github.com/jrsteele09/go-prompt-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// Run initializes the identity client, resolves any pending redirect
// continuation and seeds the account store from the provider cache.
//
// Initialization failure is fatal for this boot attempt: the returned error
// wraps apperrors.ErrAuthInit and the caller must render a static error
// instead of attempting further auth operations. A failed redirect
// resolution is recoverable: it is logged and the process continues
// unauthenticated.
func Run(ctx context.Context, client identity.Client, store *accounts.Store, orch *authflow.Orchestrator) error {
	if err := client.Initialize(ctx); err != nil {
		return apperrors.Wrapf(apperrors.ErrAuthInit, "[bootstrap.Run] %v", err)
	}

	orch.HoldForRedirect()
	defer orch.Release()

	result, err := client.HandleRedirectPromise(ctx)
	switch {
	case err != nil:
		// A stale failed redirect must not block the UI.
		log.Warn().Err(err).Msg("redirect continuation failed; continuing unauthenticated")
	case result != nil:
		client.SetActiveAccount(result.Account)
		store.SetActive(result.Account)
		log.Info().Str("username", result.Account.Username).Msg("redirect sign-in completed")
	}

	seedFromCache(client, store)
	return nil
}

// seedFromCache records cached accounts and, when none is active yet,
// selects the first one. This auto-selection only ever happens at startup.
func seedFromCache(client identity.Client, store *accounts.Store) {
	cached := client.AllAccounts()
	for _, account := range cached {
		store.Add(account)
	}

	if _, ok := store.Active(); ok || len(cached) == 0 {
		return
	}

	client.SetActiveAccount(cached[0])
	store.SetActive(cached[0])
	log.Debug().Str("username", cached[0].Username).Msg("restored cached account")
}
