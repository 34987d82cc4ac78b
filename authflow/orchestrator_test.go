package authflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-prompt-client/accounts"
	"github.com/jrsteele09/go-prompt-client/authflow"
	"github.com/jrsteele09/go-prompt-client/identity"
	"github.com/jrsteele09/go-prompt-client/identity/identityfakes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var testAccount = accounts.Account{HomeID: "user-1", Name: "John Doe", Username: "john.doe@example.com"}

func testResult() *identity.AuthResult {
	return &identity.AuthResult{
		Account:     testAccount,
		AccessToken: "token-abc",
		Expiry:      time.Now().Add(time.Hour),
	}
}

func newOrchestrator(t *testing.T, client identity.Client) (*authflow.Orchestrator, *accounts.Store) {
	t.Helper()

	store := accounts.NewStore()
	orch, err := authflow.New(client, store, []string{"openid", "profile"})
	require.NoError(t, err)
	return orch, store
}

func TestOrchestrator_Login(t *testing.T) {
	t.Run("popup success stores active account", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		client.LoginPopupResult = testResult()
		orch, store := newOrchestrator(t, client)

		require.NoError(t, orch.Login(context.Background()))

		active, ok := store.Active()
		require.True(t, ok)
		require.Equal(t, testAccount, active)
		require.Equal(t, 1, client.LoginPopupCalls)
		require.Equal(t, 0, client.LoginRedirectCalls)
		require.Equal(t, identity.HintSelectAccount, client.LastRequest.Hint)
		require.Equal(t, authflow.StateIdle, orch.State())
	})

	t.Run("popup failure falls back once to redirect", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		client.LoginPopupErr = errors.New("popup blocked")
		client.LoginRedirectResult = testResult()
		orch, store := newOrchestrator(t, client)

		require.NoError(t, orch.Login(context.Background()))

		_, ok := store.Active()
		require.True(t, ok)
		require.Equal(t, 1, client.LoginPopupCalls)
		require.Equal(t, 1, client.LoginRedirectCalls)
	})

	t.Run("user cancellation never triggers redirect", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		client.LoginPopupErr = identity.UserCancelledErr
		orch, store := newOrchestrator(t, client)

		err := orch.Login(context.Background())
		require.ErrorIs(t, err, identity.UserCancelledErr)
		require.Equal(t, 0, client.LoginRedirectCalls)

		_, ok := store.Active()
		require.False(t, ok)
		require.Equal(t, authflow.StateIdle, orch.State())
	})

	t.Run("both attempts failing returns to idle", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		client.LoginPopupErr = errors.New("popup blocked")
		client.LoginRedirectErr = errors.New("redirect failed")
		orch, _ := newOrchestrator(t, client)

		require.Error(t, orch.Login(context.Background()))
		require.Equal(t, 1, client.LoginPopupCalls)
		require.Equal(t, 1, client.LoginRedirectCalls)
		require.Equal(t, authflow.StateIdle, orch.State())
	})

	t.Run("no-op while interaction in progress", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		client.LoginPopupResult = testResult()
		orch, store := newOrchestrator(t, client)

		orch.HoldForRedirect()
		require.NoError(t, orch.Login(context.Background()))
		require.Equal(t, 0, client.LoginPopupCalls)

		_, ok := store.Active()
		require.False(t, ok)

		orch.Release()
		require.NoError(t, orch.Login(context.Background()))
		require.Equal(t, 1, client.LoginPopupCalls)
	})
}

func TestOrchestrator_Logout(t *testing.T) {
	t.Run("clears active account", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		orch, store := newOrchestrator(t, client)
		store.SetActive(testAccount)

		require.NoError(t, orch.Logout(context.Background()))

		_, ok := store.Active()
		require.False(t, ok)
		require.Equal(t, 1, client.LogoutCalls)
	})

	t.Run("clears active account even when provider logout fails", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		client.LogoutErr = errors.New("navigation abandoned")
		orch, store := newOrchestrator(t, client)
		store.SetActive(testAccount)

		require.Error(t, orch.Logout(context.Background()))

		_, ok := store.Active()
		require.False(t, ok)
	})
}

func TestOrchestrator_AccessToken(t *testing.T) {
	scopes := []string{"openid"}

	t.Run("no active account returns nil without identity calls", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		orch, _ := newOrchestrator(t, client)

		result, err := orch.AccessToken(context.Background(), scopes)
		require.NoError(t, err)
		require.Nil(t, result)
		require.Equal(t, 0, client.SilentCalls)
	})

	t.Run("silent success skips interactive", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		client.SilentResult = testResult()
		orch, store := newOrchestrator(t, client)
		store.SetActive(testAccount)

		result, err := orch.AccessToken(context.Background(), scopes)
		require.NoError(t, err)
		require.Equal(t, "token-abc", result.AccessToken)
		require.Equal(t, 0, client.TokenPopupCalls)
		require.Equal(t, testAccount.HomeID, client.LastRequest.Account.HomeID)
	})

	t.Run("silent failure falls back to interactive popup", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		client.SilentErr = identity.InteractionRequiredErr
		client.TokenPopupResult = testResult()
		orch, store := newOrchestrator(t, client)
		store.SetActive(testAccount)

		result, err := orch.AccessToken(context.Background(), scopes)
		require.NoError(t, err)
		require.Equal(t, "token-abc", result.AccessToken)
		require.Equal(t, 1, client.SilentCalls)
		require.Equal(t, 1, client.TokenPopupCalls)
		require.Equal(t, authflow.StateIdle, orch.State())
	})

	t.Run("interactive popup failure falls back once to redirect", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		client.SilentErr = identity.InteractionRequiredErr
		client.TokenPopupErr = errors.New("popup blocked")
		client.TokenRedirectResult = testResult()
		orch, store := newOrchestrator(t, client)
		store.SetActive(testAccount)

		result, err := orch.AccessToken(context.Background(), scopes)
		require.NoError(t, err)
		require.NotNil(t, result)
		require.Equal(t, 1, client.TokenRedirectCalls)
	})

	t.Run("terminal failure resets to idle", func(t *testing.T) {
		client := identityfakes.NewFakeClient()
		client.SilentErr = identity.InteractionRequiredErr
		client.TokenPopupErr = errors.New("popup blocked")
		client.TokenRedirectErr = errors.New("redirect failed")
		orch, store := newOrchestrator(t, client)
		store.SetActive(testAccount)

		result, err := orch.AccessToken(context.Background(), scopes)
		require.Error(t, err)
		require.Nil(t, result)
		require.Equal(t, authflow.StateIdle, orch.State())
	})
}
