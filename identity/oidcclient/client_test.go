package oidcclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-prompt-client/identity"
	"github.com/jrsteele09/go-prompt-client/identity/oidcclient"
	"github.com/stretchr/testify/require"
)

// fakeProvider serves just enough OIDC discovery for oidc.NewProvider.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 server.URL,
			"authorization_endpoint": server.URL + "/authorize",
			"token_endpoint":         server.URL + "/token",
			"jwks_uri":               server.URL + "/keys",
			"end_session_endpoint":   server.URL + "/logout",
		})
	})
	return server
}

func newInitializedClient(t *testing.T, opts ...oidcclient.Option) (*oidcclient.OIDCClient, string) {
	t.Helper()

	provider := fakeProvider(t)
	cacheDir := t.TempDir()

	opts = append([]oidcclient.Option{
		oidcclient.WithBrowserOpener(func(url string) error { return nil }),
	}, opts...)

	client, err := oidcclient.New(oidcclient.Config{
		IssuerURL:    provider.URL,
		ClientID:     "client-1",
		RedirectPort: "0",
		Scopes:       []string{"openid", "profile"},
		CacheDir:     cacheDir,
	}, opts...)
	require.NoError(t, err)
	require.NoError(t, client.Initialize(context.Background()))
	return client, cacheDir
}

func writeCallback(t *testing.T, cacheDir, url string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "redirect_callback"), []byte(url), 0o600))
}

func TestNew_Validation(t *testing.T) {
	_, err := oidcclient.New(oidcclient.Config{ClientID: "c", CacheDir: "d"})
	require.Error(t, err)

	_, err = oidcclient.New(oidcclient.Config{IssuerURL: "http://issuer", CacheDir: "d"})
	require.Error(t, err)

	_, err = oidcclient.New(oidcclient.Config{IssuerURL: "http://issuer", ClientID: "c"})
	require.Error(t, err)
}

func TestOperationsRequireInitialize(t *testing.T) {
	client, err := oidcclient.New(oidcclient.Config{
		IssuerURL: "http://localhost:1", // never dialed
		ClientID:  "client-1",
		CacheDir:  t.TempDir(),
	})
	require.NoError(t, err)

	_, err = client.AcquireTokenSilent(context.Background(), identity.TokenRequest{})
	require.ErrorIs(t, err, identity.NotInitializedErr)

	_, err = client.HandleRedirectPromise(context.Background())
	require.ErrorIs(t, err, identity.NotInitializedErr)

	_, err = client.LoginRedirect(context.Background(), identity.TokenRequest{})
	require.ErrorIs(t, err, identity.NotInitializedErr)
}

func TestAcquireTokenSilent_NoCachedCredential(t *testing.T) {
	client, _ := newInitializedClient(t)

	_, err := client.AcquireTokenSilent(context.Background(), identity.TokenRequest{Scopes: []string{"openid"}})
	require.ErrorIs(t, err, identity.InteractionRequiredErr)
}

func TestHandleRedirectPromise(t *testing.T) {
	t.Run("no pending continuation", func(t *testing.T) {
		client, _ := newInitializedClient(t)

		result, err := client.HandleRedirectPromise(context.Background())
		require.NoError(t, err)
		require.Nil(t, result)
	})

	t.Run("pending without callback keeps waiting", func(t *testing.T) {
		client, _ := newInitializedClient(t)

		_, err := client.LoginRedirect(context.Background(), identity.TokenRequest{Scopes: []string{"openid"}})
		require.ErrorIs(t, err, identity.RedirectStartedErr)

		result, err := client.HandleRedirectPromise(context.Background())
		require.NoError(t, err)
		require.Nil(t, result)
	})

	t.Run("provider error resolves the flow with an error", func(t *testing.T) {
		client, cacheDir := newInitializedClient(t)

		_, err := client.LoginRedirect(context.Background(), identity.TokenRequest{})
		require.ErrorIs(t, err, identity.RedirectStartedErr)

		writeCallback(t, cacheDir, "http://127.0.0.1/callback?error=server_error&error_description=boom")
		_, err = client.HandleRedirectPromise(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "server_error")

		// The flow resolved; a second call finds nothing pending.
		result, err := client.HandleRedirectPromise(context.Background())
		require.NoError(t, err)
		require.Nil(t, result)
	})

	t.Run("user denial surfaces cancellation", func(t *testing.T) {
		client, cacheDir := newInitializedClient(t)

		_, err := client.LoginRedirect(context.Background(), identity.TokenRequest{})
		require.ErrorIs(t, err, identity.RedirectStartedErr)

		writeCallback(t, cacheDir, "http://127.0.0.1/callback?error=access_denied")
		_, err = client.HandleRedirectPromise(context.Background())
		require.ErrorIs(t, err, identity.UserCancelledErr)
	})

	t.Run("state mismatch is rejected", func(t *testing.T) {
		client, cacheDir := newInitializedClient(t)

		_, err := client.LoginRedirect(context.Background(), identity.TokenRequest{})
		require.ErrorIs(t, err, identity.RedirectStartedErr)

		writeCallback(t, cacheDir, "http://127.0.0.1/callback?code=abc&state=wrong")
		_, err = client.HandleRedirectPromise(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "state mismatch")
	})

	t.Run("stale pending flow expires", func(t *testing.T) {
		now := time.Now()
		client, _ := newInitializedClient(t, oidcclient.WithNowTime(func() time.Time { return now }))

		_, err := client.LoginRedirect(context.Background(), identity.TokenRequest{})
		require.ErrorIs(t, err, identity.RedirectStartedErr)

		now = now.Add(16 * time.Minute)
		_, err = client.HandleRedirectPromise(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "expired")

		result, err := client.HandleRedirectPromise(context.Background())
		require.NoError(t, err)
		require.Nil(t, result)
	})
}

func TestPendingStateSurvivesRestart(t *testing.T) {
	provider := fakeProvider(t)
	cacheDir := t.TempDir()

	config := oidcclient.Config{
		IssuerURL:    provider.URL,
		ClientID:     "client-1",
		RedirectPort: "0",
		CacheDir:     cacheDir,
	}

	first, err := oidcclient.New(config, oidcclient.WithBrowserOpener(func(string) error { return nil }))
	require.NoError(t, err)
	require.NoError(t, first.Initialize(context.Background()))
	_, err = first.LoginRedirect(context.Background(), identity.TokenRequest{})
	require.ErrorIs(t, err, identity.RedirectStartedErr)

	// A new client over the same cache dir stands in for the next process.
	second, err := oidcclient.New(config, oidcclient.WithBrowserOpener(func(string) error { return nil }))
	require.NoError(t, err)
	require.NoError(t, second.Initialize(context.Background()))

	writeCallback(t, cacheDir, "http://127.0.0.1/callback?error=access_denied")
	_, err = second.HandleRedirectPromise(context.Background())
	require.ErrorIs(t, err, identity.UserCancelledErr)
}
