package oidcclient

import (
	"context"

	"github.com/jrsteele09/go-prompt-client/identity"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// AcquireTokenSilent obtains a token without UI using the cached refresh
// token for the requested account. Returns identity.InteractionRequiredErr
// when no usable cached credential exists.
func (c *OIDCClient) AcquireTokenSilent(ctx context.Context, req identity.TokenRequest) (*identity.AuthResult, error) {
	if c.provider == nil {
		return nil, identity.NotInitializedErr
	}

	account, ok := c.resolveAccount(req.Account)
	if !ok {
		return nil, identity.InteractionRequiredErr
	}

	refreshToken := c.cache.refreshToken(account.HomeID)
	if refreshToken == "" {
		return nil, identity.InteractionRequiredErr
	}

	cfg := *c.oauth
	if len(req.Scopes) > 0 {
		cfg.Scopes = req.Scopes
	}

	source := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		// An expired or revoked grant needs a fresh interactive sign-in.
		return nil, errors.Wrap(identity.InteractionRequiredErr, err.Error())
	}

	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		if err := c.cache.upsertAccount(account, token.RefreshToken); err != nil {
			return nil, errors.Wrap(err, "[AcquireTokenSilent] rotate refresh token")
		}
	}

	return &identity.AuthResult{
		Account:     account,
		AccessToken: token.AccessToken,
		Expiry:      token.Expiry,
	}, nil
}
