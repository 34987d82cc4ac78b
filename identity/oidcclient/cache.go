package oidcclient

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jrsteele09/go-prompt-client/accounts"
	"github.com/pkg/errors"
)

const (
	cacheFileName    = "identity_cache.json"
	callbackFileName = "redirect_callback"
)

// cachedAccount pairs a known account with the refresh token that backs
// silent acquisition for it.
type cachedAccount struct {
	Account      accounts.Account `json:"account"`
	RefreshToken string           `json:"refresh_token,omitempty"`
}

// pendingRedirect is the state of a redirect-based login begun in an
// earlier process. It is resolved by HandleRedirectPromise on the next start.
type pendingRedirect struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	Nonce        string    `json:"nonce"`
	Scopes       []string  `json:"scopes"`
	CreatedAt    time.Time `json:"created_at"`
}

type cacheData struct {
	Accounts     []cachedAccount  `json:"accounts"`
	ActiveHomeID string           `json:"active_home_id,omitempty"`
	Pending      *pendingRedirect `json:"pending,omitempty"`
}

// cache is the session-scoped on-disk store for accounts, refresh tokens
// and pending redirect state. All methods persist synchronously; losing a
// write loses at most one refresh token.
type cache struct {
	lock sync.Mutex
	dir  string
	data cacheData
}

func newCache(dir string) *cache {
	return &cache{dir: dir}
}

func (c *cache) load() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	raw, err := os.ReadFile(filepath.Join(c.dir, cacheFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[cache.load] read cache file")
	}
	if err := json.Unmarshal(raw, &c.data); err != nil {
		return errors.Wrap(err, "[cache.load] unmarshal cache file")
	}
	return nil
}

func (c *cache) save() error {
	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[cache.save] marshal cache")
	}
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return errors.Wrap(err, "[cache.save] create cache dir")
	}
	if err := os.WriteFile(filepath.Join(c.dir, cacheFileName), raw, 0o600); err != nil {
		return errors.Wrap(err, "[cache.save] write cache file")
	}
	return nil
}

func (c *cache) allAccounts() []accounts.Account {
	c.lock.Lock()
	defer c.lock.Unlock()

	out := make([]accounts.Account, 0, len(c.data.Accounts))
	for _, ca := range c.data.Accounts {
		out = append(out, ca.Account)
	}
	return out
}

func (c *cache) activeAccount() (accounts.Account, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, ca := range c.data.Accounts {
		if ca.Account.HomeID == c.data.ActiveHomeID && c.data.ActiveHomeID != "" {
			return ca.Account, true
		}
	}
	return accounts.Account{}, false
}

func (c *cache) setActive(homeID string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.data.ActiveHomeID = homeID
	return c.save()
}

func (c *cache) upsertAccount(account accounts.Account, refreshToken string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i, ca := range c.data.Accounts {
		if ca.Account.HomeID == account.HomeID {
			c.data.Accounts[i].Account = account
			if refreshToken != "" {
				c.data.Accounts[i].RefreshToken = refreshToken
			}
			return c.save()
		}
	}
	c.data.Accounts = append(c.data.Accounts, cachedAccount{Account: account, RefreshToken: refreshToken})
	return c.save()
}

func (c *cache) refreshToken(homeID string) string {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, ca := range c.data.Accounts {
		if ca.Account.HomeID == homeID {
			return ca.RefreshToken
		}
	}
	return ""
}

func (c *cache) removeAccount(homeID string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	kept := c.data.Accounts[:0]
	for _, ca := range c.data.Accounts {
		if ca.Account.HomeID != homeID {
			kept = append(kept, ca)
		}
	}
	c.data.Accounts = kept
	if c.data.ActiveHomeID == homeID {
		c.data.ActiveHomeID = ""
	}
	return c.save()
}

func (c *cache) setPending(p *pendingRedirect) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.data.Pending = p
	return c.save()
}

func (c *cache) pending() *pendingRedirect {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.data.Pending
}

func (c *cache) clearPending() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.data.Pending = nil
	return c.save()
}

// callbackURL returns the redirect callback captured for a pending flow,
// if the user has dropped one into the cache dir, and removes it.
func (c *cache) takeCallbackURL() (string, error) {
	path := filepath.Join(c.dir, callbackFileName)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "[cache.takeCallbackURL] read callback file")
	}
	_ = os.Remove(path)
	return string(raw), nil
}
