package accounts

import "sync"

// Store holds the set of known authenticated accounts and which one is
// active. It is the only process-wide mutable state in the client; writes
// are serialized through the auth orchestrator and the startup handler.
type Store struct {
	mu       sync.RWMutex
	accounts []Account
	active   *Account
}

func NewStore() *Store {
	return &Store{}
}

// List returns the known accounts in discovery order.
func (s *Store) List() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Add records an account if it is not already known. Insertion order is
// preserved so List reflects discovery order.
func (s *Store) Add(account Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(account)
}

// SetActive marks the account as active, adding it first if unknown.
func (s *Store) SetActive(account Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.add(account)
	s.active = &account
}

// Active returns the active account, if any.
func (s *Store) Active() (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return Account{}, false
	}
	return *s.active, true
}

// Clear empties the store and the active slot.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = nil
	s.active = nil
}

func (s *Store) add(account Account) {
	for _, a := range s.accounts {
		if a.HomeID == account.HomeID {
			return
		}
	}
	s.accounts = append(s.accounts, account)
}
