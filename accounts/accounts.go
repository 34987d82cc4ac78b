package accounts

// Account is a provider-issued identity record for a signed-in user.
// Immutable once issued; the identity client is the only source of Accounts.
type Account struct {
	HomeID   string // Provider-issued identifier, unique per user
	Name     string // Display name from the ID token
	Username string // Preferred username (usually an email)
}
