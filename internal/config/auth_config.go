package config

import "strings"

type AuthConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetRedirectPort() string
	GetScopes() []string
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetIssuerURL returns the identity provider's issuer URL used for OIDC
// discovery (e.g., "https://login.microsoftonline.com/<tenant>/v2.0")
func (Auth) GetIssuerURL() string {
	return GetEnv("ISSUER_URL", "http://localhost:8080")
}

func (Auth) GetClientID() string {
	return GetEnv("CLIENT_ID", "")
}

// GetRedirectPort is the loopback port the interactive flow listens on
// for the provider callback.
func (Auth) GetRedirectPort() string {
	return GetEnv("REDIRECT_PORT", "53682")
}

func (Auth) GetScopes() []string {
	scopes := GetEnv("SCOPES", "openid profile offline_access")
	return strings.Fields(scopes)
}
