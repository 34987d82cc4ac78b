package config

import "time"

type APIConfig interface {
	GetAPIBaseURL() string
	GetPromptPath() string
	GetDebugPath() string
	GetHTTPTimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the base URL of the remote prompt API
// (e.g., "https://api.example.com")
func (API) GetAPIBaseURL() string {
	return GetEnv("API_BASE_URL", "http://localhost:8000")
}

func (API) GetPromptPath() string {
	return "/api/prompt"
}

func (API) GetDebugPath() string {
	return "/api/debug"
}

func (API) GetHTTPTimeout() time.Duration {
	return 30 * time.Second
}
