package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar  = "PORT"
	appNameVar  = "APP_NAME"
	cacheDirVar = "CACHE_DIR"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetCacheDir() string
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8000")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Prompt Client")
}

// GetCacheDir returns the directory used for the session-scoped identity
// cache (accounts, refresh tokens, pending redirect state).
func (EnvVars) GetCacheDir() string {
	return GetEnv(cacheDirVar, "./.promptcache")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
