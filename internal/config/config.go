// Package config loads entramap configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthMethod selects how the Azure token credential is built.
type AuthMethod string

const (
	// AuthCLI reuses the token cache of a prior `az login`.
	AuthCLI AuthMethod = "cli"
	// AuthClientSecret uses an app registration's client secret.
	AuthClientSecret AuthMethod = "secret"
)

// Config holds all configuration values.
type Config struct {
	// Entra tenant and app registration
	TenantID     string
	ClientID     string
	ClientSecret string
	AuthMethod   AuthMethod

	// Microsoft Graph
	GraphBaseURL  string
	GraphPageSize int

	// Agent project endpoint (publish-order source)
	ProjectEndpoint   string
	ProjectAPIVersion string

	// SurrealDB run history
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Correlation
	ConfidenceWindow time.Duration
	OutputPath       string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		TenantID:     getEnv("ENTRAMAP_TENANT_ID", ""),
		ClientID:     getEnv("ENTRAMAP_CLIENT_ID", ""),
		ClientSecret: getEnv("ENTRAMAP_CLIENT_SECRET", ""),
		AuthMethod:   parseAuthMethod(getEnv("ENTRAMAP_AUTH", "cli")),

		GraphBaseURL:  getEnv("ENTRAMAP_GRAPH_URL", "https://graph.microsoft.com/v1.0"),
		GraphPageSize: getEnvInt("ENTRAMAP_GRAPH_PAGE_SIZE", 100),

		ProjectEndpoint:   getEnv("ENTRAMAP_PROJECT_ENDPOINT", ""),
		ProjectAPIVersion: getEnv("ENTRAMAP_PROJECT_API_VERSION", "2025-05-01"),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "entramap"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "runs"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		ConfidenceWindow: getEnvDuration("ENTRAMAP_CONFIDENCE_WINDOW", 5*time.Minute),
		OutputPath:       getEnv("ENTRAMAP_OUTPUT", "agent_mapping.json"),

		LogFile:  getEnv("ENTRAMAP_LOG_FILE", "/tmp/entramap.log"),
		LogLevel: parseLogLevel(getEnv("ENTRAMAP_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}

func parseAuthMethod(s string) AuthMethod {
	switch strings.ToLower(s) {
	case "secret", "client-secret":
		return AuthClientSecret
	default:
		return AuthCLI
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
