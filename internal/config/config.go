package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for fieldline.
// It aggregates all sub-configurations and is populated by merging values
// from environment variables, command-line flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Remote holds the address and timeout settings for the CRM backend API.
	Remote Remote `envPrefix:"REMOTE_"`

	// Storage holds the local persistence settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds reconciler tuning: batch size, attempt budget, retry delay.
	Sync Sync `envPrefix:"SYNC_"`

	// Workers holds background worker settings (refresh and probe intervals).
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Remote holds network settings for the outbound transport layer.
type Remote struct {
	// BaseURL is the HTTP base address of the CRM backend API,
	// e.g. "https://api.example.com".
	// Env: REMOTE_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// AuthToken is the bearer token attached to every remote request. It is
	// optional; when empty, requests are sent unauthenticated.
	// Env: REMOTE_AUTH_TOKEN
	AuthToken string `env:"AUTH_TOKEN"`

	// RequestTimeout is the per-call deadline for remote requests
	// (e.g. "15s"). A timed-out call is treated as a network failure and
	// retried by the reconciler.
	// Env: REMOTE_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Storage groups the configuration for the local persistence layer.
type Storage struct {
	// DB holds the local SQLite settings.
	DB DB `envPrefix:"DB_"`
}

// DB contains local database connection settings.
type DB struct {
	// DSN is the SQLite file path for the on-device database.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Sync holds reconciler tuning knobs.
type Sync struct {
	// BatchSize bounds how many queue entries are dispatched concurrently
	// within one batch of a drain pass.
	// Env: SYNC_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`

	// MaxAttempts is the per-entry attempt budget before an entry is marked
	// FAILED permanently.
	// Env: SYNC_MAX_ATTEMPTS
	MaxAttempts int `env:"MAX_ATTEMPTS"`

	// RetryDelay is how long the reconciler waits before scheduling another
	// drain pass after a pass that left retryable entries behind.
	// Env: SYNC_RETRY_DELAY
	RetryDelay time.Duration `env:"RETRY_DELAY"`
}

// Workers contains background worker settings.
type Workers struct {
	// RefreshInterval defines how often the background refresh job re-fetches
	// remote collections while online. Zero falls back to the default.
	// Env: WORKERS_REFRESH_INTERVAL
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL"`

	// ProbeInterval defines how often the connectivity monitor probes the
	// remote health endpoint.
	// Env: WORKERS_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (an earlier source wins for every field it sets; later sources fill gaps):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
