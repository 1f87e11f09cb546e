package config

import (
	"fmt"
	"time"
)

// Reconciler defaults applied by [GetClientConfig] when the corresponding
// setting is absent from every configuration source.
const (
	DefaultBatchSize       = 5
	DefaultMaxAttempts     = 3
	DefaultRetryDelay      = 5 * time.Second
	DefaultRequestTimeout  = 15 * time.Second
	DefaultProbeInterval   = 10 * time.Second
	DefaultRefreshInterval = 5 * time.Minute
)

// ClientRemote holds network settings used by the client transport layer.
type ClientRemote struct {
	// BaseURL is the HTTP base address of the CRM backend API.
	BaseURL string
	// AuthToken is the optional bearer token for remote requests.
	AuthToken string
	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite file path for the on-device database.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientSync holds reconciler settings with defaults applied.
type ClientSync struct {
	BatchSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

// ClientWorkers contains background worker settings.
type ClientWorkers struct {
	RefreshInterval time.Duration
	ProbeInterval   time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// Remote contains transport addresses and timeouts.
	Remote ClientRemote
	// Storage contains local storage settings.
	Storage ClientStorage
	// Sync contains reconciler tuning.
	Sync ClientSync
	// Workers contains background job settings.
	Workers ClientWorkers
}

// GetClientConfig builds and validates the client configuration from the
// merged structured configuration, filling in reconciler defaults for any
// setting no source provided.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		Remote: ClientRemote{
			BaseURL:        cfg.Remote.BaseURL,
			AuthToken:      cfg.Remote.AuthToken,
			RequestTimeout: cfg.Remote.RequestTimeout,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
		},
		Sync: ClientSync{
			BatchSize:   cfg.Sync.BatchSize,
			MaxAttempts: cfg.Sync.MaxAttempts,
			RetryDelay:  cfg.Sync.RetryDelay,
		},
		Workers: ClientWorkers{
			RefreshInterval: cfg.Workers.RefreshInterval,
			ProbeInterval:   cfg.Workers.ProbeInterval,
		},
	}
	clientCfg.applyDefaults()

	return clientCfg, clientCfg.validate()
}

func (cfg *ClientConfig) applyDefaults() {
	if cfg.Remote.RequestTimeout <= 0 {
		cfg.Remote.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = DefaultBatchSize
	}
	if cfg.Sync.MaxAttempts <= 0 {
		cfg.Sync.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Sync.RetryDelay <= 0 {
		cfg.Sync.RetryDelay = DefaultRetryDelay
	}
	if cfg.Workers.ProbeInterval <= 0 {
		cfg.Workers.ProbeInterval = DefaultProbeInterval
	}
	if cfg.Workers.RefreshInterval <= 0 {
		cfg.Workers.RefreshInterval = DefaultRefreshInterval
	}
}
