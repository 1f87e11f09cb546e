package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a remote API base URL
//	-t remote bearer token
//	-d local database file path
//	-c/-config json file path with configs
//	-request-timeout per-request timeout (e.g., "15s")
//	-batch-size reconciler batch size
//	-max-attempts per-entry attempt budget
//	-retry-delay delay before a retry drain pass (e.g., "5s")
//	-refresh-interval background collection refresh interval
//	-probe-interval connectivity probe interval
func ParseFlags() *StructuredConfig {
	var remoteBaseURL string
	var authToken string
	var databaseDSN string
	var jsonConfigPath string
	var requestTimeout time.Duration
	var batchSize int
	var maxAttempts int
	var retryDelay time.Duration
	var refreshInterval time.Duration
	var probeInterval time.Duration

	flag.StringVar(&remoteBaseURL, "a", "", "Remote API base URL")
	flag.StringVar(&authToken, "t", "", "Remote bearer token")
	flag.StringVar(&databaseDSN, "d", "", "Local database file path")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 15s)")
	flag.IntVar(&batchSize, "batch-size", 0, "Reconciler batch size")
	flag.IntVar(&maxAttempts, "max-attempts", 0, "Per-entry attempt budget")
	flag.DurationVar(&retryDelay, "retry-delay", 0, "Delay before retry drain pass (e.g., 5s)")
	flag.DurationVar(&refreshInterval, "refresh-interval", 0, "Background refresh interval (e.g., 5m)")
	flag.DurationVar(&probeInterval, "probe-interval", 0, "Connectivity probe interval (e.g., 10s)")

	flag.Parse()

	return &StructuredConfig{
		Remote: Remote{
			BaseURL:        remoteBaseURL,
			AuthToken:      authToken,
			RequestTimeout: requestTimeout,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Sync: Sync{
			BatchSize:   batchSize,
			MaxAttempts: maxAttempts,
			RetryDelay:  retryDelay,
		},
		Workers: Workers{
			RefreshInterval: refreshInterval,
			ProbeInterval:   probeInterval,
		},
		JSONFilePath: jsonConfigPath,
	}
}
