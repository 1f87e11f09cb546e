package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfig_ApplyDefaults(t *testing.T) {
	cfg := &ClientConfig{}
	cfg.applyDefaults()

	assert.Equal(t, DefaultRequestTimeout, cfg.Remote.RequestTimeout)
	assert.Equal(t, DefaultBatchSize, cfg.Sync.BatchSize)
	assert.Equal(t, DefaultMaxAttempts, cfg.Sync.MaxAttempts)
	assert.Equal(t, DefaultRetryDelay, cfg.Sync.RetryDelay)
	assert.Equal(t, DefaultProbeInterval, cfg.Workers.ProbeInterval)
}

func TestClientConfig_ApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &ClientConfig{
		Sync: ClientSync{
			BatchSize:   10,
			MaxAttempts: 7,
			RetryDelay:  time.Minute,
		},
	}
	cfg.applyDefaults()

	assert.Equal(t, 10, cfg.Sync.BatchSize)
	assert.Equal(t, 7, cfg.Sync.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Sync.RetryDelay)
}

func validClientConfig() *ClientConfig {
	cfg := &ClientConfig{
		Remote:  ClientRemote{BaseURL: "http://localhost:8080"},
		Storage: ClientStorage{DB: ClientDB{DSN: "fieldline.db"}},
	}
	cfg.applyDefaults()
	return cfg
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *ClientConfig)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(cfg *ClientConfig) {},
		},
		{
			name:    "empty dsn",
			mutate:  func(cfg *ClientConfig) { cfg.Storage.DB.DSN = "" },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "in-memory dsn is not durable",
			mutate:  func(cfg *ClientConfig) { cfg.Storage.DB.DSN = ":memory:" },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "empty base url",
			mutate:  func(cfg *ClientConfig) { cfg.Remote.BaseURL = "" },
			wantErr: ErrInvalidRemoteConfigs,
		},
		{
			name:    "zero batch size",
			mutate:  func(cfg *ClientConfig) { cfg.Sync.BatchSize = 0 },
			wantErr: ErrInvalidSyncConfigs,
		},
		{
			name:    "negative retry delay",
			mutate:  func(cfg *ClientConfig) { cfg.Sync.RetryDelay = -time.Second },
			wantErr: ErrInvalidSyncConfigs,
		},
		{
			name:    "zero probe interval",
			mutate:  func(cfg *ClientConfig) { cfg.Workers.ProbeInterval = 0 },
			wantErr: ErrInvalidWorkerConfigs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validClientConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"remote": {
			"base_url": "http://crm.example.com",
			"auth_token": "tok",
			"request_timeout": "30s"
		},
		"storage": {"db": {"dsn": "fieldline.db"}},
		"sync": {"batch_size": 8, "max_attempts": 5, "retry_delay": "10s"},
		"workers": {"refresh_interval": "2m", "probe_interval": "15s"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "http://crm.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "tok", cfg.Remote.AuthToken)
	assert.Equal(t, 30*time.Second, cfg.Remote.RequestTimeout)
	assert.Equal(t, "fieldline.db", cfg.Storage.DB.DSN)
	assert.Equal(t, 8, cfg.Sync.BatchSize)
	assert.Equal(t, 5, cfg.Sync.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Sync.RetryDelay)
	assert.Equal(t, 2*time.Minute, cfg.Workers.RefreshInterval)
	assert.Equal(t, 15*time.Second, cfg.Workers.ProbeInterval)
}

func TestParseJSON_MissingFile(t *testing.T) {
	_, err := parseJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{name: "string form", input: `"45s"`, want: 45 * time.Second},
		{name: "numeric nanoseconds", input: `1000000000`, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			require.NoError(t, d.UnmarshalJSON([]byte(tt.input)))
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}

func TestDuration_UnmarshalJSON_BadString(t *testing.T) {
	var d Duration
	assert.Error(t, d.UnmarshalJSON([]byte(`"not-a-duration"`)))
}

func TestConfigBuilder_MergePrecedence(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{Remote: Remote{BaseURL: "http://from-env"}},
		&StructuredConfig{
			Remote: Remote{BaseURL: "http://from-flags"},
			Sync:   Sync{BatchSize: 9},
		},
	)

	cfg, err := b.build()
	require.NoError(t, err)

	// earlier sources win for fields they set; later sources fill the gaps
	assert.Equal(t, "http://from-env", cfg.Remote.BaseURL)
	assert.Equal(t, 9, cfg.Sync.BatchSize)
}
