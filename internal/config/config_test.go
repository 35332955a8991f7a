// ABOUTME: Tests for configuration loading
// ABOUTME: Covers env var expansion, duration parsing, default filling, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalConfig = `
gateway:
  app_id: "12345"
  token: "secret"
database:
  path: /tmp/ledger.db
`

func TestLoad_Minimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "12345", cfg.Gateway.AppID)
	assert.Equal(t, "secret", cfg.Gateway.Token)
	assert.Equal(t, "https://api.sgroup.qq.com", cfg.Gateway.BaseURL)
	assert.Equal(t, "/tmp/ledger.db", cfg.Database.Path)

	// Unset messaging fields take the production defaults
	dc := cfg.DispatchConfig()
	assert.Equal(t, 3, dc.MaxRetry)
	assert.Equal(t, time.Second, dc.RetryDelay)
	assert.Equal(t, time.Minute, dc.DedupWindow)
	assert.Equal(t, int64(100), dc.SeqStep)
	assert.Equal(t, time.Second, dc.RateLimit)
	assert.Equal(t, 30*time.Second, dc.CleanupInterval)
	assert.Equal(t, int64(100), dc.QueueSize)
}

func TestLoad_FullMessagingSection(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
gateway:
  app_id: "12345"
  token: "secret"
  base_url: https://sandbox.sgroup.qq.com
messaging:
  max_retry: 5
  retry_delay: 250ms
  dedup_window: 2m
  seq_step: 10
  rate_limit: 500ms
  cleanup_interval: 1m
  queue_size: 32
database:
  path: /tmp/ledger.db
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "https://sandbox.sgroup.qq.com", cfg.Gateway.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	dc := cfg.DispatchConfig()
	assert.Equal(t, 5, dc.MaxRetry)
	assert.Equal(t, 250*time.Millisecond, dc.RetryDelay)
	assert.Equal(t, 2*time.Minute, dc.DedupWindow)
	assert.Equal(t, int64(10), dc.SeqStep)
	assert.Equal(t, 500*time.Millisecond, dc.RateLimit)
	assert.Equal(t, time.Minute, dc.CleanupInterval)
	assert.Equal(t, int64(32), dc.QueueSize)
}

func TestLoad_ExplicitZeroMaxRetry(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
gateway:
  app_id: "12345"
  token: "secret"
messaging:
  max_retry: 0
database:
  path: /tmp/ledger.db
`))
	require.NoError(t, err)

	// An explicit 0 means no retries and must not be replaced by the default
	assert.Equal(t, 0, cfg.DispatchConfig().MaxRetry)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_QQ_APP_ID", "env-app")
	t.Setenv("TEST_QQ_TOKEN", "env-token")

	cfg, err := Load(writeConfig(t, `
gateway:
  app_id: "${TEST_QQ_APP_ID}"
  token: "${TEST_QQ_TOKEN}"
database:
  path: /tmp/ledger.db
`))
	require.NoError(t, err)

	assert.Equal(t, "env-app", cfg.Gateway.AppID)
	assert.Equal(t, "env-token", cfg.Gateway.Token)
}

func TestLoad_UnsetEnvVarFailsValidation(t *testing.T) {
	_, err := Load(writeConfig(t, `
gateway:
  app_id: "${DEFINITELY_UNSET_VAR_12345}"
  token: "secret"
database:
  path: /tmp/ledger.db
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_id")
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
gateway:
  app_id: "12345"
  token: "secret"
messaging:
  retry_delay: banana
database:
  path: /tmp/ledger.db
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry_delay")
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing token",
			yaml: `
gateway:
  app_id: "12345"
database:
  path: /tmp/ledger.db
`,
			wantErr: "gateway.token",
		},
		{
			name: "missing database path",
			yaml: `
gateway:
  app_id: "12345"
  token: "secret"
`,
			wantErr: "database.path",
		},
		{
			name: "negative retry",
			yaml: `
gateway:
  app_id: "12345"
  token: "secret"
messaging:
  max_retry: -1
database:
  path: /tmp/ledger.db
`,
			wantErr: "max_retry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
