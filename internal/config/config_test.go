package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PMSAP_SAP_BASE_URL", "https://sap.example.com/api")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "data/pmsap.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 20*time.Second, cfg.SAPTimeout)
	assert.Equal(t, 5*time.Minute, cfg.FetchCooldown)
	assert.Equal(t, 4, cfg.SyncConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.StaleAfter)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PMSAP_SAP_BASE_URL", "https://sap.example.com")
	t.Setenv("PMSAP_SAP_API_KEY", "k")
	t.Setenv("PMSAP_CRON_SECRET", "s3cret")
	t.Setenv("PMSAP_FETCH_COOLDOWN", "90s")
	t.Setenv("PMSAP_SYNC_CONCURRENCY", "8")
	t.Setenv("PMSAP_LOG_FORMAT", "console")
	t.Setenv("PMSAP_DB_PATH", "/tmp/x.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.SAPAPIKey)
	assert.Equal(t, "s3cret", cfg.CronSecret)
	assert.Equal(t, 90*time.Second, cfg.FetchCooldown)
	assert.Equal(t, 8, cfg.SyncConcurrency)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("PMSAP_SAP_BASE_URL", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Config{SAPBaseURL: "not a url", SAPUsername: "u", SAPTimeout: time.Second, StaleAfter: time.Hour}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
	assert.Contains(t, err.Error(), "SYNC_CONCURRENCY")
	assert.Contains(t, err.Error(), "FETCH_COOLDOWN")
}
