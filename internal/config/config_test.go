package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TOKEN_SERVICE_URL", "http://tokens.internal")
	t.Setenv("RATES_API_URL", "http://rates.internal")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Pipeline.BatchSize)
	assert.Equal(t, 30000, cfg.Pipeline.BatchIntervalMs)
	assert.Equal(t, 8080, cfg.Server.MetricsPort)
	assert.Equal(t, "fills", cfg.Elasticsearch.Index)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.InDelta(t, 5, cfg.RatesAPI.RequestsPerSecond, 0)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BATCH_SIZE", "250")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATES_API_RPS", "2.5")
	t.Setenv("ELASTICSEARCH_URL", "http://es-1:9200, http://es-2:9200")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Pipeline.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.InDelta(t, 2.5, cfg.RatesAPI.RequestsPerSecond, 0)
	assert.Equal(t, []string{"http://es-1:9200", "http://es-2:9200"}, cfg.Elasticsearch.Addresses)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T)
		wantErr string
	}{
		{
			name:    "missing token service",
			prepare: func(t *testing.T) { t.Setenv("RATES_API_URL", "http://rates.internal") },
			wantErr: "TOKEN_SERVICE_URL is required",
		},
		{
			name:    "missing rates api",
			prepare: func(t *testing.T) { t.Setenv("TOKEN_SERVICE_URL", "http://tokens.internal") },
			wantErr: "RATES_API_URL is required",
		},
		{
			name: "non-positive batch size",
			prepare: func(t *testing.T) {
				setRequiredEnv(t)
				t.Setenv("BATCH_SIZE", "0")
			},
			wantErr: "BATCH_SIZE must be positive",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.prepare(t)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BATCH_SIZE", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Pipeline.BatchSize)
}
