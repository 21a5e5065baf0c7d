package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenTTL(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", value: "3600", want: time.Hour},
		{name: "days", value: "7d", want: 7 * 24 * time.Hour},
		{name: "go duration", value: "90m", want: 90 * time.Minute},
		{name: "empty", value: "", wantErr: true},
		{name: "zero seconds", value: "0", wantErr: true},
		{name: "negative days", value: "-1d", wantErr: true},
		{name: "garbage", value: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTokenTTL(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewConfigurationDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	cfg, err := NewConfiguration()
	require.NoError(t, err)
	assert.Equal(t, TokenTTL(7*24*time.Hour), cfg.SecretConfig.TokenTTL)
	assert.Equal(t, "postgres", cfg.StorageConfig.StateStore)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.QueueConfig.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.ServerConfig.AuthorityTimeout)
	assert.False(t, cfg.ServerConfig.IsProduction())
}

func TestNewConfigurationRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := NewSecretConfig()
	assert.Error(t, err)

	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	_, err = NewSecretConfig()
	assert.Error(t, err)
}

func TestParseFlagsPriority(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("RUN_ADDRESS", ":5000")
	cfg, err := NewConfiguration()
	require.NoError(t, err)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	require.NoError(t, cfg.ParseFlags(fs, []string{"-d", "postgres://localhost/db"}))
	assert.Equal(t, ":5000", cfg.ServerConfig.ServerAddress)
	assert.Equal(t, "postgres://localhost/db", cfg.StorageConfig.DatabaseDSN)
	assert.Equal(t, 2, cfg.QueueConfig.WorkerNumber)

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	require.NoError(t, cfg.ParseFlags(fs, []string{"-a", ":6000"}))
	assert.Equal(t, ":6000", cfg.ServerConfig.ServerAddress)
}

func TestParseFlagsRejectsNonPositiveWorkers(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	cfg, err := NewConfiguration()
	require.NoError(t, err)
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	assert.Error(t, cfg.ParseFlags(fs, []string{"-n", "0"}))
}
