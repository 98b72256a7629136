package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Workers:           0,
		TimelyConnections: 1,
		StreamEncoding:    string(EncodingSelfDescribing),
		ReplayLogs:        "trace.ddshow",
	}
}

func TestValidateConfig_AcceptsAMinimalValidConfig(t *testing.T) {
	require.NoError(t, validateConfig(validConfig()))
}

func TestValidateConfig_RejectsNegativeWorkers(t *testing.T) {
	c := validConfig()
	c.Workers = -1
	require.ErrorIs(t, validateConfig(c), ErrInvalidWorkers)
}

func TestValidateConfig_RejectsZeroTimelyConnections(t *testing.T) {
	c := validConfig()
	c.TimelyConnections = 0
	require.ErrorIs(t, validateConfig(c), ErrInvalidTimelyConnections)
}

func TestValidateConfig_RejectsUnknownEncoding(t *testing.T) {
	c := validConfig()
	c.StreamEncoding = "custom"
	require.ErrorIs(t, validateConfig(c), ErrInvalidEncoding)
}

func TestValidateConfig_RejectsBothReplayAndTCPSource(t *testing.T) {
	c := validConfig()
	c.TCPListenAddr = "127.0.0.1:8000"
	require.ErrorIs(t, validateConfig(c), ErrConflictingSources)
}

func TestValidateConfig_RejectsNeitherSource(t *testing.T) {
	c := validConfig()
	c.ReplayLogs = ""
	require.ErrorIs(t, validateConfig(c), ErrMissingSource)
}

func TestValidateConfig_RejectsUnparseableMemoryBudget(t *testing.T) {
	c := validConfig()
	c.MemoryBudget = "not-a-size"
	require.ErrorIs(t, validateConfig(c), ErrInvalidMemoryBudget)
}

func TestLoadConfig_AppliesDefaultsAndEnvOverride(t *testing.T) {
	t.Setenv("FLOWSIGHT_REPLAY_LOGS", "trace.ddshow")
	t.Setenv("FLOWSIGHT_WORKERS", "4")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "trace.ddshow", cfg.ReplayLogs)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, DefaultTimelyConnections, cfg.TimelyConnections)
	require.Equal(t, string(EncodingSelfDescribing), cfg.StreamEncoding)
}

func TestLoadConfig_FailsValidationWithNoSourceConfigured(t *testing.T) {
	_, err := LoadConfig("")
	require.ErrorIs(t, err, ErrMissingSource)
}

func TestMemoryBudgetBytes_EmptyIsZeroNoSolverPath(t *testing.T) {
	c := &Config{}
	n, err := c.MemoryBudgetBytes()
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
}

func TestMemoryBudgetBytes_ParsesHumanSize(t *testing.T) {
	c := &Config{MemoryBudget: "512MB"}
	n, err := c.MemoryBudgetBytes()
	require.NoError(t, err)
	require.Equal(t, int64(512_000_000), n)
}

func TestMemoryBudgetBytes_RejectsGarbage(t *testing.T) {
	c := &Config{MemoryBudget: "not-a-size"}
	_, err := c.MemoryBudgetBytes()
	require.ErrorIs(t, err, ErrInvalidMemoryBudget)
}
