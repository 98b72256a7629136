package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Sentinel validation errors, surfaced by validateConfig.
var (
	ErrInvalidWorkers           = errors.New("config: workers must be >= 0")
	ErrInvalidTimelyConnections = errors.New("config: timely_connections must be >= 1")
	ErrConflictingSources       = errors.New("config: replay_logs and a TCP listen address are mutually exclusive")
	ErrMissingSource            = errors.New("config: either replay_logs or a TCP listen address must be set")
	ErrInvalidEncoding          = errors.New("config: stream_encoding must be \"self-describing\" or \"legacy\"")
	ErrInvalidMemoryBudget      = errors.New("config: memory_budget is not a valid size")
)

// Config mirrors the recognized options of §6, field-for-field.
type Config struct {
	Workers             int    `mapstructure:"workers"`
	TimelyConnections   int    `mapstructure:"timely_connections"`
	DifferentialEnabled bool   `mapstructure:"differential_enabled"`
	ProgressEnabled     bool   `mapstructure:"progress_enabled"`
	DisableTimeline     bool   `mapstructure:"disable_timeline"`
	ReplayLogs          string `mapstructure:"replay_logs"`
	StreamEncoding      string `mapstructure:"stream_encoding"`
	SaveLogs            string `mapstructure:"save_logs"`
	MemoryBudget        string `mapstructure:"memory_budget"`
	TCPListenAddr       string `mapstructure:"tcp_listen_addr"`

	// Delegated to external renderers (§6), still recognized here so the
	// CLI and config file share one schema.
	Palette       string `mapstructure:"palette"`
	OutputDir     string `mapstructure:"output_dir"`
	DumpJSON      bool   `mapstructure:"dump_json"`
	NoReportFile  bool   `mapstructure:"no_report_file"`
	ReportFile    string `mapstructure:"report_file"`
}

// LoadConfig reads configuration from configPath (if non-empty), env vars
// prefixed FLOWSIGHT_, and defaults, in viper's usual precedence order.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FLOWSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("flowsight")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/flowsight")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && configPath != "" {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("timely_connections", DefaultTimelyConnections)
	v.SetDefault("differential_enabled", DefaultDifferentialEnable)
	v.SetDefault("progress_enabled", DefaultProgressEnable)
	v.SetDefault("disable_timeline", DefaultDisableTimeline)
	v.SetDefault("replay_logs", DefaultReplayLogs)
	v.SetDefault("stream_encoding", string(DefaultStreamEncoding))
	v.SetDefault("save_logs", DefaultSaveLogs)
	v.SetDefault("memory_budget", DefaultMemoryBudget)
	v.SetDefault("tcp_listen_addr", DefaultTCPListenAddr)
	v.SetDefault("palette", DefaultPalette)
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("dump_json", DefaultDumpJSON)
	v.SetDefault("no_report_file", DefaultNoReportFile)
	v.SetDefault("report_file", DefaultReportFile)
}

func validateConfig(c *Config) error {
	if c.Workers < 0 {
		return ErrInvalidWorkers
	}
	if c.TimelyConnections < 1 {
		return ErrInvalidTimelyConnections
	}
	switch StreamEncoding(c.StreamEncoding) {
	case EncodingSelfDescribing, EncodingLegacy:
	default:
		return ErrInvalidEncoding
	}
	if c.ReplayLogs != "" && c.TCPListenAddr != "" {
		return ErrConflictingSources
	}
	if c.ReplayLogs == "" && c.TCPListenAddr == "" {
		return ErrMissingSource
	}
	if c.MemoryBudget != "" {
		if _, err := humanize.ParseBytes(c.MemoryBudget); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMemoryBudget, err)
		}
	}
	return nil
}

// MemoryBudgetBytes parses MemoryBudget with humanize, returning 0 when
// unset (the zero-config, no-solver path).
func (c *Config) MemoryBudgetBytes() (int64, error) {
	if c.MemoryBudget == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MemoryBudget)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidMemoryBudget, err)
	}
	return int64(n), nil
}
