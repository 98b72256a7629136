// Package config provides viper-based configuration loading for the
// analyzer CLI, recognizing the options enumerated in §6 of the external
// interface contract.
package config

// StreamEncoding selects which Framed Event Source decoding path a stream
// uses (§4.A / §6 stream_encoding).
type StreamEncoding string

const (
	EncodingSelfDescribing StreamEncoding = "self-describing"
	EncodingLegacy         StreamEncoding = "legacy"
)

// Default configuration values, applied by setDefaults before any config
// file or environment override is consulted.
const (
	DefaultWorkers            = 0 // 0 means "derive from budget/NumCPU"
	DefaultTimelyConnections  = 1
	DefaultDifferentialEnable = true
	DefaultProgressEnable     = true
	DefaultDisableTimeline    = false
	DefaultReplayLogs         = ""
	DefaultStreamEncoding     = EncodingSelfDescribing
	DefaultSaveLogs           = ""
	DefaultMemoryBudget       = ""
	DefaultPalette            = "default"
	DefaultOutputDir          = "./flowsight-report"
	DefaultDumpJSON           = false
	DefaultNoReportFile       = false
	DefaultReportFile         = "report.txt"
	DefaultTCPListenAddr      = ""
)
