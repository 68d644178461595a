package config

// Log controls the node's structured logger.
type Log struct {
	Level string `toml:"Level"`
	// File, when set, receives a copy of every log line and is rotated.
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures OTLP export of traces and metrics.
type Telemetry struct {
	Endpoint string            `toml:"Endpoint"`
	Insecure bool              `toml:"Insecure"`
	Traces   bool              `toml:"Traces"`
	Metrics  bool              `toml:"Metrics"`
	Headers  map[string]string `toml:"Headers"`
}

// Indexer selects the SQL projection of tip history. An empty DSN disables it.
type Indexer struct {
	DSN string `toml:"DSN"`
}

// DevFaucet credits new accounts for local testing. Never enable it on a
// shared deployment.
type DevFaucet struct {
	Enabled bool   `toml:"Enabled"`
	Amount  string `toml:"Amount"`
}
