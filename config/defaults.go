package config

import "time"

// Default runtime limits and guardrails for the spreadsheet tool server.
// They can be overridden by the TOML config file, SHEETTOOLS_* environment
// variables, or CLI flags, and are referenced by internal/runtime.

const (
	// Transport
	DefaultListenAddr  = "0.0.0.0:7777"
	DefaultMCPEndpoint = "/mcp"
	DefaultConfigFile  = "sheettools.toml"
	EnvPrefix          = "SHEETTOOLS_"

	// Logging
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenWorkbooks      = 4

	// Request bodies are unbounded unless configured.
	DefaultMaxRequestBytes = 0
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second
	DefaultShutdownTimeout       = 5 * time.Second
	DefaultReadHeaderTimeout     = 10 * time.Second
)
