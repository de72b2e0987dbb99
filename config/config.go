package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/vinodismyname/sheettools/pkg/validation"
)

// Config is the effective server configuration.
type Config struct {
	ListenAddr  string `toml:"listen_addr" validate:"required,hostname_port"`
	MCPEndpoint string `toml:"mcp_endpoint" validate:"omitempty,startswith=/"`
	ReadOnly    bool   `toml:"read_only"`

	LogLevel  string `toml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `toml:"log_format" validate:"oneof=json console"`

	MaxConcurrentRequests int   `toml:"max_concurrent_requests" validate:"gte=1"`
	MaxOpenWorkbooks      int   `toml:"max_open_workbooks" validate:"gte=1"`
	MaxRequestBytes       int64 `toml:"max_request_bytes" validate:"gte=0"`

	// Passed to excelize; zero keeps the library defaults.
	UnzipSizeLimit    int64 `toml:"unzip_size_limit" validate:"gte=0"`
	UnzipXMLSizeLimit int64 `toml:"unzip_xml_size_limit" validate:"gte=0"`

	OperationTimeout      time.Duration `toml:"operation_timeout" validate:"gte=0"`
	AcquireRequestTimeout time.Duration `toml:"acquire_request_timeout" validate:"gte=0"`
	ShutdownTimeout       time.Duration `toml:"shutdown_timeout" validate:"gte=0"`

	// AllowedDirs confines the files the run command reads and writes.
	// Empty leaves local paths unrestricted.
	AllowedDirs []string `toml:"allowed_dirs"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:            DefaultListenAddr,
		MCPEndpoint:           DefaultMCPEndpoint,
		LogLevel:              DefaultLogLevel,
		LogFormat:             DefaultLogFormat,
		MaxConcurrentRequests: DefaultMaxConcurrentRequests,
		MaxOpenWorkbooks:      DefaultMaxOpenWorkbooks,
		MaxRequestBytes:       DefaultMaxRequestBytes,
		OperationTimeout:      DefaultOperationTimeout,
		AcquireRequestTimeout: DefaultAcquireRequestTimeout,
		ShutdownTimeout:       DefaultShutdownTimeout,
	}
}

// Validate checks the final configuration, after CLI flags are applied.
func (c Config) Validate() error {
	if msg := validation.ValidateStruct(c); msg != "" {
		return fmt.Errorf("config: %s", msg)
	}
	return nil
}

// Options controls where Load looks for settings.
type Options struct {
	// Path of the TOML file. A missing file is not an error unless Required is set.
	Path     string
	Required bool
	// DotEnvFiles are read in order; earlier files win. Real environment
	// variables always take precedence over dotenv values.
	DotEnvFiles []string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds config with precedence: defaults → TOML file → dotenv files → environment.
// CLI flags are applied by the caller afterwards.
func Load(opts Options) (Config, error) {
	cfg := Default()

	if opts.Path != "" {
		if _, err := toml.DecodeFile(opts.Path, &cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) || opts.Required {
				return cfg, fmt.Errorf("config: read %s: %w", opts.Path, err)
			}
		}
	}

	dotenv := map[string]string{}
	for _, name := range opts.DotEnvFiles {
		values, err := godotenv.Read(name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return cfg, fmt.Errorf("config: read %s: %w", name, err)
		}
		for k, v := range values {
			if _, seen := dotenv[k]; !seen {
				dotenv[k] = v
			}
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			return strings.TrimSpace(v), true
		}
		v, ok := dotenv[EnvPrefix+key]
		return strings.TrimSpace(v), ok
	}
	if err := applyEnv(&cfg, env); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := env(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := env(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	integer64 := func(key string, dst *int64) {
		if v, ok := env(key); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := env(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("LISTEN_ADDR", &cfg.ListenAddr)
	if v, ok := env("MCP_ENDPOINT"); ok {
		// An explicitly empty value disables the endpoint.
		cfg.MCPEndpoint = v
	}
	if v, ok := env("READ_ONLY"); ok && v != "" {
		cfg.ReadOnly = ParseBool(v)
	}
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	integer("MAX_CONCURRENT_REQUESTS", &cfg.MaxConcurrentRequests)
	integer("MAX_OPEN_WORKBOOKS", &cfg.MaxOpenWorkbooks)
	integer64("MAX_REQUEST_BYTES", &cfg.MaxRequestBytes)
	integer64("UNZIP_SIZE_LIMIT", &cfg.UnzipSizeLimit)
	integer64("UNZIP_XML_SIZE_LIMIT", &cfg.UnzipXMLSizeLimit)
	duration("OPERATION_TIMEOUT", &cfg.OperationTimeout)
	duration("ACQUIRE_REQUEST_TIMEOUT", &cfg.AcquireRequestTimeout)
	duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	if v, ok := env("ALLOWED_DIRS"); ok && v != "" {
		cfg.AllowedDirs = filepath.SplitList(v)
	}

	return errors.Join(errs...)
}

// ParseBool accepts the usual truthy spellings: 1, true, yes, on.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
