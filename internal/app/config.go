package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/specialistvlad/instancegraph/modules/print"
	"gopkg.in/yaml.v3"
)

// DefaultWorkerCount is used when no worker count is configured.
const DefaultWorkerCount = 10

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SnapshotPaths []string `yaml:"snapshots"` // hcl files

	LogFormat   string `yaml:"log_format"`
	LogLevel    string `yaml:"log_level"`
	WorkerCount int    `yaml:"workers"`

	// RedisURL selects the Redis property store. Empty keeps properties in
	// memory.
	RedisURL string `yaml:"redis_url"`

	// EventsURL enables progress forwarding to a socket.io server.
	EventsURL       string `yaml:"events_url"`
	EventsNamespace string `yaml:"events_namespace"`

	// FailOperations are simulated failures, "[instance:]operation".
	FailOperations []string `yaml:"fail_operations"`
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.SnapshotPaths) == 0 {
		return nil, errors.New("at least one snapshot path is required")
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("invalid workers %d: must not be negative", cfg.WorkerCount)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}

	for _, rule := range cfg.FailOperations {
		if _, _, err := print.ParseFailure(rule); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// LoadConfigFile reads a YAML configuration file. The result is not
// validated; callers layer flags over it and pass it to NewConfig.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return cfg, nil
}
