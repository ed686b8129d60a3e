package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Search    SearchConfig    `yaml:"search"`
	Manager   ManagerConfig   `yaml:"manager"`
	Memory    MemoryConfig    `yaml:"memory"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// SearchConfig holds the best-first search kernel's tunables.
type SearchConfig struct {
	// Strategy is one of "astar", "wastar", or "greedy". wastar is
	// accepted for CLI parity with the original and maps to the same
	// A* search (the original itself never implemented it).
	Strategy string `yaml:"strategy"`
}

// ManagerConfig holds the round-robin coordinator's tunables.
type ManagerConfig struct {
	RoundBudget int `yaml:"round_budget"`
}

// MemoryConfig holds the memory governor's ceiling.
type MemoryConfig struct {
	CeilingMB float64 `yaml:"ceiling_mb"`
}

// TelemetryConfig holds the optional Prometheus push-gateway target.
type TelemetryConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"` // supports ${ENV_VAR} interpolation
}

// LogConfig holds logging verbosity.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns a config with sensible defaults: astar strategy,
// 2048MB memory ceiling.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Strategy: "astar",
		},
		Manager: ManagerConfig{
			RoundBudget: 1000,
		},
		Memory: MemoryConfig{
			CeilingMB: 2048,
		},
		Telemetry: TelemetryConfig{
			PushgatewayURL: "",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing path or
// missing file falls back to defaults; a present-but-malformed file is
// an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ExampleConfig returns a commented example config.
func ExampleConfig() string {
	return `# masokoban configuration file
# Priority: CLI flags > config file > defaults
# ${VAR} references in this file are replaced from the environment

search:
  # Strategy: astar, wastar, or greedy
  strategy: astar

manager:
  # Maximum rounds before giving up on an unsolved level
  round_budget: 1000

memory:
  # Abort the current search if process RSS exceeds this ceiling
  ceiling_mb: 2048

telemetry:
  # Prometheus push-gateway URL; empty disables publishing
  pushgateway_url: ${MASOKOBAN_PUSHGATEWAY_URL}

log:
  # debug, info, warn, error
  level: info
`
}
