package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ManifestsDir string `json:"manifests_dir" yaml:"manifests_dir" toml:"manifests_dir"`
	// DeviceMemoryKB overrides the device memory budget, in kilobytes.
	DeviceMemoryKB  uint64   `json:"device_memory_kb" yaml:"device_memory_kb" toml:"device_memory_kb"`
	SlotsPerNetwork int      `json:"slots_per_network" yaml:"slots_per_network" toml:"slots_per_network"`
	AcquireWaitMS   int      `json:"acquire_wait_ms" yaml:"acquire_wait_ms" toml:"acquire_wait_ms"`
	DrainTimeoutMS  int      `json:"drain_timeout_ms" yaml:"drain_timeout_ms" toml:"drain_timeout_ms"`
	LogLevel        string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORSEnabled     bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins     []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
