package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the recognized keys of ~/.osmdlrc.toml. Flags
// override config values; config values override the library defaults
// (DefaultOptions()).
type fileConfig struct {
	Overwrite           string `toml:"overwrite,omitempty"`
	MaxConcurrentChunks int    `toml:"max_concurrent_chunks,omitempty"`
	ChunkSizeMB         int    `toml:"chunk_size_mb,omitempty"`
	RetryBudget         int    `toml:"retry_budget,omitempty"`
	ConnectTimeoutMS    int    `toml:"connect_timeout_ms,omitempty"`
	RequestTimeoutMS    int    `toml:"request_timeout_ms,omitempty"`
	DefaultOutputDir    string `toml:"default_output_dir,omitempty"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".osmdlrc.toml"
	}
	return filepath.Join(home, ".osmdlrc.toml")
}

// loadFileConfig reads path and returns a zero-value fileConfig (meaning
// "nothing set, defaults apply") if it doesn't exist.
func loadFileConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
