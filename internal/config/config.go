// Package config holds the explicit configuration value threaded through
// the components. Nothing here is ambient or global; the CLI builds one
// Config and passes it down.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Environment variables consumed when flags are not given.
const (
	EnvDir           = "SNEKRETAIRY_DIR"
	EnvContextBudget = "SNEKRETAIRY_CONTEXT_BUDGET"
)

// DefaultContextBudget is the context size cap in tokens.
const DefaultContextBudget = 4000

// Config carries the settings the core needs.
type Config struct {
	// MemoryDir is the memory-storage directory.
	MemoryDir string
	// ContextBudget is the maximum context bundle size in tokens.
	ContextBudget int
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() Config {
	cfg := Config{
		MemoryDir:     os.Getenv(EnvDir),
		ContextBudget: DefaultContextBudget,
	}
	if cfg.MemoryDir == "" {
		home, _ := os.UserHomeDir()
		cfg.MemoryDir = filepath.Join(home, ".snekretairy", "memory")
	}
	if v := os.Getenv(EnvContextBudget); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ContextBudget = n
		}
	}
	return cfg
}
