// Package config provides configuration for mlscored, the RPC server
// that exposes the session layer over the network.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Options are command-line overrides applied on top of a loaded or
// default Config, mirroring the flag-then-file-then-default layering
// mlscored's flag parser builds.
type Options struct {
	DataDir  string
	RPCAddr  string
	LogLevel string
	LogFile  string
	LogToTTY bool
}

// Config is mlscored's full runtime configuration.
type Config struct {
	// DataDir holds nothing persistent today (sessions are process-local
	// per spec.md §9), but is retained as the root for any future
	// provider export snapshots. The access log path is Log.File, set
	// independently of DataDir.
	DataDir string `json:"dataDir"`

	RPC RPCConfig `json:"rpc"`
	Log LogConfig `json:"log"`
}

// RPCConfig configures the gorilla/rpc JSON-RPC listener.
type RPCConfig struct {
	Addr string `json:"addr"`
	Path string `json:"path"`
}

// LogConfig configures luxfi/log plus its lumberjack-backed file sink.
type LogConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	ToTTY      bool   `json:"toTTY"`
	MaxSizeMB  int    `json:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays"`
}

// Default returns mlscored's default configuration.
func Default() *Config {
	return &Config{
		DataDir: "~/.mlscored",
		RPC: RPCConfig{
			Addr: "127.0.0.1:8765",
			Path: "/rpc",
		},
		Log: LogConfig{
			Level:      "info",
			File:       "",
			ToTTY:      true,
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load loads configuration from a JSON file (if path is non-empty) and
// applies command-line option overrides, mirroring the layering the
// original node config used for its own Default/Load pair.
func Load(path string, opts *Options) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if opts != nil {
		if opts.DataDir != "" {
			cfg.DataDir = opts.DataDir
		}
		if opts.RPCAddr != "" {
			cfg.RPC.Addr = opts.RPCAddr
		}
		if opts.LogLevel != "" {
			cfg.Log.Level = opts.LogLevel
		}
		if opts.LogFile != "" {
			cfg.Log.File = opts.LogFile
		}
		cfg.Log.ToTTY = opts.LogToTTY
	}

	cfg.DataDir = expandPath(cfg.DataDir)
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}

	return cfg, nil
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
