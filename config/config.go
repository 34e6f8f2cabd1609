package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Port          int    `toml:"port"`
	DataDir       string `toml:"data_dir"`
	WriteTimeout  int    `toml:"write_timeout"` // seconds
	OutboundQueue int    `toml:"outbound_queue"`
	RetentionDays int    `toml:"retention_days"`
	ControlSocket string `toml:"control_socket"`
	LogLevel      string `toml:"log_level"`
}

// Load builds the configuration from defaults, then an optional TOML file,
// then TCHAT_* environment overrides (strongest).
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:          1234,
		DataDir:       "data",
		WriteTimeout:  30,
		OutboundQueue: 64,
		RetentionDays: 30,
		ControlSocket: "/tmp/tchat.sock",
		LogLevel:      "info",
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if portStr := os.Getenv("TCHAT_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}

	if dataDir := os.Getenv("TCHAT_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}

	if timeoutStr := os.Getenv("TCHAT_WRITE_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.WriteTimeout = timeout
		}
	}

	if queueStr := os.Getenv("TCHAT_OUTBOUND_QUEUE"); queueStr != "" {
		if queue, err := strconv.Atoi(queueStr); err == nil {
			cfg.OutboundQueue = queue
		}
	}

	if daysStr := os.Getenv("TCHAT_RETENTION_DAYS"); daysStr != "" {
		if days, err := strconv.Atoi(daysStr); err == nil {
			cfg.RetentionDays = days
		}
	}

	if socket := os.Getenv("TCHAT_CONTROL_SOCKET"); socket != "" {
		cfg.ControlSocket = socket
	}

	if level := os.Getenv("TCHAT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}
