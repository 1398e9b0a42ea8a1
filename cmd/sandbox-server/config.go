package main

import (
	"fmt"
	"os"
	"time"

	"ojbox/internal/sandbox/engine"
	"ojbox/internal/server"
	"ojbox/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "127.0.0.1:8090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 2 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// AppConfig holds sandbox-server config.
type AppConfig struct {
	Server  server.Config `yaml:"server"`
	Logger  logger.Config `yaml:"logger"`
	Sandbox engine.Config `yaml:"sandbox"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.MaxConcurrentRuns <= 0 {
		cfg.Server.MaxConcurrentRuns = 1
	}
	if cfg.Server.Username != "" && cfg.Server.Password == "" {
		return nil, fmt.Errorf("server password is required when username is set")
	}
	return &cfg, nil
}
