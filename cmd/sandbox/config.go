package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"ojbox/internal/sandbox/spec"
	"ojbox/pkg/errors"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// loadRunConfig reads an execution config from a TOML, YAML or JSON file,
// chosen by extension.
func loadRunConfig(path string) (spec.ExecutionConfig, error) {
	cfg := unlimitedConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, errors.ConfigLoadFailed, "read run config %s", path)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return cfg, errors.Newf(errors.ConfigLoadFailed, "unsupported run config format %q", ext)
	}
	if err != nil {
		return cfg, errors.Wrapf(err, errors.ConfigLoadFailed, "parse run config %s", path)
	}
	return cfg, nil
}

// unlimitedConfig is the starting point for files and flags: omitted limits
// mean no limit, omitted ids mean nobody.
func unlimitedConfig() spec.ExecutionConfig {
	return spec.ExecutionConfig{
		MaxCPUTime:       spec.Unlimited,
		MaxRealTime:      spec.Unlimited,
		MaxMemory:        spec.Unlimited,
		MaxOutputSize:    spec.Unlimited,
		MaxProcessNumber: spec.Unlimited,
		UID:              nobody,
		GID:              nobody,
	}
}

const nobody = spec.Nobody
