package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"voxelworld/internal/config"
)

const (
	envConfigJSON = "VOXEL_CONFIG_JSON"
	envConfigYAML = "VOXEL_CONFIG_YAML_B64"
)

var errAmbiguousPush = fmt.Errorf("both %s and %s are set", envConfigJSON, envConfigYAML)

// pushedConfig reads a world configuration handed to the process through the
// environment. The payload is layered over the defaults, so a deployment can
// push only the seed or the render distance. It returns nil when nothing was
// pushed.
func pushedConfig() (*config.Config, error) {
	rawJSON := os.Getenv(envConfigJSON)
	rawYAML := os.Getenv(envConfigYAML)

	switch {
	case rawJSON == "" && rawYAML == "":
		return nil, nil
	case rawJSON != "" && rawYAML != "":
		return nil, errAmbiguousPush
	}

	cfg := config.Default()
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", envConfigJSON, err)
		}
	} else {
		doc, err := base64.StdEncoding.DecodeString(rawYAML)
		if err != nil {
			return nil, fmt.Errorf("%s: not base64: %w", envConfigYAML, err)
		}
		if err := yaml.Unmarshal(doc, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", envConfigYAML, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pushed world config rejected: %w", err)
	}
	return cfg, nil
}

// saveConfig writes cfg in the format config.Load expects for path. The file
// is replaced through a rename so a crashed write never leaves half a config.
func saveConfig(path string, cfg *config.Config) error {
	var (
		doc []byte
		err error
	)
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		doc, err = yaml.Marshal(cfg)
	default:
		doc, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode world config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".voxelworld-config-*")
	if err != nil {
		return fmt.Errorf("stage world config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("stage world config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stage world config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("stage world config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install world config at %s: %w", path, err)
	}
	return nil
}

// writePushedConfig stores a pushed configuration at cfgPath so the regular
// -config loading picks it up. It reports whether a file was written.
func writePushedConfig(cfgPath string) (bool, error) {
	cfg, err := pushedConfig()
	if err != nil || cfg == nil {
		return false, err
	}
	if cfgPath == "" {
		return false, errors.New("world config pushed through the environment needs a -config path")
	}
	if err := saveConfig(cfgPath, cfg); err != nil {
		return false, err
	}
	return true, nil
}
