package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a yaml or json config file, fills defaults and applies the
// environment overlay. A missing file yields the default configuration.
func LoadFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = DefaultConfig()
	}
	applyDefaults(cfg)
	mergeEnvVars(cfg)
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON)")
			}
		}
	}
	return &cfg, nil
}

func (cm *ConfigManager) load() error {
	cfg, err := readFile(cm.configPath)
	if err != nil {
		return err
	}
	applyDefaults(cfg)

	if info, err := os.Stat(cm.configPath); err == nil {
		cm.lastMod = info.ModTime()
	}
	cm.mu.Lock()
	cm.config = cfg
	cm.mu.Unlock()
	log.WithField("path", cm.configPath).Info("configuration loaded")
	return nil
}

func (cm *ConfigManager) save(cfg *Config) error {
	if cm.configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(cm.configPath)) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if info, err := os.Stat(cm.configPath); err == nil {
		cm.lastMod = info.ModTime()
	}

	log.WithField("path", cm.configPath).Info("configuration saved")
	return nil
}
