package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"quotaflow-go/internal/events"

	log "github.com/sirupsen/logrus"
)

// ConfigManager owns the loaded configuration and hot reloads it.
type ConfigManager struct {
	mu         sync.RWMutex
	config     *Config
	configPath string
	stopCh     chan struct{}
	stopOnce   sync.Once
	onChange   []func(*Config)
	lastMod    time.Time
	publisher  events.Publisher
}

// candidatePaths are tried in order when no path is given.
func candidatePaths() []string {
	paths := []string{"config.yaml", "config.yml", "config.json"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".quotaflow", "config.yaml"))
	}
	return append(paths, "/etc/quotaflow/config.yaml")
}

// resolveConfigPath expands a leading ~ and falls back to the first existing
// candidate. It returns "" when nothing is found.
func resolveConfigPath(p string) (string, error) {
	if p == "" {
		for _, c := range candidatePaths() {
			if _, err := os.Stat(c); err == nil {
				return c, nil
			}
		}
		return "", nil
	}
	if rest, ok := strings.CutPrefix(p, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, rest)
	}
	return p, nil
}

// NewConfigManager loads configPath (or a discovered config file), overlays
// the environment, validates, and starts watching the file.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	cm := &ConfigManager{
		configPath: configPath,
		stopCh:     make(chan struct{}),
	}

	if err := cm.load(); err != nil {
		if configPath != "" && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cm.config = DefaultConfig()
		log.WithField("path", configPath).Warn("no config file found, running on defaults")
	}
	cm.mergeEnvVars()

	if err := logValidation(cm.GetConfig().Validate()); err != nil {
		return nil, err
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			cm.startWatcher()
		}
	}
	return cm, nil
}

// OnChange registers a callback invoked after every successful reload.
func (cm *ConfigManager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.onChange = append(cm.onChange, fn)
}

// SetEventPublisher wires the event hub used to broadcast config updates.
func (cm *ConfigManager) SetEventPublisher(p events.Publisher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.publisher = p
}

// GetConfig returns a copy of the current configuration.
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.config == nil {
		return DefaultConfig()
	}
	return cm.config.Clone()
}

// Path returns the watched file, empty when running on defaults.
func (cm *ConfigManager) Path() string { return cm.configPath }

// UpdateFeatures replaces the tier list of one feature and persists the file.
func (cm *ConfigManager) UpdateFeatures(feature string, tiers []TierConfig) error {
	cm.mu.Lock()
	if cm.config == nil {
		cm.config = DefaultConfig()
	}
	oldCopy := cm.config.Clone()
	if cm.config.Features == nil {
		cm.config.Features = map[string][]TierConfig{}
	}
	cm.config.Features[feature] = append([]TierConfig(nil), tiers...)
	newCopy := cm.config.Clone()
	cm.mu.Unlock()

	if cm.configPath != "" {
		if err := cm.save(newCopy); err != nil {
			return err
		}
	}
	cm.emitChange(oldCopy, newCopy)
	return nil
}

// Close stops the watcher. Safe to call more than once.
func (cm *ConfigManager) Close() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}

func (cm *ConfigManager) mergeEnvVars() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.config != nil {
		mergeEnvVars(cm.config)
	}
}

func (cm *ConfigManager) listenersSnapshot() ([]func(*Config), events.Publisher, string) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	callbacks := make([]func(*Config), len(cm.onChange))
	copy(callbacks, cm.onChange)
	return callbacks, cm.publisher, cm.configPath
}

func (cm *ConfigManager) emitChange(oldCfg, newCfg *Config) {
	callbacks, publisher, path := cm.listenersSnapshot()

	for _, fn := range callbacks {
		fn(newCfg)
	}

	if publisher != nil && newCfg != nil {
		event := ConfigChangeEvent{
			Path:      path,
			UpdatedAt: time.Now().UTC(),
			Config:    *newCfg,
			Previous:  oldCfg,
		}
		publisher.Publish(context.Background(), events.TopicConfigUpdated, event, nil)
	}
}

// ConfigChangeEvent is the payload broadcast when configuration changes.
type ConfigChangeEvent struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
	Config    Config    `json:"config"`
	Previous  *Config   `json:"previous,omitempty"`
}

func logValidation(result ValidationResult) error {
	for _, w := range result.Warnings {
		log.WithField("field", w.Field).Warn(w.Message)
	}
	if !result.Valid {
		return result.Err()
	}
	return nil
}
