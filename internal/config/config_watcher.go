package config

import (
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const (
	reloadDebounce  = 100 * time.Millisecond
	pollingInterval = 5 * time.Second
)

func (cm *ConfigManager) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("failed to create file watcher, falling back to polling")
		cm.startPollingWatcher()
		return
	}

	if err := watcher.Add(cm.configPath); err != nil {
		log.WithError(err).WithField("path", cm.configPath).Warn("failed to watch config file, falling back to polling")
		watcher.Close()
		cm.startPollingWatcher()
		return
	}

	// Atomic writes replace the file via rename, so the directory is watched too.
	configDir := filepath.Dir(cm.configPath)
	if err := watcher.Add(configDir); err != nil {
		log.WithError(err).WithField("dir", configDir).Warn("failed to watch config directory")
	}

	log.WithField("path", cm.configPath).Info("file watcher started using fsnotify")

	go func() {
		defer watcher.Close()
		var debounceTimer *time.Timer

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(cm.configPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(reloadDebounce, cm.checkAndReload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("file watcher error")

			case <-cm.stopCh:
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				return
			}
		}
	}()
}

// startPollingWatcher is a fallback when fsnotify is not available
func (cm *ConfigManager) startPollingWatcher() {
	ticker := time.NewTicker(pollingInterval)
	log.WithField("interval", pollingInterval.String()).Info("file watcher started using polling")

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cm.checkAndReload()
			case <-cm.stopCh:
				return
			}
		}
	}()
}

func (cm *ConfigManager) checkAndReload() {
	if cm.configPath == "" {
		return
	}
	info, err := os.Stat(cm.configPath)
	if err != nil {
		return
	}
	if !info.ModTime().After(cm.lastMod) {
		return
	}

	oldConfig := cm.GetConfig()
	if err := cm.load(); err != nil {
		log.WithError(err).WithField("path", cm.configPath).Warn("failed to reload config")
		return
	}
	cm.mergeEnvVars()
	newConfig := cm.GetConfig()

	if result := newConfig.Validate(); !result.Valid {
		log.WithError(result.Err()).Warn("reloaded config is invalid, keeping previous")
		cm.mu.Lock()
		cm.config = oldConfig
		cm.mu.Unlock()
		return
	}

	cm.emitChange(oldConfig, newConfig)
	cm.logConfigChanges(oldConfig, newConfig)
}

// Only features take effect without a restart; other fields are logged so
// operators know a restart is pending.
func (cm *ConfigManager) logConfigChanges(old, new *Config) {
	for name, tiers := range new.Features {
		if !reflect.DeepEqual(old.Features[name], tiers) {
			log.WithFields(log.Fields{"feature": name, "tiers": len(tiers)}).Info("feature tiers changed")
		}
	}
	for name := range old.Features {
		if _, ok := new.Features[name]; !ok {
			log.WithField("feature", name).Info("feature removed")
		}
	}
	if old.Server.Port != new.Server.Port {
		log.WithFields(log.Fields{"field": "server.port", "old": old.Server.Port, "new": new.Server.Port}).Warn("config changed, restart required")
	}
	if old.Storage.Backend != new.Storage.Backend {
		log.WithFields(log.Fields{"field": "storage.backend", "old": old.Storage.Backend, "new": new.Storage.Backend}).Warn("config changed, restart required")
	}
	if old.Logging.Debug != new.Logging.Debug {
		log.WithFields(log.Fields{"field": "logging.debug", "old": old.Logging.Debug, "new": new.Logging.Debug}).Info("config changed")
	}
	if old.Logging.Level != new.Logging.Level {
		log.WithFields(log.Fields{"field": "logging.level", "old": old.Logging.Level, "new": new.Logging.Level}).Info("config changed")
	}
}
