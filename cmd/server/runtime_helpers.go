package main

import (
	"context"

	"quotaflow-go/internal/config"
	"quotaflow-go/internal/credential"
	"quotaflow-go/internal/events"
	store "quotaflow-go/internal/storage"
	"quotaflow-go/internal/upstream"

	log "github.com/sirupsen/logrus"
)

// loadCredentials reads api_keys from the config file first, then numbered
// environment variables.
func loadCredentials(ctx context.Context, cfg config.CredentialsConfig) ([]credential.Credential, error) {
	return credential.LoadAll(ctx,
		credential.NewStaticSource(cfg.APIKeys),
		credential.NewEnvSource(cfg.EnvPrefix),
	)
}

// openPreferenceStore opens the configured backend and falls back to the
// file backend when it is unavailable. A nil store disables overrides.
func openPreferenceStore(ctx context.Context, cfg config.StorageConfig) store.PreferenceStore {
	st, err := store.Open(ctx, cfg)
	if err == nil {
		return st
	}
	// 存储后端初始化失败时降级为文件后端，避免服务无法启动
	log.WithError(err).WithField("backend", cfg.Backend).Warn("Preference store unavailable; falling back to file backend")
	if cfg.Backend == "file" || cfg.Backend == "" {
		log.Error("File backend failed; override credential disabled")
		return nil
	}
	fallback := config.StorageConfig{Backend: "file", BaseDir: cfg.BaseDir}
	st, err = store.Open(ctx, fallback)
	if err != nil {
		log.WithError(err).Error("File backend fallback failed; override credential disabled")
		return nil
	}
	return st
}

func newOverrideReader(st store.PreferenceStore, key string) *store.OverrideReader {
	if st == nil {
		return nil
	}
	return store.NewOverrideReader(st, key)
}

func runnerOptions(cfg *config.Config, pub events.Publisher) []upstream.Option {
	return []upstream.Option{
		upstream.WithBaseDelay(cfg.Retry.BaseDelay()),
		upstream.WithMultiplier(cfg.Retry.Multiplier),
		upstream.WithOverrideDelay(cfg.Retry.OverrideDelay()),
		upstream.WithPublisher(pub),
	}
}

// subscribeEventLogging turns pool and cascade events into log lines.
func subscribeEventLogging(hub *events.Hub) func() {
	return hub.SubscribeAll(func(_ context.Context, evt events.Event) {
		entry := log.WithField("topic", evt.Topic)
		switch p := evt.Payload.(type) {
		case credential.RotationEvent:
			entry.WithFields(log.Fields{"from": p.From, "to": p.To, "exhausted": p.Exhausted}).Debug("credential rotated")
		case credential.ResetEvent:
			entry.WithFields(log.Fields{"reason": p.Reason, "size": p.Size}).Info("credential pool reset")
		case upstream.FallbackEvent:
			entry.WithFields(log.Fields{"feature": p.Feature, "from": p.From, "to": p.To}).Warn("tier fallback")
		case config.ConfigChangeEvent:
			entry.WithField("path", p.Path).Info("configuration reloaded")
		default:
			entry.Debugf("event: %v", evt.Payload)
		}
	},
		events.TopicCredentialRotated,
		events.TopicPoolReset,
		events.TopicTierFallback,
		events.TopicConfigUpdated,
		events.TopicOverrideChanged,
	)
}
