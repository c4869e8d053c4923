package storage

import (
	"context"
	"fmt"
	"strings"

	"quotaflow-go/internal/config"

	log "github.com/sirupsen/logrus"
)

// NewBackend builds the preference store selected by cfg.Backend without
// connecting to it.
func NewBackend(cfg config.StorageConfig) (PreferenceStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "file":
		return NewFileBackend(cfg.BaseDir), nil
	case "redis":
		return NewRedisBackend(cfg)
	case "mongodb", "mongo":
		return NewMongoDBBackend(cfg.MongoURI, cfg.MongoDatabase)
	case "postgres", "postgresql":
		return NewPostgresBackend(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// Open builds, initializes and instruments the configured backend.
func Open(ctx context.Context, cfg config.StorageConfig) (PreferenceStore, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	if err := backend.Initialize(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("initialize %s storage: %w", backend.Name(), err)
	}
	log.WithField("backend", backend.Name()).Info("Preference store ready")
	return WithInstrumentation(backend), nil
}
