package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const preferencesFile = "preferences.json"

// FileBackend keeps preferences in a single JSON document under baseDir.
// The file is re-read on every lookup so edits made by cmd/prefs are picked
// up without a restart.
type FileBackend struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileBackend creates a new file-based storage backend
func NewFileBackend(baseDir string) *FileBackend {
	if baseDir == "" {
		baseDir = "./data"
	}
	return &FileBackend{baseDir: baseDir}
}

func (f *FileBackend) Name() string { return "file" }

func (f *FileBackend) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", f.baseDir, err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) Health(ctx context.Context) error {
	_, err := os.Stat(f.baseDir)
	return err
}

func (f *FileBackend) path() string { return filepath.Join(f.baseDir, preferencesFile) }

func (f *FileBackend) GetPreference(ctx context.Context, key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	prefs, err := f.load()
	if err != nil {
		return "", err
	}
	val, ok := prefs[key]
	if !ok {
		return "", &ErrNotFound{Key: key}
	}
	return val, nil
}

func (f *FileBackend) SetPreference(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefs, err := f.load()
	if err != nil {
		return err
	}
	prefs[key] = value
	return f.save(prefs)
}

func (f *FileBackend) DeletePreference(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefs, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := prefs[key]; !ok {
		return &ErrNotFound{Key: key}
	}
	delete(prefs, key)
	return f.save(prefs)
}

func (f *FileBackend) load() (map[string]string, error) {
	prefs := make(map[string]string)
	data, err := os.ReadFile(f.path())
	if err != nil {
		if os.IsNotExist(err) {
			return prefs, nil
		}
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	if len(data) == 0 {
		return prefs, nil
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}

// save writes via a temp file and rename so readers never see a partial file.
func (f *FileBackend) save(prefs map[string]string) error {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp, f.path()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}
