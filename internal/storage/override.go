package storage

import (
	"context"
	"strings"

	"quotaflow-go/internal/credential"
)

// DefaultOverrideKey is where the user's personal credential is stored.
const DefaultOverrideKey = "quotaflow.override_credential"

// OverrideReader reads the override credential from a PreferenceStore on
// every call. Nothing is cached.
type OverrideReader struct {
	store PreferenceStore
	key   string
}

// NewOverrideReader binds store and key; an empty key uses DefaultOverrideKey.
func NewOverrideReader(store PreferenceStore, key string) *OverrideReader {
	if strings.TrimSpace(key) == "" {
		key = DefaultOverrideKey
	}
	return &OverrideReader{store: store, key: key}
}

// Key returns the preference key the reader looks up.
func (r *OverrideReader) Key() string { return r.key }

// OverrideCredential returns the stored credential, ok=false when absent or blank.
func (r *OverrideReader) OverrideCredential(ctx context.Context) (credential.Credential, bool, error) {
	if r == nil || r.store == nil {
		return "", false, nil
	}
	val, err := r.store.GetPreference(ctx, r.key)
	if err != nil {
		if IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	cred := credential.Credential(strings.TrimSpace(val))
	if cred.Empty() {
		return "", false, nil
	}
	return cred, true, nil
}
