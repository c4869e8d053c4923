package server

import (
	"sort"
	"sync"

	"quotaflow-go/internal/config"
)

// FeatureRegistry holds the tier lists per feature. Update swaps the whole
// map so a request always sees one consistent configuration.
type FeatureRegistry struct {
	mu       sync.RWMutex
	features map[string][]config.TierConfig
}

func NewFeatureRegistry(features map[string][]config.TierConfig) *FeatureRegistry {
	r := &FeatureRegistry{}
	r.Update(features)
	return r
}

// Update replaces every feature definition.
func (r *FeatureRegistry) Update(features map[string][]config.TierConfig) {
	next := make(map[string][]config.TierConfig, len(features))
	for name, tiers := range features {
		next[name] = append([]config.TierConfig(nil), tiers...)
	}
	r.mu.Lock()
	r.features = next
	r.mu.Unlock()
}

// Tiers returns a copy of the feature's tiers in fallback order.
func (r *FeatureRegistry) Tiers(feature string) ([]config.TierConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tiers, ok := r.features[feature]
	if !ok {
		return nil, false
	}
	return append([]config.TierConfig(nil), tiers...), true
}

// Names lists configured features alphabetically.
func (r *FeatureRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.features))
	for name := range r.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
