package credential

import (
	"context"
	"os"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultEnvPrefix is the prefix of numbered API key variables.
const DefaultEnvPrefix = "QUOTAFLOW_API_KEY_"

// EnvSource loads credentials from environment variables matching <prefix>*.
type EnvSource struct {
	prefix  string
	environ func() []string
}

// NewEnvSource creates a new environment variable credential source.
func NewEnvSource(prefix string) *EnvSource {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvSource{prefix: prefix, environ: os.Environ}
}

// Name returns the source identifier
func (s *EnvSource) Name() string {
	return "env"
}

// Load retrieves all credentials from environment variables.
// Supports both:
// - QUOTAFLOW_API_KEY_1, QUOTAFLOW_API_KEY_2, ... (numbered, sorted numerically)
// - QUOTAFLOW_API_KEY_backup, ... (named, sorted after numbered ones)
// Order matters because it becomes the pool's rotation order.
func (s *EnvSource) Load(ctx context.Context) ([]Credential, error) {
	type entry struct {
		id  string
		num int
		val string
	}
	var entries []entry
	for _, env := range s.environ() {
		key, val, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, s.prefix) {
			continue
		}
		id := strings.TrimPrefix(key, s.prefix)
		if id == "" {
			continue
		}
		if strings.TrimSpace(val) == "" {
			log.Warnf("Ignoring empty credential variable %s", key)
			continue
		}
		num, err := strconv.Atoi(id)
		if err != nil {
			num = -1
		}
		entries = append(entries, entry{id: id, num: num, val: val})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.num >= 0 && b.num >= 0:
			return a.num < b.num
		case a.num >= 0:
			return true
		case b.num >= 0:
			return false
		default:
			return a.id < b.id
		}
	})

	creds := make([]Credential, 0, len(entries))
	for _, e := range entries {
		creds = append(creds, Credential(e.val))
	}
	if len(creds) > 0 {
		log.Infof("Loaded %d credential(s) from environment variables", len(creds))
	}
	return creds, nil
}
