package upstream

import (
	"context"
	"sync"
	"time"

	"quotaflow-go/internal/credential"
	apperrors "quotaflow-go/internal/errors"
	"quotaflow-go/internal/monitoring"

	log "github.com/sirupsen/logrus"
)

// Runner is the entry point feature code calls. It checks the preference
// store for an override on every call, then either takes the override path
// or cascades through the tiers on the shared pool.
type Runner struct {
	pool      CredentialPool
	overrides OverrideSource

	mu             sync.RWMutex
	opts           []Option
	requestTimeout time.Duration
}

// NewRunner wires a pool and an optional override source.
func NewRunner(pool CredentialPool, overrides OverrideSource, opts ...Option) *Runner {
	return &Runner{pool: pool, overrides: overrides, opts: opts}
}

// SetOptions replaces the executor options, e.g. after a config reload.
func (r *Runner) SetOptions(opts ...Option) {
	r.mu.Lock()
	r.opts = opts
	r.mu.Unlock()
}

// SetRequestTimeout layers a deadline over each Execute call; 0 disables it.
func (r *Runner) SetRequestTimeout(d time.Duration) {
	r.mu.Lock()
	r.requestTimeout = d
	r.mu.Unlock()
}

// Pool exposes the shared credential pool.
func (r *Runner) Pool() CredentialPool { return r.pool }

func (r *Runner) settings() ([]Option, time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Option(nil), r.opts...), r.requestTimeout
}

// Execute runs tiers for feature. With an override credential only the first
// tier is used and the pool is never touched.
func Execute[T any](ctx context.Context, r *Runner, feature string, tiers []Tier[T]) (T, error) {
	var zero T
	opts, timeout := r.settings()
	opts = append(opts, WithFeature(feature))
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if cred, ok := r.lookupOverride(ctx, feature); ok {
		if len(tiers) == 0 {
			return zero, apperrors.ErrNoTiers
		}
		result, err := RunOverride(ctx, cred, tiers[0].Factory(), opts...)
		if err != nil {
			monitoring.TerminalErrorsTotal.WithLabelValues(feature, "override").Inc()
		}
		return result, err
	}

	result, err := Cascade(ctx, r.pool, tiers, opts...)
	if err != nil && !apperrors.IsTerminal(err) {
		monitoring.TerminalErrorsTotal.WithLabelValues(feature, "fatal").Inc()
	}
	return result, err
}

func (r *Runner) lookupOverride(ctx context.Context, feature string) (credential.Credential, bool) {
	if r.overrides == nil {
		return "", false
	}
	c, ok, err := r.overrides.OverrideCredential(ctx)
	if err != nil {
		log.WithError(err).WithField("feature", feature).Warn("Override lookup failed; using credential pool")
		return "", false
	}
	if !ok || c.Empty() {
		return "", false
	}
	return c, true
}
