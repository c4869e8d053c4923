package upstream

import (
	"context"
	"time"

	"quotaflow-go/internal/credential"
	"quotaflow-go/internal/events"
)

// Operation is a single call to the inference provider using cred.
type Operation[T any] func(ctx context.Context, cred credential.Credential) (T, error)

// Tier is one backend configuration offering the same logical operation.
// Factory is only invoked when the tier is actually tried.
type Tier[T any] struct {
	Name     string
	Enhanced bool
	Factory  func() Operation[T]
}

// CredentialPool is the subset of *credential.Pool the executor relies on.
type CredentialPool interface {
	Current() (credential.Credential, error)
	Rotate()
	MarkSuccess()
	MaxAttempts() int
	Size() int
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

const (
	DefaultBaseDelay     = 2000 * time.Millisecond
	DefaultMultiplier    = 1.5
	DefaultOverrideDelay = 2000 * time.Millisecond
)

// Options tune the executor. Zero values fall back to the defaults above;
// MaxAttempts > 0 replaces the budget derived from the pool.
type Options struct {
	BaseDelay     time.Duration
	Multiplier    float64
	OverrideDelay time.Duration
	MaxAttempts   int
	Sleep         Sleeper
	Publisher     events.Publisher
	Feature       string

	tier string
}

// Option mutates Options.
type Option func(*Options)

func WithBaseDelay(d time.Duration) Option { return func(o *Options) { o.BaseDelay = d } }
func WithMultiplier(m float64) Option { return func(o *Options) { o.Multiplier = m } }
func WithOverrideDelay(d time.Duration) Option { return func(o *Options) { o.OverrideDelay = d } }
func WithMaxAttempts(n int) Option { return func(o *Options) { o.MaxAttempts = n } }
func WithSleeper(s Sleeper) Option { return func(o *Options) { o.Sleep = s } }
func WithPublisher(p events.Publisher) Option { return func(o *Options) { o.Publisher = p } }
func WithFeature(name string) Option { return func(o *Options) { o.Feature = name } }

func withTier(name string) Option { return func(o *Options) { o.tier = name } }

func buildOptions(opts []Option) Options {
	o := Options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.Multiplier < 1 {
		o.Multiplier = DefaultMultiplier
	}
	if o.OverrideDelay <= 0 {
		o.OverrideDelay = DefaultOverrideDelay
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	if o.Feature == "" {
		o.Feature = "default"
	}
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
