package upstream

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "quotaflow-go/internal/errors"
	"quotaflow-go/internal/monitoring"
	"quotaflow-go/internal/monitoring/tracing"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// newBackOff returns the single-credential delay schedule:
// BaseDelay * Multiplier^(n-1) for the n-th wait, without jitter or cap.
func (o Options) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.BaseDelay
	b.Multiplier = o.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run executes op against the pool's current credential. Transient failures
// rotate the pool (size > 1) or back off (size 1) until the attempt budget
// from pool.MaxAttempts is spent, which yields *errors.TerminalQuotaError.
// Fatal errors are returned unchanged on first sight.
func Run[T any](ctx context.Context, pool CredentialPool, op Operation[T], opts ...Option) (T, error) {
	o := buildOptions(opts)
	var zero T

	ctx, span := tracing.StartSpan(ctx, "upstream", "upstream.run")
	defer span.End()
	span.SetAttributes(attribute.String("feature", o.Feature), attribute.String("tier", o.tier))

	maxAttempts := pool.MaxAttempts()
	if o.MaxAttempts > 0 {
		maxAttempts = o.MaxAttempts
	}
	bo := o.newBackOff()
	attempts := 0
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return zero, err
		}
		cred, err := pool.Current()
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return zero, err
		}

		result, err := op(ctx, cred)
		if err == nil {
			pool.MarkSuccess()
			o.recordAttempt("success")
			span.SetAttributes(attribute.Int("attempts", attempts+1))
			return result, nil
		}

		if apperrors.Classify(err) == apperrors.Fatal {
			o.recordAttempt("fatal")
			span.SetStatus(codes.Error, err.Error())
			return zero, err
		}
		o.recordAttempt("transient")
		lastErr = err
		attempts++

		entry := log.WithFields(log.Fields{
			"feature":      o.Feature,
			"tier":         o.tier,
			"credential":   cred.Masked(),
			"attempt":      attempts,
			"max_attempts": maxAttempts,
		}).WithError(err)

		if attempts >= maxAttempts {
			entry.Warn("Attempt budget exhausted")
			break
		}
		if pool.Size() > 1 {
			entry.Info("Transient upstream error; rotating credential")
			pool.Rotate()
			continue
		}

		delay := bo.NextBackOff()
		entry.WithField("delay_ms", delay.Milliseconds()).Info("Transient upstream error; backing off")
		if err := o.Sleep(ctx, delay); err != nil {
			span.RecordError(err)
			return zero, fmt.Errorf("backoff interrupted: %w", err)
		}
		monitoring.BackoffSecondsTotal.WithLabelValues("pool").Add(delay.Seconds())
	}

	terminal := &apperrors.TerminalQuotaError{Tier: o.tier, Attempts: attempts, Last: lastErr}
	span.SetStatus(codes.Error, "attempt budget exhausted")
	return zero, terminal
}

func (o Options) recordAttempt(outcome string) {
	monitoring.UpstreamAttemptsTotal.WithLabelValues(o.Feature, o.tier, outcome).Inc()
}
