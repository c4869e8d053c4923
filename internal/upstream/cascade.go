package upstream

import (
	"context"
	"errors"
	"time"

	apperrors "quotaflow-go/internal/errors"
	"quotaflow-go/internal/events"
	"quotaflow-go/internal/monitoring"
	"quotaflow-go/internal/monitoring/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FallbackEvent is published on events.TopicTierFallback.
type FallbackEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Feature   string    `json:"feature"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
}

// Cascade runs tiers in order against the shared pool. The first success wins
// and later factories are never invoked. Fatal errors stop the cascade as-is;
// a TerminalQuotaError moves on to the next tier. When every tier is
// exhausted the caller gets one *errors.AllTiersExhaustedError.
func Cascade[T any](ctx context.Context, pool CredentialPool, tiers []Tier[T], opts ...Option) (T, error) {
	var zero T
	if len(tiers) == 0 {
		return zero, apperrors.ErrNoTiers
	}
	o := buildOptions(opts)

	ctx, span := tracing.StartSpan(ctx, "upstream", "upstream.cascade")
	defer span.End()
	span.SetAttributes(attribute.String("feature", o.Feature), attribute.Int("tiers", len(tiers)))

	tried := make([]string, 0, len(tiers))
	var last error
	for i, tier := range tiers {
		name := tierName(tier, i)
		op := tier.Factory()
		result, err := Run(ctx, pool, op, append(opts, withTier(name))...)
		if err == nil {
			span.SetAttributes(attribute.String("served_by", name))
			return result, nil
		}

		var terminal *apperrors.TerminalQuotaError
		if !errors.As(err, &terminal) {
			span.SetStatus(codes.Error, err.Error())
			return zero, err
		}
		tried = append(tried, name)
		last = err

		if i+1 < len(tiers) {
			next := tierName(tiers[i+1], i+1)
			log.WithFields(log.Fields{
				"feature":  o.Feature,
				"from":     name,
				"to":       next,
				"attempts": terminal.Attempts,
			}).Warn("Tier exhausted; falling back")
			o.recordFallback(ctx, name, next)
		}
	}

	monitoring.TerminalErrorsTotal.WithLabelValues(o.Feature, "all_tiers_exhausted").Inc()
	span.SetStatus(codes.Error, "all tiers exhausted")
	return zero, &apperrors.AllTiersExhaustedError{Tiers: tried, Last: last}
}

func tierName[T any](tier Tier[T], idx int) string {
	if tier.Name != "" {
		return tier.Name
	}
	if tier.Enhanced {
		return "enhanced"
	}
	if idx == 0 {
		return "primary"
	}
	return "fallback"
}

func (o Options) recordFallback(ctx context.Context, from, to string) {
	monitoring.TierFallbacksTotal.WithLabelValues(o.Feature, from, to).Inc()
	if o.Publisher == nil {
		return
	}
	o.Publisher.Publish(ctx, events.TopicTierFallback, FallbackEvent{
		Timestamp: time.Now().UTC(),
		Feature:   o.Feature,
		From:      from,
		To:        to,
		Reason:    "terminal_quota",
	}, map[string]string{"feature": o.Feature})
}
