package upstream

import (
	"context"
	"fmt"

	"quotaflow-go/internal/credential"
	apperrors "quotaflow-go/internal/errors"
	"quotaflow-go/internal/monitoring"
	"quotaflow-go/internal/monitoring/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

// OverrideSource looks up the user's personal credential. ok is false when
// none is stored.
type OverrideSource interface {
	OverrideCredential(ctx context.Context) (cred credential.Credential, ok bool, err error)
}

// RunOverride calls op with cred, bypassing the pool entirely. A transient
// failure is retried exactly once after OverrideDelay; the second outcome is
// returned as-is. Fatal errors on the first attempt return immediately.
func RunOverride[T any](ctx context.Context, cred credential.Credential, op Operation[T], opts ...Option) (T, error) {
	o := buildOptions(opts)
	var zero T

	ctx, span := tracing.StartSpan(ctx, "upstream", "upstream.override")
	defer span.End()

	result, err := op(ctx, cred)
	if err == nil {
		monitoring.OverrideRequestsTotal.WithLabelValues("success").Inc()
		return result, nil
	}
	if apperrors.Classify(err) == apperrors.Fatal {
		monitoring.OverrideRequestsTotal.WithLabelValues("fatal").Inc()
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}

	log.WithFields(log.Fields{
		"feature":    o.Feature,
		"credential": cred.Masked(),
		"delay_ms":   o.OverrideDelay.Milliseconds(),
	}).WithError(err).Info("Transient error on override credential; retrying once")
	if err := o.Sleep(ctx, o.OverrideDelay); err != nil {
		span.RecordError(err)
		return zero, fmt.Errorf("backoff interrupted: %w", err)
	}
	monitoring.BackoffSecondsTotal.WithLabelValues("override").Add(o.OverrideDelay.Seconds())

	result, err = op(ctx, cred)
	if err != nil {
		monitoring.OverrideRequestsTotal.WithLabelValues("failed_retry").Inc()
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	monitoring.OverrideRequestsTotal.WithLabelValues("success_retry").Inc()
	return result, nil
}
