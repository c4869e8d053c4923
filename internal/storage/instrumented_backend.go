package storage

import (
	"context"
	"time"

	"quotaflow-go/internal/monitoring"
	"quotaflow-go/internal/monitoring/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// WithInstrumentation wraps a backend with tracing and metrics on lookups.
func WithInstrumentation(inner PreferenceStore) PreferenceStore {
	if inner == nil {
		return nil
	}
	if _, ok := inner.(*instrumentedBackend); ok {
		return inner
	}
	return &instrumentedBackend{PreferenceStore: inner}
}

type instrumentedBackend struct {
	PreferenceStore
}

func (i *instrumentedBackend) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := i.instrument(ctx, "get_preference", func(ctx context.Context) error {
		var innerErr error
		value, innerErr = i.PreferenceStore.GetPreference(ctx, key)
		return innerErr
	})
	return value, err
}

func (i *instrumentedBackend) SetPreference(ctx context.Context, key, value string) error {
	return i.instrument(ctx, "set_preference", func(ctx context.Context) error {
		return i.PreferenceStore.SetPreference(ctx, key, value)
	})
}

func (i *instrumentedBackend) DeletePreference(ctx context.Context, key string) error {
	return i.instrument(ctx, "delete_preference", func(ctx context.Context) error {
		return i.PreferenceStore.DeletePreference(ctx, key)
	})
}

func (i *instrumentedBackend) instrument(ctx context.Context, op string, fn func(context.Context) error) error {
	backend := i.Name()
	ctx, span := tracing.StartSpan(ctx, "storage", "storage."+op)
	span.SetAttributes(attribute.String("storage.backend", backend))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if op == "get_preference" {
		monitoring.PreferenceLookupDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
	}
	slow := monitoring.SlowQuery{Timestamp: start, Operation: op, Backend: backend, Duration: elapsed}
	if err != nil && !IsNotFound(err) {
		slow.Err = err.Error()
	}
	if monitoring.SlowQueries().Observe(slow) {
		log.WithFields(log.Fields{
			"backend":     backend,
			"operation":   op,
			"duration_ms": elapsed.Milliseconds(),
		}).Warn("slow preference store call")
	}

	result := "ok"
	switch {
	case err == nil:
	case IsNotFound(err):
		result = "not_found"
	default:
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	monitoring.PreferenceLookupsTotal.WithLabelValues(backend, op+":"+result).Inc()
	return err
}
