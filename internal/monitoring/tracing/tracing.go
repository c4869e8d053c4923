package tracing

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"quotaflow-go/internal/config"
	"quotaflow-go/internal/version"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "quotaflow-go"

var (
	mu         sync.RWMutex
	provider   *sdktrace.TracerProvider
	tracerName = defaultTracerName
)

// ShutdownFunc flushes and stops the exporter.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs a batching OTLP/gRPC exporter when cfg.Endpoint is set.
// Without an endpoint spans still flow through the global no-op provider,
// so callers never need to check Enabled before starting spans.
func Init(ctx context.Context, cfg config.TracingConfig) (ShutdownFunc, error) {
	mu.Lock()
	defer mu.Unlock()

	if name := strings.TrimSpace(cfg.ServiceName); name != "" {
		tracerName = name
	}
	if provider != nil {
		return provider.Shutdown, nil
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		log.Debug("tracing disabled: no OTLP endpoint configured")
		return noopShutdown, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if !cfg.TLS {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return noopShutdown, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", tracerName),
			attribute.String("service.version", version.Version),
			attribute.String("service.instance.id", hostname()),
		),
		resource.WithTelemetrySDK(),
		resource.WithFromEnv(),
	)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return noopShutdown, err
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	log.WithFields(log.Fields{"endpoint": endpoint, "sample_ratio": sampleRatio(cfg.SampleRatio)}).Info("tracing enabled")
	return provider.Shutdown, nil
}

func sampleRatio(r float64) float64 {
	if r <= 0 || r > 1 {
		return 1
	}
	return r
}

// Enabled reports whether an exporter was installed by Init.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return provider != nil
}

// Tracer returns the tracer for one component, e.g. "upstream" or "storage".
func Tracer(component string) trace.Tracer {
	mu.RLock()
	name := tracerName
	mu.RUnlock()
	if c := strings.TrimSpace(component); c != "" {
		name += "/" + c
	}
	return otel.Tracer(name, trace.WithInstrumentationVersion(version.Version))
}

// StartSpan starts a span on the component's tracer.
func StartSpan(ctx context.Context, component, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer(component).Start(ctx, spanName, opts...)
}

func hostname() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
