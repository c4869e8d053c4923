package tracing

import (
	"context"
	"testing"

	"quotaflow-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TracingConfig{ServiceName: "qf-test"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.False(t, Enabled())
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := StartSpan(context.Background(), "upstream", "upstream.run")
	defer span.End()
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsSampled())
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, sampleRatio(0))
	assert.Equal(t, 1.0, sampleRatio(3))
	assert.Equal(t, 0.25, sampleRatio(0.25))
}
