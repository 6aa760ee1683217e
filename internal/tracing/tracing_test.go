package tracing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pictochat/backend/internal/tracing"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := tracing.Setup(context.Background(), false, "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := tracing.Tracer("test").Start(context.Background(), "noop")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}

func TestSetup_Enabled(t *testing.T) {
	shutdown, err := tracing.Setup(context.Background(), true, "127.0.0.1:4318")
	require.NoError(t, err)

	_, span := tracing.Tracer("test").Start(context.Background(), "real")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
