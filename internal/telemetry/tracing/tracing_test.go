package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoneycombSetup_Disabled(t *testing.T) {
	shutdown, err := HoneycombSetup(false, "portfolio-cms-test", nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()

	_, span := GlobalTracer.Start(context.Background(), "test.span")
	defer span.End()
	assert.False(t, span.SpanContext().IsSampled())
}
