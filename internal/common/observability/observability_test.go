package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordJob_NilIsNoOp(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		o.RecordJob(context.Background(), "aiquery-execute", "completed", time.Millisecond)
		o.Shutdown()
	})

	empty := &Observability{}
	assert.NotPanics(t, func() {
		empty.RecordJob(context.Background(), "aiquery-execute", "completed", time.Millisecond)
		empty.Shutdown()
	})
}

func TestNewTracerProvider_WithoutCollector(t *testing.T) {
	tp, err := NewTracerProvider("aiquery-workers", "test", "")
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, ShutdownTracer(tp))
	assert.NoError(t, ShutdownTracer(nil))
}
