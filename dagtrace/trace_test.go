package dagtrace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dagma-go/dagma/dagtrace"
)

func TestDefaultTracerAndMeterAreNoopAndDoNotPanic(t *testing.T) {
	require.NotNil(t, dagtrace.Tracer)
	require.NotNil(t, dagtrace.Meter)

	ctx := context.Background()
	_, span := dagtrace.Tracer.Start(ctx, "evaluate")
	span.End()

	require.NotPanics(t, func() {
		dagtrace.RecordNodeEvaluated(ctx, "n1", dagtrace.NodeComputed)
		dagtrace.RecordCacheOutcome(ctx, "n1", dagtrace.CacheMiss)
	})
}

func TestSetTracerProviderRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	dagtrace.SetTracerProvider(tp)

	ctx, span := dagtrace.Tracer.Start(context.Background(), "compute-node")
	span.End()
	_ = ctx

	ended := sr.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "compute-node", ended[0].Name())
}

func TestSetMeterProviderRecordsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	dagtrace.SetMeterProvider(mp)

	ctx := context.Background()
	dagtrace.RecordNodeEvaluated(ctx, "n1", dagtrace.NodeCacheHit)
	dagtrace.RecordCacheOutcome(ctx, "n1", dagtrace.CacheHit)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}
	require.Contains(t, names, "dagma.nodes.evaluated")
	require.Contains(t, names, "dagma.cache.outcome")
}
