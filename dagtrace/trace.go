// Package dagtrace holds the package-level OpenTelemetry tracer and meter
// used to instrument evaluation, mirroring the global-tracer convention used
// elsewhere in this ecosystem. Unlike that convention, dagtrace does not
// bundle a concrete exporter: a library should not decide how its host
// process ships telemetry. Callers wire a real TracerProvider/MeterProvider
// via SetTracerProvider/SetMeterProvider; absent that, every call is a no-op.
package dagtrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	nooptmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	noopt "go.opentelemetry.io/otel/trace/noop"
)

const instrumentName = "github.com/dagma-go/dagma"

// Tracer is the package-level tracer each runner uses to span its Compute
// call; individual node evaluations get no span of their own. It
// defaults to a no-op implementation until SetTracerProvider is called.
var Tracer trace.Tracer = noopt.NewTracerProvider().Tracer(instrumentName)

// Meter is the package-level meter used to record evaluation metrics. It
// defaults to a no-op implementation until SetMeterProvider is called.
var Meter metric.Meter = nooptmetric.NewMeterProvider().Meter(instrumentName)

// nodesEvaluated counts node evaluations, labeled by outcome (computed,
// cache-hit, error).
var nodesEvaluated metric.Int64Counter

// cacheOutcome counts cache probe outcomes, labeled by hit/miss/error.
var cacheOutcome metric.Int64Counter

func init() {
	initInstruments()
}

func initInstruments() {
	var err error
	nodesEvaluated, err = Meter.Int64Counter(
		"dagma.nodes.evaluated",
		metric.WithDescription("Count of DAG node evaluations by outcome"),
	)
	if err != nil {
		nodesEvaluated, _ = nooptmetric.NewMeterProvider().Meter(instrumentName).Int64Counter("dagma.nodes.evaluated")
	}
	cacheOutcome, err = Meter.Int64Counter(
		"dagma.cache.outcome",
		metric.WithDescription("Count of on-disk cache probe outcomes"),
	)
	if err != nil {
		cacheOutcome, _ = nooptmetric.NewMeterProvider().Meter(instrumentName).Int64Counter("dagma.cache.outcome")
	}
}

// SetTracerProvider installs tp as the source of Tracer and re-registers it
// as the process-wide otel tracer provider.
func SetTracerProvider(tp trace.TracerProvider) {
	otel.SetTracerProvider(tp)
	Tracer = tp.Tracer(instrumentName)
}

// SetMeterProvider installs mp as the source of Meter, re-registers it as
// the process-wide otel meter provider, and recreates the dagma instruments
// against it.
func SetMeterProvider(mp metric.MeterProvider) {
	otel.SetMeterProvider(mp)
	Meter = mp.Meter(instrumentName)
	initInstruments()
}

// NodeOutcome labels a node evaluation result for RecordNodeEvaluated.
type NodeOutcome string

const (
	// NodeComputed marks a node whose transform actually ran.
	NodeComputed NodeOutcome = "computed"
	// NodeCacheHit marks a node whose value was loaded from cache.
	NodeCacheHit NodeOutcome = "cache-hit"
	// NodeError marks a node evaluation that failed.
	NodeError NodeOutcome = "error"
)

// RecordNodeEvaluated increments the nodes-evaluated counter for name under
// outcome.
func RecordNodeEvaluated(ctx context.Context, name string, outcome NodeOutcome) {
	nodesEvaluated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", name),
		attribute.String("outcome", string(outcome)),
	))
}

// CacheResult labels a cache probe outcome for RecordCacheOutcome.
type CacheResult string

const (
	// CacheHit marks a probe that found a usable cached value.
	CacheHit CacheResult = "hit"
	// CacheMiss marks a probe that found no usable cached value.
	CacheMiss CacheResult = "miss"
	// CacheError marks a probe that failed outright (spec §7 load-failed).
	CacheError CacheResult = "error"
)

// RecordCacheOutcome increments the cache-outcome counter for name under
// result.
func RecordCacheOutcome(ctx context.Context, name string, result CacheResult) {
	cacheOutcome.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", name),
		attribute.String("result", string(result)),
	))
}
