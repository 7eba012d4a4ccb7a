package runner

import (
	"context"

	"github.com/dagma-go/dagma/dag"
	"github.com/dagma-go/dagma/dagtrace"
)

// Queue builds a topological order over the sink's dependency subtree,
// computes it in a single forward sweep, and evicts each intermediate
// value as soon as its last consumer has run (spec §4.8).
type Queue struct {
	sink dag.Node
}

// NewQueue builds a Queue runner for sink.
func NewQueue(sink dag.Node) *Queue {
	return &Queue{sink: sink}
}

// Compute evaluates the runner's sink node under bindings.
func (q *Queue) Compute(ctx context.Context, bindings dag.Bindings, force bool) (any, error) {
	ctx, span := dagtrace.Tracer.Start(ctx, "runner.queue.compute")
	defer span.End()

	queue, reverseDeps, err := buildTopoQueue(q.sink, bindings, force)
	if err != nil {
		return nil, err
	}
	toEvict := buildEvictionPlan(queue, reverseDeps)

	computed := make(map[dag.Node]any, len(queue))
	for i, n := range queue {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		effective := n.Effective(bindings)
		val, ok, err := n.GetValue(effective, force)
		if err != nil {
			return nil, err
		}
		if ok {
			dagtrace.RecordCacheOutcome(ctx, n.Name(), dagtrace.CacheHit)
			computed[n] = val
		} else {
			dagtrace.RecordCacheOutcome(ctx, n.Name(), dagtrace.CacheMiss)
			v, err := dag.Step(ctx, n, effective, gatherDepVals(n, computed), force)
			if err != nil {
				return nil, err
			}
			computed[n] = v
		}

		for _, d := range toEvict[i] {
			delete(computed, d)
		}
	}

	return computed[q.sink], nil
}
