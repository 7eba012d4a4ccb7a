package runner

import (
	"context"

	"github.com/dagma-go/dagma/dag"
	"github.com/dagma-go/dagma/dagtrace"
)

// Recursive evaluates a sink node with classic post-order recursion (spec
// §4.7). Stack depth scales with graph depth; very deep graphs should
// prefer Queue or Thread.
type Recursive struct {
	sink dag.Node
}

// NewRecursive builds a Recursive runner for sink.
func NewRecursive(sink dag.Node) *Recursive {
	return &Recursive{sink: sink}
}

// Compute evaluates the runner's sink node under bindings.
func (r *Recursive) Compute(ctx context.Context, bindings dag.Bindings, force bool) (any, error) {
	ctx, span := dagtrace.Tracer.Start(ctx, "runner.recursive.compute")
	defer span.End()
	return recurse(ctx, r.sink, bindings, force)
}

func recurse(ctx context.Context, n dag.Node, bindings dag.Bindings, force bool) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	effective := n.Effective(bindings)
	if val, ok, err := n.GetValue(effective, force); err != nil {
		return nil, err
	} else if ok {
		dagtrace.RecordCacheOutcome(ctx, n.Name(), dagtrace.CacheHit)
		return val, nil
	}
	dagtrace.RecordCacheOutcome(ctx, n.Name(), dagtrace.CacheMiss)

	deps := n.Deps()
	depVals := make([]any, len(deps))
	for i, d := range deps {
		val, err := recurse(ctx, d, bindings, force)
		if err != nil {
			return nil, err
		}
		depVals[i] = val
	}

	return dag.Step(ctx, n, effective, depVals, force)
}
