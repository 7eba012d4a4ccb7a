package runner

import (
	"context"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/dagma-go/dagma/dag"
	"github.com/dagma-go/dagma/daglog"
	"github.com/dagma-go/dagma/dagtrace"
)

var logger = daglog.Component("runner")

// Thread shares the queue runner's topology construction, but Pass 2 is a
// parallel scheduler: a bounded worker pool evaluates independent nodes
// concurrently while this goroutine, acting as dispatcher, owns every write
// to the shared completed/pending state (spec §4.9, §5).
type Thread struct {
	sink    dag.Node
	workers int
	verbose bool
}

// ThreadOption configures a Thread runner.
type ThreadOption func(*Thread)

// WithWorkers sets the worker pool size. n<=0 is treated as 1.
func WithWorkers(n int) ThreadOption {
	return func(t *Thread) { t.workers = n }
}

// WithVerbose makes Compute log one info-level line (invocation ID and
// worker count) when a run starts (spec §9: replaces the source's global
// debug flag with a per-runner option). No per-node lines are logged.
func WithVerbose(v bool) ThreadOption {
	return func(t *Thread) { t.verbose = v }
}

// NewThread builds a Thread runner for sink with a single worker unless
// WithWorkers overrides it.
func NewThread(sink dag.Node, opts ...ThreadOption) *Thread {
	t := &Thread{sink: sink, workers: 1}
	for _, opt := range opts {
		opt(t)
	}
	if t.workers <= 0 {
		t.workers = 1
	}
	return t
}

type nodeResult struct {
	node dag.Node
	val  any
	err  error
}

// Compute evaluates the runner's sink node under bindings, dispatching
// ready nodes onto a bounded worker pool as their dependencies complete.
func (t *Thread) Compute(ctx context.Context, bindings dag.Bindings, force bool) (any, error) {
	invocationID := uuid.NewString()
	ctx, span := dagtrace.Tracer.Start(ctx, "runner.thread.compute")
	defer span.End()
	if t.verbose {
		logger.Infof("thread runner %s starting, workers=%d", invocationID, t.workers)
	}

	queue, reverseDeps, err := buildTopoQueue(t.sink, bindings, force)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(t.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	inQueue := make(map[dag.Node]bool, len(queue))
	for _, n := range queue {
		inQueue[n] = true
	}

	pending := make(map[dag.Node]int, len(queue))
	for _, n := range queue {
		count := 0
		for _, d := range n.Deps() {
			if inQueue[d] {
				count++
			}
		}
		pending[n] = count
	}

	completions := make(chan nodeResult, len(queue))
	computed := make(map[dag.Node]any, len(queue))

	submit := func(n dag.Node) error {
		effective := n.Effective(bindings)
		depVals := gatherDepVals(n, computed)
		return pool.Submit(func() {
			val, ok, getErr := n.GetValue(effective, force)
			if getErr == nil && ok {
				dagtrace.RecordCacheOutcome(ctx, n.Name(), dagtrace.CacheHit)
				completions <- nodeResult{node: n, val: val}
				return
			}
			if getErr == nil {
				dagtrace.RecordCacheOutcome(ctx, n.Name(), dagtrace.CacheMiss)
			}
			if getErr != nil {
				completions <- nodeResult{node: n, err: getErr}
				return
			}
			val, stepErr := dag.Step(ctx, n, effective, depVals, force)
			completions <- nodeResult{node: n, val: val, err: stepErr}
		})
	}

	var firstErr error
	inFlight := 0
	for _, n := range queue {
		if pending[n] == 0 {
			if err := submit(n); err != nil {
				firstErr = err
				break
			}
			inFlight++
		}
	}

	remaining := len(queue)
	draining := firstErr != nil
	for remaining > 0 {
		if !draining {
			select {
			case <-ctx.Done():
				draining = true
				firstErr = ctx.Err()
				continue
			case res := <-completions:
				inFlight--
				remaining--
				if res.err != nil {
					firstErr = res.err
					draining = true
					continue
				}
				computed[res.node] = res.val
				for _, p := range reverseDeps[res.node] {
					pending[p]--
					if pending[p] == 0 {
						if err := submit(p); err != nil {
							firstErr = err
							draining = true
							continue
						}
						inFlight++
					}
				}
			}
		} else {
			if inFlight == 0 {
				break
			}
			<-completions
			inFlight--
			remaining--
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return computed[t.sink], nil
}
