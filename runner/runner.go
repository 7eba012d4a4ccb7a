// Package runner implements the three evaluation strategies (spec §4.6-4.9):
// recursive depth-first, topological-queue with eviction, and a worker-pool
// thread runner. All three share a Compute entry point and the same
// topological-ordering/eviction-plan construction.
package runner

import (
	"context"

	"github.com/dagma-go/dagma/dag"
)

// Runner is the shared contract every evaluation strategy satisfies.
type Runner interface {
	// Compute evaluates the runner's sink node under bindings, returning
	// its value. force bypasses every memo and on-disk cache check.
	Compute(ctx context.Context, bindings dag.Bindings, force bool) (any, error)
}

// buildTopoQueue performs the iterative DFS pass described in spec §4.8:
// visits sink's dependency subtree, cutting off expansion at any node whose
// value is already reachable from memo or on-disk cache, and returns nodes
// in leaves-first order alongside the reverse-dependency map restricted to
// edges actually expanded. A node stays on the stack while its dependencies
// are explored and is appended to the queue when it is popped, so every
// dependency precedes its consumers.
func buildTopoQueue(sink dag.Node, bindings dag.Bindings, force bool) ([]dag.Node, map[dag.Node][]dag.Node, error) {
	visited := make(map[dag.Node]bool)
	queued := make(map[dag.Node]bool)
	toExplore := []dag.Node{sink}
	var queue []dag.Node
	reverseDeps := make(map[dag.Node][]dag.Node)

	for len(toExplore) > 0 {
		n := toExplore[len(toExplore)-1]

		if visited[n] {
			toExplore = toExplore[:len(toExplore)-1]
			if !queued[n] {
				queued[n] = true
				queue = append(queue, n)
			}
			continue
		}
		visited[n] = true

		if n.CanGetValue(n.Effective(bindings), force) {
			continue
		}

		for _, dep := range n.Deps() {
			reverseDeps[dep] = append(reverseDeps[dep], n)
			if !visited[dep] {
				toExplore = append(toExplore, dep)
			}
		}
	}

	return queue, reverseDeps, nil
}

// buildEvictionPlan computes, for each node in queue, the maximum queue
// index among its parents (its last consumer position), then groups nodes
// by that position so a forward sweep can evict computed[d] as soon as d's
// last consumer has run (spec §4.8 Pass 2).
func buildEvictionPlan(queue []dag.Node, reverseDeps map[dag.Node][]dag.Node) map[int][]dag.Node {
	pos := make(map[dag.Node]int, len(queue))
	for i, n := range queue {
		pos[n] = i
	}

	toEvict := make(map[int][]dag.Node)
	for n, parents := range reverseDeps {
		last := -1
		for _, p := range parents {
			if i, ok := pos[p]; ok && i > last {
				last = i
			}
		}
		if last >= 0 {
			toEvict[last] = append(toEvict[last], n)
		}
	}
	return toEvict
}

// gatherDepVals reads each of n's dependency values out of computed. Safe
// to call once every dependency has already been computed, which every
// runner in this package guarantees by construction.
func gatherDepVals(n dag.Node, computed map[dag.Node]any) []any {
	deps := n.Deps()
	vals := make([]any, len(deps))
	for i, d := range deps {
		vals[i] = computed[d]
	}
	return vals
}
