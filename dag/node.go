package dag

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dagma-go/dagma/dagerr"
	"github.com/dagma-go/dagma/dagtrace"
)

// Node is the shared contract every graph node satisfies (spec §4.1).
// Runners drive evaluation entirely through these methods; none of them
// mutate a node except through SetValue (and Bind/BindAll, which only ever
// touch the receiver's own bound-variable projection).
type Node interface {
	// Name identifies the node for diagnostics and graph descriptions. It
	// is not part of any cache key.
	Name() string

	// Deps returns this node's ordered dependency list.
	Deps() []Node

	// VarDeps returns the transitive set of variable names this node
	// depends on.
	VarDeps() map[string]struct{}

	// Bind projects raw onto VarDeps and replaces the node's bound-variable
	// map with the result.
	Bind(raw Bindings)

	// BindAll binds this node, then recursively every node in its
	// dependency subtree. Safe to call on a DAG with shared subnodes.
	BindAll(raw Bindings)

	// Effective composes this node's bound-variable map with raw projected
	// onto VarDeps, raw's entries taking precedence on conflicts.
	Effective(raw Bindings) Bindings

	// CanGetValue cheaply reports whether GetValue would currently succeed
	// without loading a payload from disk (spec §4.8 "cache cutoff").
	CanGetValue(effective Bindings, force bool) bool

	// GetValue returns the node's already-available value — from memo or
	// on-disk cache — without invoking the transform. ok is false when no
	// value is available yet; err is non-nil only for a genuine I/O
	// failure (not a plain miss).
	GetValue(effective Bindings, force bool) (value any, ok bool, err error)

	// Evaluate runs this node's variant-specific logic (constant lookup,
	// variable lookup, or transform call) given already-evaluated
	// dependency values. It does not populate the memo slot; callers use
	// Step for that.
	Evaluate(ctx context.Context, effective Bindings, depVals []any, force bool) (any, error)

	// SetValue populates the memo slot with value under effective,
	// provided memoization is enabled for this node.
	SetValue(value any, effective Bindings)
}

// Step evaluates n and stores the result in its memo slot, mirroring the
// runner base contract's evaluate-then-set_value pairing (spec §4.6).
func Step(ctx context.Context, n Node, effective Bindings, depVals []any, force bool) (any, error) {
	val, err := n.Evaluate(ctx, effective, depVals, force)
	if err != nil {
		dagtrace.RecordNodeEvaluated(ctx, n.Name(), dagtrace.NodeError)
		return nil, err
	}
	n.SetValue(val, effective)
	dagtrace.RecordNodeEvaluated(ctx, n.Name(), dagtrace.NodeComputed)
	return val, nil
}

// baseNode implements the parts of Node common to every variant: binding,
// variable-dependency projection, and the in-memory memo slot.
type baseNode struct {
	name     string
	varDeps  map[string]struct{}
	deps     []Node
	memCache bool

	bound Bindings

	mu           sync.Mutex
	hasMemo      bool
	memoValue    any
	memoBindings Bindings
}

func newBaseNode(name string, deps []Node, memCache bool) *baseNode {
	varDeps := make(map[string]struct{})
	for _, d := range deps {
		for v := range d.VarDeps() {
			varDeps[v] = struct{}{}
		}
	}
	return &baseNode{name: name, varDeps: varDeps, deps: deps, memCache: memCache, bound: Bindings{}}
}

func (b *baseNode) Name() string                     { return b.name }
func (b *baseNode) Deps() []Node                      { return b.deps }
func (b *baseNode) VarDeps() map[string]struct{}      { return b.varDeps }

func (b *baseNode) Bind(raw Bindings) {
	b.bound = projectVars(raw, b.varDeps)
}

func (b *baseNode) BindAll(raw Bindings) {
	b.Bind(raw)
	for _, d := range b.deps {
		d.BindAll(raw)
	}
}

func (b *baseNode) Effective(raw Bindings) Bindings {
	return merge(b.bound, projectVars(raw, b.varDeps))
}

func (b *baseNode) checkMissingVarDeps(effective Bindings) error {
	var missing []string
	for v := range b.varDeps {
		if _, ok := effective[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return dagerr.Newf(dagerr.MissingVariable, "missing bindings for variable(s): %s", strings.Join(missing, ", "))
}

// isMemCached reports whether the memo slot currently holds a usable value
// for effective (spec §4.1 is_mem_cached).
func (b *baseNode) isMemCached(effective Bindings, force bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.memCache && b.hasMemo && !force && bindingsEqual(b.memoBindings, effective)
}

// memo returns the memoized value for effective, if isMemCached would hold.
func (b *baseNode) memo(effective Bindings, force bool) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !(b.memCache && b.hasMemo && !force && bindingsEqual(b.memoBindings, effective)) {
		return nil, false
	}
	return b.memoValue, true
}

// memoSnapshot returns whatever the memo slot currently holds, ignoring
// force and bindings comparison. It backs the manual Save entry point,
// which (per the reference implementation) only cares whether anything has
// ever been computed, not whether it matches the node's current bindings.
func (b *baseNode) memoSnapshot() (value any, bindings Bindings, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.memoValue, b.memoBindings, b.hasMemo
}

func (b *baseNode) SetValue(value any, effective Bindings) {
	if !b.memCache {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hasMemo = true
	b.memoValue = value
	b.memoBindings = projectVars(effective, b.varDeps)
}
