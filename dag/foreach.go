package dag

import (
	"context"
	"fmt"

	"github.com/dagma-go/dagma/cache"
	"github.com/dagma-go/dagma/dagerr"
)

// foreachIndexBindingKey is a reserved binding key added to each synthesized
// per-element child's effective bindings, guaranteeing distinct cache paths
// across elements even when the fanout key is a positional index rather
// than a variable name (spec §4.5: "its on-disk cache descriptor... must
// resolve its path as a function of bindings").
const foreachIndexBindingKey = "__dagma_foreach_index__"

// ForeachComputeNode fans a transform out over the elements of one fanout
// dependency, producing a sequence of per-element results in input order
// (spec §4.5). Memoization at the foreach level is disabled by default
// (spec §9 Open Questions). Per-element results are cached independently
// on disk when a descriptor is configured; they have no in-memory memo slot
// of their own, and duplicates are only reused within a single Evaluate.
type ForeachComputeNode struct {
	*baseNode
	transform     Transform
	descriptor    cache.Descriptor
	fingerprint   cache.Fingerprint
	fnName        string
	fanoutIndex   int
	fanoutVarName string // empty when the fanout key was a positional index
}

// NewForeachCompute builds a foreach compute node. fanoutIndex is the
// position within deps of the dependency whose value is fanned out;
// fanoutVarName, if non-empty, is the variable name the fanout key was
// given as (so each child's bindings additionally carry that variable bound
// to the element). If descriptor has a configured Path, it is rejected with
// dagerr.ForeachPathMustBeCallable unless that path actually varies per
// element (spec §3: "its on-disk cache descriptor, if present, must resolve
// its path as a function of bindings... because per-element results need
// distinct paths") — a static path would otherwise have every element
// silently clobber the same payload/sidecar.
func NewForeachCompute(name, fnName string, transform Transform, deps []Node, fanoutIndex int, fanoutVarName string, memCache bool, descriptor cache.Descriptor, fp cache.Fingerprint) (*ForeachComputeNode, error) {
	if descriptor.Path != nil {
		if err := checkPathVariesPerElement(descriptor); err != nil {
			return nil, err
		}
	}
	return &ForeachComputeNode{
		baseNode:      newBaseNode(name, deps, memCache),
		transform:     transform,
		descriptor:    descriptor,
		fingerprint:   fp,
		fnName:        fnName,
		fanoutIndex:   fanoutIndex,
		fanoutVarName: fanoutVarName,
	}, nil
}

// checkPathVariesPerElement probes descriptor.Path with two bindings that
// differ only in the reserved per-element index key, failing if they
// resolve to the same path (e.g. fileio.StaticPath, which ignores its
// bindings argument entirely).
func checkPathVariesPerElement(descriptor cache.Descriptor) error {
	a := descriptor.Path(Bindings{foreachIndexBindingKey: 0})
	b := descriptor.Path(Bindings{foreachIndexBindingKey: 1})
	if a == b {
		return dagerr.New(dagerr.ForeachPathMustBeCallable, "foreach cache descriptor path does not vary per element; artifacts would collide across elements")
	}
	return nil
}

// CanGetValue reports a whole-sequence memo hit only; disabled by default.
func (f *ForeachComputeNode) CanGetValue(effective Bindings, force bool) bool {
	return f.isMemCached(effective, force)
}

// GetValue returns the whole-sequence memoized value if present.
func (f *ForeachComputeNode) GetValue(effective Bindings, force bool) (any, bool, error) {
	if val, ok := f.memo(effective, force); ok {
		return val, true, nil
	}
	return nil, false, nil
}

// Evaluate fans out over the fanout dependency's sequence value, evaluating
// (and independently caching) each distinct element exactly once, then
// reusing that result for any later duplicate of the same element.
func (f *ForeachComputeNode) Evaluate(ctx context.Context, effective Bindings, depVals []any, force bool) (any, error) {
	if err := f.checkMissingVarDeps(effective); err != nil {
		return nil, err
	}
	if f.fanoutIndex < 0 || f.fanoutIndex >= len(depVals) {
		return nil, fmt.Errorf("dagma: foreach node %q has no dependency at fanout index %d", f.name, f.fanoutIndex)
	}
	seq, ok := depVals[f.fanoutIndex].([]any)
	if !ok {
		return nil, fmt.Errorf("dagma: foreach node %q fanout dependency did not resolve to a sequence (got %T)", f.name, depVals[f.fanoutIndex])
	}

	results := make([]any, len(seq))
	firstResult := make(map[string]any, len(seq))

	for i, elem := range seq {
		key := fmt.Sprintf("%#v", elem)
		if val, seen := firstResult[key]; seen {
			results[i] = val
			continue
		}

		val, err := f.evaluateElement(effective, depVals, i, elem, force)
		if err != nil {
			return nil, err
		}
		firstResult[key] = val
		results[i] = val
	}

	return results, nil
}

func (f *ForeachComputeNode) evaluateElement(effective Bindings, depVals []any, index int, elem any, force bool) (any, error) {
	childDeps := make([]any, len(depVals))
	copy(childDeps, depVals)
	childDeps[f.fanoutIndex] = elem

	childEff := make(Bindings, len(effective)+2)
	for k, v := range effective {
		childEff[k] = v
	}
	if f.fanoutVarName != "" {
		childEff[f.fanoutVarName] = elem
	}
	childEff[foreachIndexBindingKey] = index

	if !force {
		val, ok, err := cache.Lookup(f.descriptor, childEff, f.fingerprint)
		if err != nil {
			return nil, err
		}
		if ok {
			return val, nil
		}
	}

	val, err := f.transform(childDeps)
	if err != nil {
		return nil, err
	}
	if err := cache.Store(f.descriptor, childEff, val, f.fingerprint); err != nil {
		return nil, err
	}
	return val, nil
}

// String implements fmt.Stringer for debug output and graph descriptions.
func (f *ForeachComputeNode) String() string {
	return fmt.Sprintf("Foreach(%s, deps=%d, fanout=%d)", f.fnName, len(f.deps), f.fanoutIndex)
}
