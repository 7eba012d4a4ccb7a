package dag

import (
	"context"
	"fmt"

	"github.com/dagma-go/dagma/cache"
	"github.com/dagma-go/dagma/dagerr"
)

// Transform is a compute node's pure function of its resolved dependency
// values, in dependency-list order.
type Transform func(args []any) (any, error)

// ComputeNode applies a Transform to its dependencies' values, optionally
// memoizing the result in memory and/or persisting it through an on-disk
// cache descriptor (spec §3, §4.3, §4.4).
type ComputeNode struct {
	*baseNode
	transform   Transform
	descriptor  cache.Descriptor
	fingerprint cache.Fingerprint
	fnName      string
}

// NewCompute builds a compute node. descriptor may be the zero Descriptor
// to disable on-disk caching entirely.
func NewCompute(name string, fnName string, transform Transform, deps []Node, memCache bool, descriptor cache.Descriptor, fp cache.Fingerprint) *ComputeNode {
	return &ComputeNode{
		baseNode:    newBaseNode(name, deps, memCache),
		transform:   transform,
		descriptor:  descriptor,
		fingerprint: fp,
		fnName:      fnName,
	}
}

// CanGetValue reports a memo hit or, failing that, a cheap on-disk cache
// probe (spec §4.8's "cache cutoff" check) without reading the payload.
func (c *ComputeNode) CanGetValue(effective Bindings, force bool) bool {
	if c.isMemCached(effective, force) {
		return true
	}
	if force {
		return false
	}
	return cache.CanLoadFor(c.descriptor, effective, c.fingerprint)
}

// GetValue returns the memoized value if present, else attempts to load the
// on-disk artifact, populating the memo slot on a disk hit.
func (c *ComputeNode) GetValue(effective Bindings, force bool) (any, bool, error) {
	if val, ok := c.memo(effective, force); ok {
		return val, true, nil
	}
	if force {
		return nil, false, nil
	}
	val, ok, err := cache.Lookup(c.descriptor, effective, c.fingerprint)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	c.SetValue(val, effective)
	return val, true, nil
}

// Evaluate applies the transform to depVals and, if a cache descriptor is
// configured, persists the result under effective.
func (c *ComputeNode) Evaluate(ctx context.Context, effective Bindings, depVals []any, force bool) (any, error) {
	if err := c.checkMissingVarDeps(effective); err != nil {
		return nil, err
	}
	val, err := c.transform(depVals)
	if err != nil {
		return nil, err
	}
	if err := cache.Store(c.descriptor, effective, val, c.fingerprint); err != nil {
		return nil, err
	}
	return val, nil
}

// Save persists the node's already-memoized value through its cache
// descriptor, independent of any runner (a supplemental manual entry point
// mirroring the reference implementation's node.save()). It fails with
// dagerr.NoSaveFunction if no descriptor is configured and
// dagerr.SaveBeforeCompute if nothing has been computed yet.
func (c *ComputeNode) Save() error {
	if !c.descriptor.CanSave() {
		return dagerr.New(dagerr.NoSaveFunction, "compute node has no save function configured")
	}
	value, bindings, ok := c.memoSnapshot()
	if !ok {
		return dagerr.New(dagerr.SaveBeforeCompute, "compute node has no memoized value to save")
	}
	return cache.Store(c.descriptor, bindings, value, c.fingerprint)
}

// Load reads back a previously persisted artifact independent of any
// runner, validating that the sidecar's recorded bindings match the node's
// own current bindings. It fails with dagerr.NoLoadFunction if no
// descriptor is configured and dagerr.LoadBindingsMismatch if the sidecar
// was written under different bindings.
func (c *ComputeNode) Load() (any, error) {
	if !c.descriptor.CanLoad() {
		return nil, dagerr.New(dagerr.NoLoadFunction, "compute node has no load function configured")
	}
	effective := c.Effective(Bindings{})

	saved, err := cache.SidecarBindings(c.descriptor, effective)
	if err != nil {
		return nil, dagerr.Wrap(dagerr.LoadFailed, "load cache sidecar", err)
	}
	if !bindingsEqual(Bindings(saved), effective) {
		return nil, dagerr.New(dagerr.LoadBindingsMismatch, "sidecar bindings do not match node's current bindings")
	}

	val, ok, err := cache.Lookup(c.descriptor, effective, c.fingerprint)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dagerr.New(dagerr.LoadFailed, "cached artifact unavailable")
	}
	c.SetValue(val, effective)
	return val, nil
}

// String implements fmt.Stringer for debug output and graph descriptions.
func (c *ComputeNode) String() string {
	return fmt.Sprintf("Compute(%s, deps=%d)", c.fnName, len(c.deps))
}
