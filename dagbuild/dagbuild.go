// Package dagbuild is the user-facing construction façade over package
// dag: it normalizes heterogeneous dependency lists (spec §4.2), derives a
// transform's fingerprint by reflection (spec §4.3 REDESIGN), and adapts an
// arbitrarily-typed user function into dag.Transform's uniform
// []any -> (any, error) shape.
package dagbuild

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/dagma-go/dagma/cache"
	"github.com/dagma-go/dagma/dag"
)

// Dep is anything acceptable as a dependency-list element (spec §4.2): an
// existing dag.Node, a string naming a variable, or any other value wrapped
// as a constant.
type Dep any

// Option configures a compute or foreach node at construction time.
type Option func(*options)

type options struct {
	memCache   bool
	descriptor cache.Descriptor
	version    int
}

// WithMemCache enables in-memory memoization for the node being built.
func WithMemCache(v bool) Option {
	return func(o *options) { o.memCache = v }
}

// WithCache attaches an on-disk cache descriptor to the node being built.
func WithCache(d cache.Descriptor) Option {
	return func(o *options) { o.descriptor = d }
}

// WithVersion sets the explicit version tag folded into the transform
// fingerprint (spec §4.3: "Implementers may substitute a user-supplied
// version string if no body-hashing primitive exists"). A version that
// differs from the one recorded with a cached artifact is logged as a
// warning on the next cache probe; the artifact is still reused.
func WithVersion(v int) Option {
	return func(o *options) { o.version = v }
}

func resolveOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Const wraps val as a named constant node (spec §3, §4.1).
func Const(name string, val any) *dag.ConstantNode {
	return dag.NewConstant(name, val)
}

// Var builds a node referencing the variable varName (spec §3, §4.1).
func Var(varName string) *dag.VariableNode {
	return dag.NewVariable(varName)
}

// normalizeDep applies spec §4.2's dependency normalization to a single
// heterogeneous dependency-list element.
func normalizeDep(d Dep) dag.Node {
	switch v := d.(type) {
	case dag.Node:
		return v
	case string:
		return Var(v)
	default:
		return Const(fmt.Sprintf("const(%v)", v), v)
	}
}

// normalizeDeps normalizes a heterogeneous dependency list in order.
func normalizeDeps(deps []Dep) []dag.Node {
	nodes := make([]dag.Node, len(deps))
	for i, d := range deps {
		nodes[i] = normalizeDep(d)
	}
	return nodes
}

// fingerprintOf derives a cache.Fingerprint for fn by reflection: FuncName
// and Arity are read off fn's runtime identity and signature, Version comes
// from WithVersion (spec §4.3 REDESIGN — Go cannot hash function bytecode
// the way the reference implementation does).
func fingerprintOf(fn any, version int) cache.Fingerprint {
	rv := reflect.ValueOf(fn)
	name := runtime.FuncForPC(rv.Pointer()).Name()
	arity := rv.Type().NumIn()
	return cache.Fingerprint{FuncName: name, Arity: arity, Version: version}
}

// adapt wraps a user function of any signature func(A, B, ...) (R, error) or
// func(A, B, ...) R into dag.Transform, type-asserting each positional
// dependency value against the function's declared parameter type.
func adapt(fn any) dag.Transform {
	rv := reflect.ValueOf(fn)
	rt := rv.Type()
	returnsError := rt.NumOut() == 2

	return func(args []any) (any, error) {
		if len(args) != rt.NumIn() {
			return nil, fmt.Errorf("dagma: transform %s expects %d argument(s), got %d", runtime.FuncForPC(rv.Pointer()).Name(), rt.NumIn(), len(args))
		}
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			if a == nil {
				in[i] = reflect.Zero(rt.In(i))
				continue
			}
			av := reflect.ValueOf(a)
			if !av.Type().AssignableTo(rt.In(i)) {
				return nil, fmt.Errorf("dagma: transform %s argument %d: cannot use %T as %s", runtime.FuncForPC(rv.Pointer()).Name(), i, a, rt.In(i))
			}
			in[i] = av
		}

		out := rv.Call(in)
		if !returnsError {
			return out[0].Interface(), nil
		}
		var err error
		if e, ok := out[1].Interface().(error); ok {
			err = e
		}
		return out[0].Interface(), err
	}
}

// Compute builds a compute node named name from fn (any func(...) (R, error)
// or func(...) R matching deps' arity) and a normalized dependency list
// (spec §3, §4.2, §4.3).
func Compute(name string, fn any, deps []Dep, opts ...Option) *dag.ComputeNode {
	o := resolveOptions(opts)
	fnName := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	return dag.NewCompute(name, fnName, adapt(fn), normalizeDeps(deps), o.memCache, o.descriptor, fingerprintOf(fn, o.version))
}

// ForEach builds a foreach compute node named name from fn, fanning out
// over the dependency named by fanoutKey — either a string matching one of
// deps' positions after normalization (by the variable name it was
// constructed from) or an int literal giving the positional index directly
// (spec §3, §4.2, §4.5).
func ForEach(name string, fn any, deps []Dep, fanoutKey any, opts ...Option) (*dag.ForeachComputeNode, error) {
	o := resolveOptions(opts)
	fnName := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()

	nodes := normalizeDeps(deps)

	index, varName, err := resolveFanout(deps, fanoutKey)
	if err != nil {
		return nil, err
	}

	return dag.NewForeachCompute(name, fnName, adapt(fn), nodes, index, varName, o.memCache, o.descriptor, fingerprintOf(fn, o.version))
}

// resolveFanout maps fanoutKey onto a (position, variable name) pair. A
// string fanoutKey is matched against the original (pre-normalization)
// dependency list entries that were themselves strings; an int fanoutKey is
// used as a direct positional index with no associated variable name.
func resolveFanout(deps []Dep, fanoutKey any) (int, string, error) {
	switch k := fanoutKey.(type) {
	case int:
		if k < 0 || k >= len(deps) {
			return 0, "", fmt.Errorf("dagma: foreach fanout index %d out of range for %d dependencies", k, len(deps))
		}
		return k, "", nil
	case string:
		for i, d := range deps {
			if name, ok := d.(string); ok && name == k {
				return i, name, nil
			}
		}
		return 0, "", fmt.Errorf("dagma: foreach fanout key %q does not match any string dependency", k)
	default:
		return 0, "", fmt.Errorf("dagma: foreach fanout key must be an int or string, got %T", fanoutKey)
	}
}

// Value returns a node's current memoized value if present, consulting
// only its in-memory memo slot (bindings()={} is fine because ComputeNode
// and ForeachComputeNode's memo lookups are keyed on the bound-variable
// projection already captured by Bind/BindAll, not by the Bindings passed
// here). ok is false when nothing has been memoized under the node's bound
// variables, including when the last computation used bindings passed to a
// runner rather than bound to the node.
func Value(n dag.Node) (value any, ok bool) {
	val, present, err := n.GetValue(n.Effective(dag.Bindings{}), false)
	if err != nil || !present {
		return nil, false
	}
	return val, true
}
