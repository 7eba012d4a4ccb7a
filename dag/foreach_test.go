package dag_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dagma-go/dagma/cache"
	"github.com/dagma-go/dagma/dag"
	"github.com/dagma-go/dagma/dagerr"
	"github.com/dagma-go/dagma/fileio"
)

func TestForeachComputeNodeAppliesTransformPerElementInOrder(t *testing.T) {
	xs := dag.NewVariable("xs")
	calls := 0
	transform := func(args []any) (any, error) {
		calls++
		return args[0].(int) + 1, nil
	}
	f, err := dag.NewForeachCompute("addOneEach", "add_one", transform, []dag.Node{xs}, 0, "xs", false, cache.Descriptor{}, cache.Fingerprint{})
	require.NoError(t, err)

	seq := make([]any, 10)
	for i := range seq {
		seq[i] = i
	}
	eff := f.Effective(dag.Bindings{"xs": seq})
	val, err := f.Evaluate(context.Background(), eff, []any{seq}, false)
	require.NoError(t, err)

	got := val.([]any)
	require.Len(t, got, 10)
	for i, v := range got {
		require.Equal(t, i+1, v)
	}
	require.Equal(t, 10, calls)
}

func TestForeachComputeNodeDedupsDuplicateElements(t *testing.T) {
	xs := dag.NewVariable("xs")
	calls := 0
	transform := func(args []any) (any, error) {
		calls++
		return args[0].(int) * 2, nil
	}
	f, err := dag.NewForeachCompute("double", "mul_two", transform, []dag.Node{xs}, 0, "xs", false, cache.Descriptor{}, cache.Fingerprint{})
	require.NoError(t, err)

	seq := []any{1, 1, 2, 1}
	eff := f.Effective(dag.Bindings{"xs": seq})
	val, err := f.Evaluate(context.Background(), eff, []any{seq}, false)
	require.NoError(t, err)

	got := val.([]any)
	require.Equal(t, []any{2, 2, 4, 2}, got)
	require.Equal(t, 2, calls) // one call for 1, one for 2
}

func TestForeachComputeNodeMemoizationDisabledByDefault(t *testing.T) {
	xs := dag.NewVariable("xs")
	transform := func(args []any) (any, error) { return args[0].(int) + 1, nil }
	f, err := dag.NewForeachCompute("addOneEach", "add_one", transform, []dag.Node{xs}, 0, "xs", false, cache.Descriptor{}, cache.Fingerprint{})
	require.NoError(t, err)

	eff := f.Effective(dag.Bindings{"xs": []any{1, 2, 3}})
	_, err = dag.Step(context.Background(), f, eff, []any{[]any{1, 2, 3}}, false)
	require.NoError(t, err)

	require.False(t, f.CanGetValue(eff, false))
}

func TestNewForeachComputeRejectsStaticCachePath(t *testing.T) {
	xs := dag.NewVariable("xs")
	transform := func(args []any) (any, error) { return args[0].(int) + 1, nil }
	descriptor := cache.Descriptor{
		Path: fileio.StaticPath(filepath.Join(t.TempDir(), "out.gob")),
		Save: fileio.SaveGob,
		Load: fileio.LoadGob,
	}

	_, err := dag.NewForeachCompute("addOneEach", "add_one", transform, []dag.Node{xs}, 0, "xs", false, descriptor, cache.Fingerprint{})
	require.True(t, dagerr.Is(err, dagerr.ForeachPathMustBeCallable))
}

func TestNewForeachComputeAcceptsPathVaryingByIndex(t *testing.T) {
	xs := dag.NewVariable("xs")
	transform := func(args []any) (any, error) { return args[0].(int) + 1, nil }
	dir := t.TempDir()
	descriptor := cache.Descriptor{
		Path: func(bindings map[string]any) string {
			return filepath.Join(dir, fmt.Sprintf("out-%v.gob", bindings["__dagma_foreach_index__"]))
		},
		Save: fileio.SaveGob,
		Load: fileio.LoadGob,
	}

	f, err := dag.NewForeachCompute("addOneEach", "add_one", transform, []dag.Node{xs}, 0, "xs", false, descriptor, cache.Fingerprint{})
	require.NoError(t, err)
	require.NotNil(t, f)
}
