package dagbuild_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dagma-go/dagma/cache"
	"github.com/dagma-go/dagma/dag"
	"github.com/dagma-go/dagma/dagbuild"
	"github.com/dagma-go/dagma/dagerr"
	"github.com/dagma-go/dagma/fileio"
	"github.com/dagma-go/dagma/hashutil"
	"github.com/dagma-go/dagma/runner"
)

var errBoom = errors.New("boom")

func addOne(x int) (int, error) { return x + 1, nil }
func double(x int) int          { return x * 2 }

func TestComputeNormalizesHeterogeneousDeps(t *testing.T) {
	// "x" -> variable, 10 -> constant, node stays as-is.
	existing := dagbuild.Const("five", 5)
	sum3 := func(a, b, c int) (int, error) { return a + b + c, nil }

	n := dagbuild.Compute("sum3", sum3, []dagbuild.Dep{"x", 10, existing})

	r := runner.NewRecursive(n)
	val, err := r.Compute(context.Background(), dag.Bindings{"x": 1}, false)
	require.NoError(t, err)
	require.Equal(t, 16, val) // 1 + 10 + 5
}

func TestComputeAdaptsSingleReturnFunction(t *testing.T) {
	n := dagbuild.Compute("double", double, []dagbuild.Dep{"x"})
	r := runner.NewRecursive(n)
	val, err := r.Compute(context.Background(), dag.Bindings{"x": 4}, false)
	require.NoError(t, err)
	require.Equal(t, 8, val)
}

func TestComputePropagatesTransformError(t *testing.T) {
	boom := func(x int) (int, error) { return 0, errBoom }
	n := dagbuild.Compute("boom", boom, []dagbuild.Dep{"x"})

	r := runner.NewRecursive(n)
	_, err := r.Compute(context.Background(), dag.Bindings{"x": 1}, false)
	require.ErrorIs(t, err, errBoom)
}

func TestForeachResolvesFanoutByVariableName(t *testing.T) {
	ao, err := dagbuild.ForEach("addOneEach", addOne, []dagbuild.Dep{"xs"}, "xs")
	require.NoError(t, err)

	r := runner.NewRecursive(ao)
	seq := []any{1, 2, 3}
	val, err := r.Compute(context.Background(), dag.Bindings{"xs": seq}, false)
	require.NoError(t, err)
	require.Equal(t, []any{2, 3, 4}, val)
}

func TestForeachResolvesFanoutByPositionalIndex(t *testing.T) {
	existing := dagbuild.Const("seq", []any{1, 2, 3})
	ao, err := dagbuild.ForEach("addOneEach", addOne, []dagbuild.Dep{existing}, 0)
	require.NoError(t, err)

	r := runner.NewRecursive(ao)
	val, err := r.Compute(context.Background(), dag.Bindings{}, false)
	require.NoError(t, err)
	require.Equal(t, []any{2, 3, 4}, val)
}

func TestForeachUnknownStringFanoutKeyFails(t *testing.T) {
	_, err := dagbuild.ForEach("addOneEach", addOne, []dagbuild.Dep{10}, "xs")
	require.Error(t, err)
}

func TestForeachRejectsStaticCachePathThroughFacade(t *testing.T) {
	descriptor := cache.Descriptor{
		Path: fileio.StaticPath(filepath.Join(t.TempDir(), "out.gob")),
		Save: fileio.SaveGob,
		Load: fileio.LoadGob,
	}

	_, err := dagbuild.ForEach("addOneEach", addOne, []dagbuild.Dep{"xs"}, "xs", dagbuild.WithCache(descriptor))
	require.True(t, dagerr.Is(err, dagerr.ForeachPathMustBeCallable))
}

func TestWithVersionChangesFingerprintButNotCorrectness(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gob")
	descriptor := cache.Descriptor{
		Path:    fileio.StaticPath(path),
		Save:    fileio.SaveGob,
		Load:    fileio.LoadGob,
		NewHash: hashutil.NewMD5,
	}

	n := dagbuild.Compute("double", double, []dagbuild.Dep{"x"}, dagbuild.WithCache(descriptor), dagbuild.WithVersion(2))
	r := runner.NewRecursive(n)
	val, err := r.Compute(context.Background(), dag.Bindings{"x": 3}, false)
	require.NoError(t, err)
	require.Equal(t, 6, val)
}

func TestValueReturnsMemoizedResultAfterCompute(t *testing.T) {
	n := dagbuild.Compute("double", double, []dagbuild.Dep{"x"}, dagbuild.WithMemCache(true))
	n.BindAll(dag.Bindings{"x": 5})
	r := runner.NewRecursive(n)

	_, ok := dagbuild.Value(n)
	require.False(t, ok)

	_, err := r.Compute(context.Background(), dag.Bindings{}, false)
	require.NoError(t, err)

	val, ok := dagbuild.Value(n)
	require.True(t, ok)
	require.Equal(t, 10, val)
}
