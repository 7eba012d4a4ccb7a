package runner_test

import (
	"path/filepath"
	"testing"

	"github.com/dagma-go/dagma/cache"
	"github.com/dagma-go/dagma/dag"
	"github.com/dagma-go/dagma/fileio"
	"github.com/dagma-go/dagma/hashutil"
)

func addOne(args []any) (any, error) { return args[0].(int) + 1, nil }
func subTwo(args []any) (any, error) { return args[0].(int) - 2, nil }
func mulTwo(args []any) (any, error) { return args[0].(int) * 2, nil }

func sumN(args []any) (any, error) {
	total := 0
	for _, a := range args {
		total += a.(int)
	}
	return total, nil
}

func noCache() cache.Descriptor { return cache.Descriptor{} }
func noFp() cache.Fingerprint   { return cache.Fingerprint{} }

func diskCache(t *testing.T) cache.Descriptor {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.gob")
	return cache.Descriptor{
		Path:    fileio.StaticPath(path),
		Save:    fileio.SaveGob,
		Load:    fileio.LoadGob,
		NewHash: hashutil.NewMD5,
	}
}

func compute(name, fnName string, fn dag.Transform, deps []dag.Node) *dag.ComputeNode {
	return dag.NewCompute(name, fnName, fn, deps, true, noCache(), noFp())
}
