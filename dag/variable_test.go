package dag_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dagma-go/dagma/dag"
	"github.com/dagma-go/dagma/dagerr"
)

func TestVariableNodeEvaluatesFromEffectiveBindings(t *testing.T) {
	v := dag.NewVariable("x")
	require.Equal(t, map[string]struct{}{"x": {}}, v.VarDeps())

	eff := v.Effective(dag.Bindings{"x": 7, "y": 100})
	require.Equal(t, dag.Bindings{"x": 7}, eff)

	val, err := v.Evaluate(context.Background(), eff, nil, false)
	require.NoError(t, err)
	require.Equal(t, 7, val)
}

func TestVariableNodeMissingBindingFails(t *testing.T) {
	v := dag.NewVariable("x")
	eff := v.Effective(dag.Bindings{})

	_, err := v.Evaluate(context.Background(), eff, nil, false)
	require.Error(t, err)
	require.True(t, dagerr.Is(err, dagerr.MissingVariable))
}

func TestVariableNodeNeverMemoizes(t *testing.T) {
	v := dag.NewVariable("x")
	eff := v.Effective(dag.Bindings{"x": 1})
	require.False(t, v.CanGetValue(eff, false))
}
