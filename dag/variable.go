package dag

import (
	"context"
	"fmt"
)

// VariableNode holds a single variable name and looks it up in the
// effective bindings at evaluation time. Like ConstantNode it never
// memoizes; the lookup itself is the trivial operation (spec §3, §4.1).
type VariableNode struct {
	*baseNode
	varName string
}

// NewVariable builds a variable node referencing varName.
func NewVariable(varName string) *VariableNode {
	n := &VariableNode{baseNode: newBaseNode(fmt.Sprintf("Var(%s)", varName), nil, false)}
	n.varName = varName
	n.varDeps = map[string]struct{}{varName: {}}
	return n
}

// CanGetValue always reports false; see ConstantNode.CanGetValue.
func (v *VariableNode) CanGetValue(effective Bindings, force bool) bool { return false }

// GetValue always reports no value available.
func (v *VariableNode) GetValue(effective Bindings, force bool) (any, bool, error) {
	return nil, false, nil
}

// Evaluate looks up the bound variable in effective, failing with
// dagerr.MissingVariable if it is absent.
func (v *VariableNode) Evaluate(ctx context.Context, effective Bindings, depVals []any, force bool) (any, error) {
	if err := v.checkMissingVarDeps(effective); err != nil {
		return nil, err
	}
	return effective[v.varName], nil
}

// String implements fmt.Stringer for debug output and graph descriptions.
func (v *VariableNode) String() string {
	return fmt.Sprintf("Var(%s)", v.varName)
}
