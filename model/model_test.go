package model_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/ast/normalize"
	"github.com/nilaway-labs/bugscompile/collect"
	"github.com/nilaway-labs/bugscompile/env"
	"github.com/nilaway-labs/bugscompile/model"
	"github.com/nilaway-labs/bugscompile/nodefn"
	"github.com/nilaway-labs/bugscompile/transform"
	"github.com/stretchr/testify/require"
)

func compileS6(t *testing.T) (*env.Environment, *collect.Result, []*nodefn.Node) {
	t.Helper()
	e := env.New()
	e.SeedScalar("Y", env.Int(151))
	e.SeedScalar("x", env.Int(8))
	e.SeedScalar("xbar", env.Int(22))

	p := &ast.Program{Body: []ast.Stmt{
		ast.StochasticAssign{LHS: ast.Sym{Name: "Y"}, RHS: ast.Call{Func: "dnorm", Args: []ast.Expr{ast.Sym{Name: "mu"}, ast.Sym{Name: "tau"}}}},
		ast.LogicalAssign{LHS: ast.Sym{Name: "mu"}, RHS: ast.Call{Func: "+", Args: []ast.Expr{
			ast.Sym{Name: "alpha"},
			ast.Call{Func: "*", Args: []ast.Expr{ast.Sym{Name: "beta"}, ast.Call{Func: "-", Args: []ast.Expr{ast.Sym{Name: "x"}, ast.Sym{Name: "xbar"}}}}},
		}}},
		ast.StochasticAssign{LHS: ast.Sym{Name: "alpha"}, RHS: ast.Call{Func: "dnorm", Args: []ast.Expr{ast.FloatLit{Value: 0}, ast.FloatLit{Value: 1e-6}}}},
		ast.StochasticAssign{LHS: ast.Sym{Name: "beta"}, RHS: ast.Call{Func: "dnorm", Args: []ast.Expr{ast.FloatLit{Value: 0}, ast.FloatLit{Value: 1e-6}}}},
		ast.StochasticAssign{LHS: ast.Sym{Name: "tau"}, RHS: ast.Call{Func: "dgamma", Args: []ast.Expr{ast.FloatLit{Value: 0.001}, ast.FloatLit{Value: 0.001}}}},
	}}

	p, err := normalize.Normalize(p)
	require.NoError(t, err)
	res, err := collect.Collect(p, e)
	require.NoError(t, err)
	require.NoError(t, transform.Run(res, e))
	nodes, err := nodefn.Build(res, e)
	require.NoError(t, err)
	return e, res, nodes
}

// S6 — parameters are exactly {alpha, beta, tau}.
func TestAssemble_S6Parameters(t *testing.T) {
	t.Parallel()

	e, res, nodes := compileS6(t)
	m, err := model.Assemble(nodes, res, e)
	require.NoError(t, err)

	var ids []string
	for _, p := range m.Parameters {
		ids = append(ids, p.ID())
	}
	require.ElementsMatch(t, []string{"alpha", "beta", "tau"}, ids)

	y := m.NodeByID("Y")
	require.NotNil(t, y)
	require.Equal(t, collect.Stochastic, y.Kind)
}

func TestSaveLoadArtifact_RoundTrip(t *testing.T) {
	t.Parallel()

	e, res, nodes := compileS6(t)
	m, err := model.Assemble(nodes, res, e)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, model.SaveArtifact(&buf, m))

	loaded, err := model.LoadArtifact(&buf)
	require.NoError(t, err)

	require.ElementsMatch(t, m.Order, loaded.Order)

	// The artifact round-trip must preserve each parameter Var exactly (name
	// and indices), not just its ID string, so diff the full structs;
	// cmpopts.SortSlices makes the comparison order-insensitive the same way
	// ElementsMatch does above.
	sortVars := cmpopts.SortSlices(func(a, b env.Var) bool { return a.ID() < b.ID() })
	if diff := cmp.Diff(m.Parameters, loaded.Parameters, sortVars); diff != "" {
		t.Fatalf("restored parameters differ from original (-want +got):\n%s", diff)
	}

	yVal, ok := loaded.Env.Get(env.Scalar("Y"))
	require.True(t, ok)
	require.True(t, yVal.Determined())
	require.Equal(t, 151, yVal.Int64())
}
