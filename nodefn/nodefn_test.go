package nodefn_test

import (
	"testing"

	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/ast/normalize"
	"github.com/nilaway-labs/bugscompile/collect"
	"github.com/nilaway-labs/bugscompile/env"
	"github.com/nilaway-labs/bugscompile/nodefn"
	"github.com/nilaway-labs/bugscompile/transform"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, p *ast.Program, e *env.Environment) []*nodefn.Node {
	t.Helper()
	p, err := normalize.Normalize(p)
	require.NoError(t, err)
	res, err := collect.Collect(p, e)
	require.NoError(t, err)
	require.NoError(t, transform.Run(res, e))
	nodes, err := nodefn.Build(res, e)
	require.NoError(t, err)
	return nodes
}

func findNode(nodes []*nodefn.Node, id string) *nodefn.Node {
	for _, n := range nodes {
		if n.Var.ID() == id {
			return n
		}
	}
	return nil
}

// S6 — a stochastic graph with observed data: mu is a logical node wrapping
// a general expression; Y is a stochastic node that stays a model variable
// even though its value is observed.
func TestBuild_S6(t *testing.T) {
	t.Parallel()

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

	nodes := compile(t, p, e)

	y := findNode(nodes, "Y")
	require.NotNil(t, y)
	require.Equal(t, collect.Stochastic, y.Kind)

	mu := findNode(nodes, "mu")
	require.NotNil(t, mu)
	require.Equal(t, collect.Logical, mu.Kind)
	require.Contains(t, varIDs(mu.Deps), "alpha")
	require.Contains(t, varIDs(mu.Deps), "beta")

	alpha := findNode(nodes, "alpha")
	require.NotNil(t, alpha)
	require.Equal(t, collect.Stochastic, alpha.Kind)

	// The behavior S6 exists to probe: a stochastic node's Fn returns a
	// resolved Distribution, never a scalar.
	alphaResult, err := alpha.Fn(e)
	require.NoError(t, err)
	require.NotNil(t, alphaResult.Distribution, "expected alpha.Fn to return a Distribution")
	require.Equal(t, "dnorm", alphaResult.Distribution.Family)
	require.Len(t, alphaResult.Distribution.Params, 2)
	require.True(t, alphaResult.Distribution.Params[0].Determined())
	require.InDelta(t, 0, alphaResult.Distribution.Params[0].Float64(), 1e-9)
	require.InDelta(t, 1e-6, alphaResult.Distribution.Params[1].Float64(), 1e-12)

	// Y's distribution names mu as a parameter; mu is itself undetermined
	// here (it depends on the still-unsampled alpha/beta), so Y's Fn must
	// still produce a Distribution rather than erroring or falling back to
	// a scalar — it just carries an Undetermined parameter value for mu.
	yResult, err := y.Fn(e)
	require.NoError(t, err)
	require.NotNil(t, yResult.Distribution)
	require.Equal(t, "dnorm", yResult.Distribution.Family)
	require.Len(t, yResult.Distribution.Params, 2)
	require.False(t, yResult.Distribution.Params[0].Determined())
}

// Bare-identifier shortcut: `q = r`, with r a stochastic variable, yields a
// node whose only argument is r.
func TestBuild_BareIdentifierShortcut(t *testing.T) {
	t.Parallel()

	e := env.New()
	p := &ast.Program{Body: []ast.Stmt{
		ast.StochasticAssign{LHS: ast.Sym{Name: "r"}, RHS: ast.Call{Func: "dnorm", Args: []ast.Expr{ast.FloatLit{Value: 0}, ast.FloatLit{Value: 1}}}},
		ast.LogicalAssign{LHS: ast.Sym{Name: "q"}, RHS: ast.Sym{Name: "r"}},
	}}

	nodes := compile(t, p, e)
	q := findNode(nodes, "q")
	require.NotNil(t, q)
	require.Len(t, q.Args, 1)
	require.Equal(t, "r", q.Args[0].ID())
}

func varIDs(vs []env.Var) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID()
	}
	return out
}
