package eval_test

import (
	"testing"

	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/env"
	"github.com/nilaway-labs/bugscompile/eval"
	"github.com/stretchr/testify/require"
)

func TestEval_Literals(t *testing.T) {
	t.Parallel()

	r := eval.Eval(ast.IntLit{Value: 3}, nil, nil)
	require.Equal(t, eval.Value, r.Kind)
	iv, ok := r.AsScalarInt()
	require.True(t, ok)
	require.Equal(t, 3, iv)
}

func TestEval_SymFromScopeAndEnv(t *testing.T) {
	t.Parallel()

	e := env.New()
	e.SeedScalar("xbar", env.Int(22))

	r := eval.Eval(ast.Sym{Name: "xbar"}, e, nil)
	require.Equal(t, eval.Value, r.Kind)

	r = eval.Eval(ast.Sym{Name: "i"}, e, eval.Scope{"i": 5})
	iv, ok := r.AsScalarInt()
	require.True(t, ok)
	require.Equal(t, 5, iv)

	r = eval.Eval(ast.Sym{Name: "undefined"}, e, nil)
	require.Equal(t, eval.Unresolved, r.Kind)
}

func TestEval_RangeAndColon(t *testing.T) {
	t.Parallel()

	r := eval.Eval(ast.Call{Func: ":", Args: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: 3}}}, nil, nil)
	require.Equal(t, eval.RangeVal, r.Kind)
	require.Equal(t, 1, r.Lo)
	require.Equal(t, 3, r.Hi)

	r = eval.Eval(ast.Call{Func: ":"}, nil, nil)
	require.Equal(t, eval.ColonVal, r.Kind)
}

func TestEval_ArithmeticFolding(t *testing.T) {
	t.Parallel()

	// 2 + 3 * i, with i bound to 4 => 14 (all integer).
	expr := ast.Call{Func: "+", Args: []ast.Expr{
		ast.IntLit{Value: 2},
		ast.Call{Func: "*", Args: []ast.Expr{ast.IntLit{Value: 3}, ast.Sym{Name: "i"}}},
	}}
	r := eval.Eval(expr, nil, eval.Scope{"i": 4})
	require.Equal(t, eval.Value, r.Kind)
	iv, ok := r.AsScalarInt()
	require.True(t, ok)
	require.Equal(t, 14, iv)
}

func TestEval_RefSlicing(t *testing.T) {
	t.Parallel()

	e := env.New()
	e.SeedArray("u", []int{3}, []env.Value{env.Int(10), env.Int(20), env.Int(30)})

	// Single element.
	r := eval.Eval(ast.Ref{Name: "u", Indices: []ast.Expr{ast.IntLit{Value: 2}}}, e, nil)
	require.Equal(t, eval.Value, r.Kind)
	iv, _ := r.AsScalarInt()
	require.Equal(t, 20, iv)

	// Full slice via range.
	r = eval.Eval(ast.Ref{Name: "u", Indices: []ast.Expr{
		ast.Call{Func: ":", Args: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: 2}}},
	}}, e, nil)
	require.Equal(t, eval.Array, r.Kind)
	require.Len(t, r.Elems, 2)

	// mean(u[1:2]) should fold to 15.
	meanExpr := ast.Call{Func: "mean", Args: []ast.Expr{
		ast.Ref{Name: "u", Indices: []ast.Expr{
			ast.Call{Func: ":", Args: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: 2}}},
		}},
	}}
	r = eval.Eval(meanExpr, e, nil)
	require.Equal(t, eval.Value, r.Kind)
	require.InDelta(t, 15.0, r.Scalar.Float64(), 1e-9)
}

func TestEval_RefUndeterminedCell(t *testing.T) {
	t.Parallel()

	e := env.New()
	e.EnsureArray("m", []int{2, 2})

	r := eval.Eval(ast.Ref{Name: "m", Indices: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: 1}}}, e, nil)
	require.Equal(t, eval.Unresolved, r.Kind)
}

func TestEval_NonIntegerIndexIsFatal(t *testing.T) {
	t.Parallel()

	e := env.New()
	e.SeedArray("u", []int{3}, []env.Value{env.Int(1), env.Int(2), env.Int(3)})

	r := eval.Eval(ast.Ref{Name: "u", Indices: []ast.Expr{ast.FloatLit{Value: 1.5}}}, e, nil)
	require.Equal(t, eval.Unresolved, r.Kind)
	require.ErrorIs(t, r.Err, eval.ErrNonIntegerIndex)
}

func TestResolveIndex(t *testing.T) {
	t.Parallel()

	r := eval.ResolveIndex(ast.IntLit{Value: 2}, nil, nil)
	require.Equal(t, eval.IndexInt, r.Kind)
	require.Equal(t, 2, r.Int)

	r = eval.ResolveIndex(ast.Call{Func: ":", Args: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: 4}}}, nil, nil)
	require.Equal(t, eval.IndexRange, r.Kind)

	r = eval.ResolveIndex(ast.FloatLit{Value: 1.5}, nil, nil)
	require.Equal(t, eval.IndexNonInteger, r.Kind)

	r = eval.ResolveIndex(ast.Sym{Name: "N"}, nil, nil)
	require.Equal(t, eval.IndexUnresolved, r.Kind)
}
