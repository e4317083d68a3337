package ast_test

import (
	"testing"

	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/stretchr/testify/require"
)

func TestIsRangeAndIsColon(t *testing.T) {
	t.Parallel()

	rng := ast.Call{Func: ":", Args: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: 3}}}
	require.True(t, ast.IsRange(rng))
	require.False(t, ast.IsColon(rng))

	colon := ast.Call{Func: ":"}
	require.True(t, ast.IsColon(colon))
	require.False(t, ast.IsRange(colon))

	require.False(t, ast.IsRange(ast.Call{Func: "+", Args: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: 2}}}))
}

func TestExprString(t *testing.T) {
	t.Parallel()

	ref := ast.Ref{Name: "m", Indices: []ast.Expr{ast.Sym{Name: "i"}, ast.IntLit{Value: 2}}}
	require.Equal(t, "m[i, 2]", ref.String())

	rng := ast.Call{Func: ":", Args: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: 3}}}
	require.Equal(t, "1:3", rng.String())

	call := ast.Call{Func: "dnorm", Args: []ast.Expr{ast.Sym{Name: "mu"}, ast.Sym{Name: "tau"}}}
	require.Equal(t, "dnorm(mu, tau)", call.String())
}
