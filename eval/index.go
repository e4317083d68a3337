package eval

import (
	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/env"
)

// IndexKind classifies the outcome of resolving one LHS or loop-bound index
// expression (spec §4.C): a bare identifier or Ref index must each
// partial-evaluate to an integer or a UnitRange{Int}; anything else is
// either still-unresolved (defer and retry at the next fixpoint round) or a
// fatal non-integer index.
type IndexKind int

const (
	IndexUnresolved IndexKind = iota
	IndexInt
	IndexRange
	IndexNonInteger
)

// IndexResult is the classified outcome of ResolveIndex.
type IndexResult struct {
	Kind   IndexKind
	Int    int
	Lo, Hi int
}

// ResolveIndex evaluates idxExpr against en/scope and classifies the result
// for LHS-index or loop-bound handling, per spec §4.C.
func ResolveIndex(idxExpr ast.Expr, en *env.Environment, scope Scope) IndexResult {
	res := Eval(idxExpr, en, scope)
	switch res.Kind {
	case Value:
		if iv, ok := res.AsScalarInt(); ok {
			return IndexResult{Kind: IndexInt, Int: iv}
		}
		return IndexResult{Kind: IndexNonInteger}
	case RangeVal:
		return IndexResult{Kind: IndexRange, Lo: res.Lo, Hi: res.Hi}
	default:
		if res.Err == ErrNonIntegerIndex {
			return IndexResult{Kind: IndexNonInteger}
		}
		return IndexResult{Kind: IndexUnresolved}
	}
}
