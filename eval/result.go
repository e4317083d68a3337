// Package eval implements the partial evaluator of spec §4.B: a total
// function over (expr, environment) that folds constants, resolves indices
// and ranges, and otherwise returns the input expression with as much of it
// resolved as possible. It is the shared library used by the variable
// collector (§4.C), the data-transformation pass (§4.E), and the
// node-function builder (§4.F).
package eval

import (
	"errors"
	"fmt"

	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/env"
)

// ErrNonIntegerIndex is the sentinel a Result's Err field is set to when
// evaluation encountered a float index that is not exactly integral (spec
// §4.B / §9: "Float indices that are integral are coerced to integer;
// non-integral float indices are fatal"). Eval itself remains total (it
// never panics and always returns a Result); callers that need index
// resolution to be fatal on this condition (the variable collector, §4.C)
// check Result.Err and raise a compileerr.NonIntegerIndex error.
var ErrNonIntegerIndex = errors.New("eval: non-integer index")

// Kind discriminates the shape of an evaluation Result (spec §4.B: "a fully
// evaluated value ..., a UnitRange{Int} ..., a Colon marker, ... or the
// input expression itself").
type Kind int

const (
	// Unresolved means eval could not fully determine a value; Residual
	// holds the expression with whatever sub-parts were resolvable folded
	// in already.
	Unresolved Kind = iota
	// Value means eval produced a single determined scalar, in Scalar.
	Value
	// Array means eval produced a fully-determined multi-element value
	// (e.g. a sliced, fully-observed array range), in Elems/Shape.
	Array
	// RangeVal means eval produced a resolved integer range endpoint pair,
	// in Lo/Hi.
	RangeVal
	// ColonVal means eval produced the unresolved-full-axis colon marker.
	ColonVal
)

// Result is the outcome of evaluating an expression against an environment
// and an optional loop-variable scope.
type Result struct {
	Kind     Kind
	Scalar   env.Value
	Elems    []env.Value
	Shape    []int
	Lo, Hi   int
	Residual ast.Expr
	// Err is non-nil when evaluation detected a fatal condition (currently
	// only ErrNonIntegerIndex) rather than merely "not yet resolvable".
	Err error
}

// IsResolved implements spec §4.B's is_resolved predicate: true iff v is an
// integer, float, or array thereof with no missing elements.
func (r Result) IsResolved() bool {
	return r.Kind == Value || r.Kind == Array
}

// Expr reconstructs an ast.Expr for this result, used when a caller needs to
// keep carrying a partially-resolved computation forward (e.g. building a
// canonical residual RHS for a node function).
func (r Result) Expr() ast.Expr {
	switch r.Kind {
	case Value:
		if r.Scalar.IsFloat() {
			return ast.FloatLit{Value: r.Scalar.Float64()}
		}
		return ast.IntLit{Value: r.Scalar.Int64()}
	case RangeVal:
		return ast.Call{Func: ":", Args: []ast.Expr{ast.IntLit{Value: r.Lo}, ast.IntLit{Value: r.Hi}}}
	case ColonVal:
		return ast.Call{Func: ":"}
	case Array:
		// Arrays have no literal expression form; callers that reach this
		// branch should be consuming r.Elems/r.Shape directly instead.
		return ast.Sym{Name: fmt.Sprintf("<array:%v>", r.Shape)}
	default:
		return r.Residual
	}
}

// AsScalarInt returns the resolved scalar as an integer along with whether
// the coercion succeeded, applying spec §9's rule: coerce a float iff it is
// exactly integral.
func (r Result) AsScalarInt() (int, bool) {
	if r.Kind != Value {
		return 0, false
	}
	return r.Scalar.AsInt()
}

func unresolved(e ast.Expr) Result { return Result{Kind: Unresolved, Residual: e} }
func value(v env.Value) Result     { return Result{Kind: Value, Scalar: v} }
