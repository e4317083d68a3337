package eval

import (
	"math"

	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/env"
	"github.com/nilaway-labs/bugscompile/registry"
)

// Scope binds loop variables (and, transiently, other locally-fixed
// identifiers) to concrete integers during unrolling. It is consulted
// before the environment on every Sym lookup. A nil Scope is the empty
// scope.
type Scope map[string]int

// Eval is the partial evaluator of spec §4.B.
func Eval(e ast.Expr, en *env.Environment, scope Scope) Result {
	switch n := e.(type) {
	case ast.IntLit:
		return value(env.Int(n.Value))
	case ast.FloatLit:
		return value(env.Float(n.Value))
	case ast.Sym:
		return evalSym(n, en, scope)
	case ast.Ref:
		return evalRef(n, en, scope)
	case ast.Call:
		return evalCall(n, en, scope)
	default:
		return unresolved(e)
	}
}

func evalSym(n ast.Sym, en *env.Environment, scope Scope) Result {
	if scope != nil {
		if v, ok := scope[n.Name]; ok {
			return value(env.Int(v))
		}
	}
	if en != nil {
		if v, ok := en.Scalars.Load(n.Name); ok && v.Determined() {
			return value(v)
		}
	}
	return unresolved(n)
}

// evalRef implements the Ref rule of spec §4.B.
func evalRef(n ast.Ref, en *env.Environment, scope Scope) Result {
	a, bound := envArray(en, n.Name)

	resolvedIdx := make([]axisIndex, len(n.Indices))
	allResolved := true
	var firstErr error
	rebuilt := make([]ast.Expr, len(n.Indices))

	for i, idxExpr := range n.Indices {
		res := Eval(idxExpr, en, scope)
		switch {
		case res.Kind == Value:
			iv, ok := res.AsScalarInt()
			if !ok {
				// Non-integral float index: spec §4.B/§9 rule.
				allResolved = false
				if firstErr == nil {
					firstErr = ErrNonIntegerIndex
				}
				rebuilt[i] = idxExpr
				continue
			}
			resolvedIdx[i] = axisIndex{lo: iv, hi: iv, isRange: false}
			rebuilt[i] = ast.IntLit{Value: iv}
		case res.Kind == RangeVal:
			resolvedIdx[i] = axisIndex{lo: res.Lo, hi: res.Hi, isRange: true}
			rebuilt[i] = ast.Call{Func: ":", Args: []ast.Expr{ast.IntLit{Value: res.Lo}, ast.IntLit{Value: res.Hi}}}
		case res.Kind == ColonVal && bound && i < len(a.Shape):
			resolvedIdx[i] = axisIndex{lo: 1, hi: a.Shape[i], isRange: true}
			rebuilt[i] = ast.Call{Func: ":", Args: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: a.Shape[i]}}}
		default:
			allResolved = false
			rebuilt[i] = res.Expr()
		}
	}

	if !allResolved || !bound {
		r := unresolved(ast.Ref{Name: n.Name, Indices: rebuilt})
		r.Err = firstErr
		return r
	}

	// All indices are resolved ints/ranges and the array is bound: slice it.
	return sliceArray(a, n.Name, resolvedIdx)
}

type axisIndex struct {
	lo, hi  int
	isRange bool
}

func envArray(en *env.Environment, name string) (*env.Array, bool) {
	if en == nil {
		return nil, false
	}
	return en.Arrays.Load(name)
}

// sliceArray scalarizes the cartesian product described by idx and returns
// either a single Value (all axes single-index) or an Array result (any
// axis a range), per spec §4.B: "the result is returned only if every
// selected cell is determined."
func sliceArray(a *env.Array, name string, idx []axisIndex) Result {
	shape := make([]int, 0, len(idx))
	for _, ix := range idx {
		if ix.isRange {
			shape = append(shape, ix.hi-ix.lo+1)
		}
	}

	var elems []env.Value
	allDetermined := true
	var walk func(axis int, cur []int)
	walk = func(axis int, cur []int) {
		if axis == len(idx) {
			v, err := a.Get(cur)
			if err != nil || !v.Determined() {
				allDetermined = false
				elems = append(elems, env.Undetermined)
				return
			}
			elems = append(elems, v)
			return
		}
		for i := idx[axis].lo; i <= idx[axis].hi; i++ {
			next := append(append([]int{}, cur...), i)
			walk(axis+1, next)
		}
	}
	walk(0, nil)

	if !allDetermined {
		// Still return the concretized-index Ref as the residual so later
		// passes see exactly which element indices are pending.
		indices := make([]ast.Expr, len(idx))
		for i, ix := range idx {
			if ix.isRange {
				indices[i] = ast.Call{Func: ":", Args: []ast.Expr{ast.IntLit{Value: ix.lo}, ast.IntLit{Value: ix.hi}}}
			} else {
				indices[i] = ast.IntLit{Value: ix.lo}
			}
		}
		return unresolved(ast.Ref{Name: name, Indices: indices})
	}

	if len(shape) == 0 {
		return value(elems[0])
	}
	return Result{Kind: Array, Elems: elems, Shape: shape}
}

func evalCall(n ast.Call, en *env.Environment, scope Scope) Result {
	if ast.IsColon(n) {
		return Result{Kind: ColonVal}
	}
	if ast.IsRange(n) {
		lo := Eval(n.Args[0], en, scope)
		hi := Eval(n.Args[1], en, scope)
		loI, loOK := lo.AsScalarInt()
		hiI, hiOK := hi.AsScalarInt()
		if loOK && hiOK {
			return Result{Kind: RangeVal, Lo: loI, Hi: hiI}
		}
		return unresolved(ast.Call{Func: ":", Args: []ast.Expr{lo.Expr(), hi.Expr()}})
	}

	argResults := make([]Result, len(n.Args))
	allResolved := true
	for i, a := range n.Args {
		argResults[i] = Eval(a, en, scope)
		if !argResults[i].IsResolved() {
			allResolved = false
		}
	}

	entry, known := registry.Lookup(n.Func)
	if !allResolved || !known || entry.Distribution {
		rebuilt := make([]ast.Expr, len(n.Args))
		for i, r := range argResults {
			rebuilt[i] = r.Expr()
		}
		return unresolved(ast.Call{Func: n.Func, Args: rebuilt})
	}

	flat, allInt := flatten(argResults)
	if !entry.CheckArity(len(flat)) {
		rebuilt := make([]ast.Expr, len(n.Args))
		for i, r := range argResults {
			rebuilt[i] = r.Expr()
		}
		return unresolved(ast.Call{Func: n.Func, Args: rebuilt})
	}

	out, err := entry.Fn(flat...)
	if err != nil {
		rebuilt := make([]ast.Expr, len(n.Args))
		for i, r := range argResults {
			rebuilt[i] = r.Expr()
		}
		return unresolved(ast.Call{Func: n.Func, Args: rebuilt})
	}

	if allInt && out == math.Trunc(out) {
		return value(env.Int(int(out)))
	}
	return value(env.Float(out))
}

// flatten collapses a slice of resolved Results (scalars or arrays) into a
// flat list of float64 arguments for a registry.Fn, and reports whether
// every contributing value was an integer.
func flatten(results []Result) ([]float64, bool) {
	var out []float64
	allInt := true
	for _, r := range results {
		switch r.Kind {
		case Value:
			out = append(out, r.Scalar.Float64())
			if r.Scalar.IsFloat() {
				allInt = false
			}
		case Array:
			for _, e := range r.Elems {
				out = append(out, e.Float64())
				if e.IsFloat() {
					allInt = false
				}
			}
		}
	}
	return out, allInt
}
