// Package nodefn implements the node-function builder of spec §4.F: for
// every surviving non-data model variable it derives the set of coarse
// argument variables, the set of fine (element-level) dependency
// variables, and a callable that produces the variable's value.
//
// Spec §4.F describes a node function as "a callable that takes arguments
// in the order of args(V)"; this implementation does not invent a
// positional-argument calling convention for that, since nothing in the
// spec specifies one and every evaluation in this compiler already happens
// against one shared (optionally per-sample cloned) environment (spec §5).
// Instead each Node's Fn closes over its already index-concrete,
// scope-substituted RHS expression and simply re-evaluates it (via package
// eval) against whatever *env.Environment the caller passes in. Args and
// Deps remain first-class, ordered variable lists — they are exactly what
// the graph builder (package graph) needs to add edges; they are just not
// threaded through Fn's call signature.
//
// spec.md's node-function section (lines 7, 93) is explicit that Fn returns
// "a distribution object (for stochastic nodes)", not a scalar — a
// stochastic variable's "value" before sampling is the distribution it was
// declared with, parameterized by whatever is currently known about its
// arguments. Result and Distribution carry that: a logical node's Fn always
// returns a Scalar, a stochastic node's Fn always returns a Distribution.
package nodefn

import (
	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/collect"
	"github.com/nilaway-labs/bugscompile/compileerr"
	"github.com/nilaway-labs/bugscompile/env"
	"github.com/nilaway-labs/bugscompile/eval"
	"github.com/nilaway-labs/bugscompile/registry"
)

// Distribution is the resolved distribution object spec.md names as the
// value a stochastic node function returns ("... a distribution object (for
// stochastic nodes)"): the distribution family the assignment's RHS called
// and its parameters, evaluated as far as possible against the environment
// Fn was called with. A parameter that is not yet determined (e.g. it
// itself names another stochastic variable) comes back as env.Undetermined
// rather than blocking the whole Distribution from being produced.
type Distribution struct {
	Family string
	Params []env.Value
}

// Result is what a Node's Fn produces. A logical node's Fn always sets
// Scalar and leaves Distribution nil. A stochastic node's Fn always sets
// Distribution and leaves Scalar its zero value: after ast/normalize, every
// stochastic assignment's RHS is a call to a registered distribution
// (ast.StochasticAssign.RHS's doc comment), and eval.Eval never folds a
// Distribution-tagged call down to a plain value (registry entries for
// dnorm/dbin/dcat/... are all tagged Distribution: true, which forces
// evalCall to return eval.Unresolved) — so a stochastic node's value is
// never a bare scalar the way a logical node's is.
type Result struct {
	Scalar       env.Value
	Distribution *Distribution
}

// Fn produces a model variable's value against the given environment.
type Fn func(e *env.Environment) (Result, error)

// Node is the node record of spec §3 for one surviving model variable.
type Node struct {
	Var  env.Var
	Kind collect.Kind
	Link string
	Args []env.Var
	Deps []env.Var
	Fn   Fn
}

// Build runs the node-function builder over every assignment res collected,
// skipping logical variables the data-transformation pass (package
// transform) already fully resolved (spec §3: "demoted to pseudo-data and
// removed from the set of model variables"). A purely stochastic variable
// is always kept, even if its value is data-observed (spec §8 scenario S6:
// `Y` stays a stochastic node with a determined value).
func Build(res *collect.Result, e *env.Environment) ([]*Node, error) {
	var nodes []*Node
	for _, a := range res.Assignments {
		vars := a.Vars()
		for i, v := range vars {
			if a.Kind == collect.Logical {
				if val, ok := e.Get(v); ok && val.Determined() {
					continue
				}
			}
			n, err := buildNode(v, a, i, len(vars), e)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func buildNode(v env.Var, a collect.Assignment, elementIdx, elementCount int, e *env.Environment) (*Node, error) {
	if a.Kind == collect.Logical && a.Link != "" {
		return nil, compileerr.New(compileerr.UndefinedLinkFunction,
			"link function %q survives on logical variable %s", a.Link, v.ID()).At(a.RHS)
	}

	rhs := a.RHS
	deps, args := depsAndArgs(rhs, e)

	// A stochastic node's value is a Distribution, never a scalar: route it
	// to its own builder instead of the shortcuts/general case below, both
	// of which only ever produce a Result.Scalar and exist for logical
	// nodes. The "Multivariate node shapes" supplement (dmnorm/dwish) needs
	// no special handling here — every scalarized element of a
	// vector/matrix-shaped stochastic LHS shares the same RHS Call, so each
	// element's Node independently evaluates the same Family/Params.
	if a.Kind == collect.Stochastic {
		return buildStochasticNode(v, a, rhs, deps, args)
	}

	switch n := rhs.(type) {
	case ast.IntLit, ast.FloatLit:
		// Structural shortcut: RHS is a literal constant.
		val := literalValue(rhs)
		return &Node{Var: v, Kind: a.Kind, Link: a.Link, Args: nil, Deps: nil,
			Fn: func(*env.Environment) (Result, error) { return Result{Scalar: val}, nil }}, nil

	case ast.Sym:
		// Structural shortcut: RHS is a bare identifier.
		name := n.Name
		return &Node{Var: v, Kind: a.Kind, Link: a.Link, Args: args, Deps: deps,
			Fn: func(e *env.Environment) (Result, error) {
				val, ok := e.Scalars.Load(name)
				if !ok {
					return Result{Scalar: env.Undetermined}, nil
				}
				return Result{Scalar: val}, nil
			}}, nil

	case ast.Ref:
		if allConstantIndices(n) {
			// Structural shortcut: RHS is a fully constant-indexed reference.
			indices := constantIndices(n)
			name := n.Name
			return &Node{Var: v, Kind: a.Kind, Link: a.Link, Args: args, Deps: deps,
				Fn: func(e *env.Environment) (Result, error) {
					arr, ok := e.Arrays.Load(name)
					if !ok {
						return Result{Scalar: env.Undetermined}, nil
					}
					val, err := arr.Get(indices)
					if err != nil {
						return Result{Scalar: env.Undetermined}, nil
					}
					return Result{Scalar: val}, nil
				}}, nil
		}
	}

	// General case: wrap the expression in a callable. For a slice
	// assignment, re-evaluate the whole RHS and pick out this element's
	// contribution; for everything else evaluate it directly.
	isSlice := a.IsSlice()
	fn := func(e *env.Environment) (Result, error) {
		r := eval.Eval(rhs, e, nil)
		switch r.Kind {
		case eval.Value:
			if isSlice && elementCount > 1 {
				return Result{Scalar: env.Undetermined}, nil
			}
			return Result{Scalar: r.Scalar}, nil
		case eval.Array:
			if elementIdx < len(r.Elems) {
				return Result{Scalar: r.Elems[elementIdx]}, nil
			}
			return Result{Scalar: env.Undetermined}, nil
		default:
			return Result{Scalar: env.Undetermined}, nil
		}
	}
	return &Node{Var: v, Kind: a.Kind, Link: a.Link, Args: args, Deps: deps, Fn: fn}, nil
}

// buildStochasticNode builds the Fn for a stochastic model variable. After
// ast/normalize, rhs is always an ast.Call naming a registered distribution
// (never a literal/Sym/Ref) — buildNode above already routes every
// collect.Stochastic assignment here before reaching the logical-only
// shortcuts, so this is the only place a stochastic Node's Fn is built.
func buildStochasticNode(v env.Var, a collect.Assignment, rhs ast.Expr, deps, args []env.Var) (*Node, error) {
	call, ok := rhs.(ast.Call)
	if !ok {
		return nil, compileerr.New(compileerr.UnsupportedExpression,
			"stochastic assignment to %s has non-distribution RHS %s", v.ID(), rhs).At(rhs)
	}
	if !registry.IsDistribution(call.Func) {
		return nil, compileerr.New(compileerr.UndefinedDistribution,
			"stochastic assignment to %s names %q, which is not a registered distribution", v.ID(), call.Func).At(rhs)
	}

	family := call.Func
	params := call.Args
	fn := func(e *env.Environment) (Result, error) {
		vals := make([]env.Value, len(params))
		for i, p := range params {
			r := eval.Eval(p, e, nil)
			switch r.Kind {
			case eval.Value:
				vals[i] = r.Scalar
			default:
				vals[i] = env.Undetermined
			}
		}
		return Result{Distribution: &Distribution{Family: family, Params: vals}}, nil
	}
	return &Node{Var: v, Kind: a.Kind, Link: a.Link, Args: args, Deps: deps, Fn: fn}, nil
}

func literalValue(e ast.Expr) env.Value {
	switch n := e.(type) {
	case ast.IntLit:
		return env.Int(n.Value)
	case ast.FloatLit:
		return env.Float(n.Value)
	default:
		return env.Undetermined
	}
}

func allConstantIndices(r ast.Ref) bool {
	for _, idx := range r.Indices {
		if _, ok := idx.(ast.IntLit); !ok {
			return false
		}
	}
	return len(r.Indices) > 0
}

func constantIndices(r ast.Ref) []int {
	out := make([]int, len(r.Indices))
	for i, idx := range r.Indices {
		out[i] = idx.(ast.IntLit).Value
	}
	return out
}

// depsAndArgs implements the dependency-tracking variant of the partial
// evaluator described in spec §4.F: deps(V) is the set of specific
// (scalar/element) variables still undetermined and actually read when
// evaluating rhs; args(V) is the coarser set of whole arrays/scalars
// needed as inputs. A determined scalar contributes neither; an array
// reference always adds its array to args, and adds deps only for its
// still-undetermined elements.
func depsAndArgs(rhs ast.Expr, e *env.Environment) (deps, args []env.Var) {
	seenDep := map[string]bool{}
	seenArg := map[string]bool{}
	var walk func(expr ast.Expr)
	walk = func(expr ast.Expr) {
		switch n := expr.(type) {
		case ast.Sym:
			if val, ok := e.Scalars.Load(n.Name); ok && val.Determined() {
				return
			}
			addVar(env.Scalar(n.Name), &deps, seenDep)
			addVar(env.Scalar(n.Name), &args, seenArg)
		case ast.Ref:
			addArgArray(n.Name, &args, seenArg)
			if allConstantIndices(n) {
				v := env.Element(n.Name, constantIndices(n)...)
				if val, ok := e.Get(v); !ok || !val.Determined() {
					addVar(v, &deps, seenDep)
				}
				return
			}
			for _, idx := range n.Indices {
				walk(idx)
			}
			addRangeDeps(n, e, &deps, seenDep)
		case ast.Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(rhs)
	return deps, args
}

func addVar(v env.Var, list *[]env.Var, seen map[string]bool) {
	if seen[v.ID()] {
		return
	}
	seen[v.ID()] = true
	*list = append(*list, v)
}

func addArgArray(name string, list *[]env.Var, seen map[string]bool) {
	v := env.Scalar(name) // args are coarse; the array-as-a-whole is identified by its bare name
	if seen[v.ID()] {
		return
	}
	seen[v.ID()] = true
	*list = append(*list, v)
}

// addRangeDeps adds one dependency per still-undetermined element within a
// ranged (non-constant) reference, e.g. `x[1:n]` where n is already known
// but some cell of x[1:n] is not.
func addRangeDeps(ref ast.Ref, e *env.Environment, deps *[]env.Var, seen map[string]bool) {
	arr, ok := e.Arrays.Load(ref.Name)
	if !ok {
		return
	}
	axes := make([][2]int, len(ref.Indices))
	for i, idx := range ref.Indices {
		ir := eval.ResolveIndex(idx, e, nil)
		switch ir.Kind {
		case eval.IndexInt:
			axes[i] = [2]int{ir.Int, ir.Int}
		case eval.IndexRange:
			axes[i] = [2]int{ir.Lo, ir.Hi}
		default:
			return
		}
	}
	var walk func(axis int, cur []int)
	walk = func(axis int, cur []int) {
		if axis == len(axes) {
			v, err := arr.Get(cur)
			if err == nil && !v.Determined() {
				addVar(env.Element(ref.Name, cur...), deps, seen)
			}
			return
		}
		for i := axes[axis][0]; i <= axes[axis][1]; i++ {
			walk(axis+1, append(append([]int{}, cur...), i))
		}
	}
	walk(0, nil)
}
