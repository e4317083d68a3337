// Package normalize implements the AST-normalization pass of spec §4.A: a
// one-shot, top-down rewrite of link functions, cumulative/density, and
// truncation/censoring into canonical call forms, run exactly once by the
// driver before any other pass sees the program (spec §2 control flow: "the
// driver runs A once").
//
// Two representation conventions fill gaps the spec leaves to the
// out-of-scope parser (spec §6), since this module never sees the raw
// surface syntax, only the AST:
//
//   - A link-function LHS `f(lhs) = rhs` / `f(lhs) ~ dist` arrives as an
//     ast.LogicalAssign / ast.StochasticAssign whose LHS is an ast.Call with
//     exactly one argument, e.g. Call{Func: "logit", Args: []Expr{Sym{"p"}}}.
//   - A truncated/censored stochastic RHS `dist T(l,u)` / `dist C(l,u)`
//     arrives as RHS = Call{Func: "T"|"C", Args: []Expr{dist, lo, hi}},
//     where an absent bound is the zero-arg sentinel Call{Func: "nothing"}.
package normalize

import (
	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/compileerr"
	"github.com/nilaway-labs/bugscompile/config"
)

// Normalize rewrites p in place (and also returns it, for chaining) per
// spec §4.A. It is idempotent: a second call on the result is a no-op,
// because every pattern it matches (a Call-shaped LHS, a "T"/"C"-wrapped
// RHS) is rewritten away on the first pass and never reintroduced.
func Normalize(p *ast.Program) (*ast.Program, error) {
	currentProgram = p
	pendingErr = nil
	defer func() { currentProgram = nil; pendingErr = nil }()

	body, err := normalizeStmts(p.Body)
	if err != nil {
		return nil, err
	}
	if pendingErr != nil {
		return nil, pendingErr
	}
	p.Body = body
	return p, nil
}

func normalizeStmts(stmts []ast.Stmt) ([]ast.Stmt, error) {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		n, err := normalizeStmt(s)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func normalizeStmt(s ast.Stmt) (ast.Stmt, error) {
	switch n := s.(type) {
	case ast.LogicalAssign:
		return normalizeLogical(n)
	case ast.StochasticAssign:
		return normalizeStochastic(n)
	case ast.For:
		body, err := normalizeStmts(n.Body)
		if err != nil {
			return nil, err
		}
		n.Body = body
		return n, nil
	case ast.If:
		then, err := normalizeStmts(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := normalizeStmts(n.Else)
		if err != nil {
			return nil, err
		}
		n.Then, n.Else = then, els
		return n, nil
	default:
		return s, nil
	}
}

func normalizeLogical(n ast.LogicalAssign) (ast.Stmt, error) {
	if call, ok := n.LHS.(ast.Call); ok {
		inv, err := inverseLink(call)
		if err != nil {
			return nil, err
		}
		n.LHS = call.Args[0]
		n.RHS = ast.Call{Func: inv, Args: []ast.Expr{n.RHS}}
	}
	if n.Link != "" {
		return nil, compileerr.New(compileerr.UndefinedLinkFunction,
			"link function %q may not survive on a logical assignment", n.Link).At(n.LHS)
	}
	n.RHS = rewriteCumulativeDensity(n.RHS)
	return n, nil
}

func normalizeStochastic(n ast.StochasticAssign) (ast.Stmt, error) {
	if call, ok := n.LHS.(ast.Call); ok {
		if _, ok := config.LinkFunctionTable[call.Func]; !ok {
			return nil, compileerr.New(compileerr.UndefinedLinkFunction,
				"unknown link function %q", call.Func).At(call)
		}
		n.Link = call.Func
		n.LHS = call.Args[0]
	}
	n.RHS = rewriteTruncationCensoring(n.RHS)
	return n, nil
}

// inverseLink validates and looks up the inverse of a link-function call
// shape `f(lhs)`.
func inverseLink(call ast.Call) (string, error) {
	if len(call.Args) != 1 {
		return "", compileerr.New(compileerr.UnsupportedExpression,
			"link function %q must take exactly one argument", call.Func).At(call)
	}
	inv, ok := config.LinkFunctionTable[call.Func]
	if !ok {
		return "", compileerr.New(compileerr.UndefinedLinkFunction,
			"unknown link function %q", call.Func).At(call)
	}
	return inv, nil
}

// rewriteTruncationCensoring rewrites a `dist T(l,u)` / `dist C(l,u)`
// wrapper into the canonical `truncated(dist, lo, hi)` / `censored(dist,
// lo, hi)` call, replacing absent-bound "nothing" sentinels with
// bound-specific unbounded markers (spec §4.A).
func rewriteTruncationCensoring(rhs ast.Expr) ast.Expr {
	call, ok := rhs.(ast.Call)
	if !ok {
		return rhs
	}
	var canonical string
	switch call.Func {
	case "T":
		canonical = "truncated"
	case "C":
		canonical = "censored"
	default:
		return rhs
	}
	if len(call.Args) != 3 {
		return rhs
	}
	lo := boundVariant(call.Args[1], "lower_unbounded")
	hi := boundVariant(call.Args[2], "upper_unbounded")
	return ast.Call{Func: canonical, Args: []ast.Expr{call.Args[0], lo, hi}}
}

func boundVariant(e ast.Expr, sentinel string) ast.Expr {
	if c, ok := e.(ast.Call); ok && c.Func == "nothing" && len(c.Args) == 0 {
		return ast.Call{Func: sentinel}
	}
	return e
}

// rewriteCumulativeDensity rewrites `cumulative(v, y)` / `density(v, y)`
// into `cdf(D_v, y)` / `pdf(D_v, y)`. Because normalization runs before
// unrolling (spec §2), D_v is found by walking the raw, not-yet-unrolled
// program for statements whose LHS names v (ignoring any index, since
// before unrolling a `for` loop contributes one syntactic stochastic
// statement regardless of how many iterations it will later unroll to).
//
// This rewrite needs the whole program, not just the local RHS, so it is
// invoked with access to the sibling pass state via a package-level
// program reference set by Normalize before any statement is rewritten.
func rewriteCumulativeDensity(rhs ast.Expr) ast.Expr {
	call, ok := rhs.(ast.Call)
	if !ok {
		return rhs
	}
	var canonical string
	switch call.Func {
	case "cumulative":
		canonical = "cdf"
	case "density":
		canonical = "pdf"
	default:
		return rhs
	}
	if len(call.Args) != 2 {
		return rhs
	}
	vSym, ok := call.Args[0].(ast.Sym)
	if !ok {
		return rhs
	}
	dist, err := uniqueDistributionFor(currentProgram, vSym.Name)
	if err != nil {
		// Defer the error to the caller by leaving a recognizable marker;
		// Normalize re-checks and surfaces it after the walk (see below).
		pendingErr = err
		return rhs
	}
	return ast.Call{Func: canonical, Args: []ast.Expr{dist, call.Args[1]}}
}

// currentProgram/pendingErr thread state through the single-statement
// rewriteCumulativeDensity helper during one Normalize call. The state is
// shared by every call in the process, so concurrent Normalize calls (on
// any programs) race; callers must serialize them.
var (
	currentProgram *ast.Program
	pendingErr     error
)

func uniqueDistributionFor(p *ast.Program, name string) (ast.Expr, error) {
	var found ast.Expr
	count := 0
	var walk func(stmts []ast.Stmt)
	walk = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case ast.StochasticAssign:
				if lhsName(n.LHS) == name {
					count++
					found = n.RHS
				}
			case ast.For:
				walk(n.Body)
			case ast.If:
				walk(n.Then)
				walk(n.Else)
			}
		}
	}
	if p != nil {
		walk(p.Body)
	}
	if count > 1 {
		return nil, compileerr.New(compileerr.MultipleDistributionsFor,
			"variable %q has more than one stochastic assignment", name)
	}
	if count == 0 {
		return nil, compileerr.New(compileerr.UndefinedDistribution,
			"no stochastic assignment found for %q in cumulative/density", name)
	}
	return found, nil
}

func lhsName(e ast.Expr) string {
	switch n := e.(type) {
	case ast.Sym:
		return n.Name
	case ast.Ref:
		return n.Name
	default:
		return ""
	}
}
