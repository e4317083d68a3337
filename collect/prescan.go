package collect

import (
	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/compileerr"
	"github.com/nilaway-labs/bugscompile/env"
)

// prescan implements spec §4.C's secondary pre-scan: every identifier used
// inside a for-loop's bounds or an LHS index expression must be either a
// loop variable in its enclosing scope or a data identifier — "this
// prevents dynamic-shape models". Taken completely literally this would
// also reject spec §8 scenario S1, where a second loop's bound (`1:n[i]`)
// refers to a non-data array written by an earlier loop's own logical
// assignment: that reference is not itself random, it just takes one more
// round of the collector's fixpoint to resolve (see opportunisticFold).
//
// So this pass rejects only what is genuinely a dynamic shape: an
// identifier referenced in a bound or LHS index that is the LHS of some
// stochastic assignment anywhere in the program. Such a name can never
// become an integer here (this compiler never samples), so flagging it
// before the fixpoint even starts gives a clearer diagnostic than letting
// the loop/if just never resolve. Anything else (loop variables, data, or
// a name that turns out to be a logical variable resolvable by a later
// round) is let through; a bound that still fails to resolve after the
// fixpoint is caught by Collect's stuck-fixpoint check regardless.
func prescan(p *ast.Program, e *env.Environment) error {
	stochastic := collectStochasticNames(p.Body)
	return prescanStmts(p.Body, nil, stochastic)
}

func collectStochasticNames(stmts []ast.Stmt) map[string]bool {
	out := map[string]bool{}
	var walk func([]ast.Stmt)
	walk = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case ast.StochasticAssign:
				out[lhsName(n.LHS)] = true
			case ast.For:
				walk(n.Body)
			case ast.If:
				walk(n.Then)
				walk(n.Else)
			}
		}
	}
	walk(stmts)
	return out
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

func prescanStmts(stmts []ast.Stmt, loopVars map[string]bool, stochastic map[string]bool) error {
	for _, s := range stmts {
		if err := prescanStmt(s, loopVars, stochastic); err != nil {
			return err
		}
	}
	return nil
}

func prescanStmt(s ast.Stmt, loopVars map[string]bool, stochastic map[string]bool) error {
	switch n := s.(type) {
	case ast.LogicalAssign:
		return prescanLHS(n.LHS, loopVars, stochastic)
	case ast.StochasticAssign:
		return prescanLHS(n.LHS, loopVars, stochastic)
	case ast.For:
		if err := checkBoundIdents(n.Lo, loopVars, stochastic); err != nil {
			return err
		}
		if err := checkBoundIdents(n.Hi, loopVars, stochastic); err != nil {
			return err
		}
		child := extendLoopVars(loopVars, n.Var)
		return prescanStmts(n.Body, child, stochastic)
	case ast.If:
		if err := prescanStmts(n.Then, loopVars, stochastic); err != nil {
			return err
		}
		return prescanStmts(n.Else, loopVars, stochastic)
	default:
		return nil
	}
}

func extendLoopVars(loopVars map[string]bool, v string) map[string]bool {
	child := make(map[string]bool, len(loopVars)+1)
	for k := range loopVars {
		child[k] = true
	}
	child[v] = true
	return child
}

func prescanLHS(lhs ast.Expr, loopVars map[string]bool, stochastic map[string]bool) error {
	ref, ok := lhs.(ast.Ref)
	if !ok {
		return nil
	}
	for _, idx := range ref.Indices {
		if err := checkBoundIdents(idx, loopVars, stochastic); err != nil {
			return err
		}
	}
	return nil
}

// checkBoundIdents walks e collecting every Sym/Ref name it references and
// rejects any that names a stochastic variable.
func checkBoundIdents(e ast.Expr, loopVars map[string]bool, stochastic map[string]bool) error {
	names := map[string]ast.Expr{}
	collectIdents(e, names)
	for name, frag := range names {
		if loopVars[name] {
			continue
		}
		if stochastic[name] {
			return compileerr.New(compileerr.UnresolvableLoopBound,
				"identifier %q used in a loop bound or LHS index is stochastic and can never resolve to an integer", name).At(frag)
		}
	}
	return nil
}

func collectIdents(e ast.Expr, out map[string]ast.Expr) {
	switch n := e.(type) {
	case ast.Sym:
		out[n.Name] = n
	case ast.Ref:
		out[n.Name] = n
		for _, idx := range n.Indices {
			collectIdents(idx, out)
		}
	case ast.Call:
		for _, a := range n.Args {
			collectIdents(a, out)
		}
	}
}
