// Package collect implements the variable collector and repeated-assignment
// checker of spec §4.C/§4.D: it walks the normalized program (unrolling
// every resolvable for-loop and eliminating resolvable if-statements),
// enumerates the model variables each assignment touches, infers non-data
// array shapes, and records the simplified assignments for the later
// data-transformation, node-function, and graph passes.
package collect

import (
	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/compileerr"
	"github.com/nilaway-labs/bugscompile/config"
	"github.com/nilaway-labs/bugscompile/env"
	"github.com/nilaway-labs/bugscompile/eval"
)

// Kind tags an assignment as logical (`=`) or stochastic (`~`).
type Kind int

const (
	Logical Kind = iota
	Stochastic
)

// AxisRange is a resolved, 1-based, inclusive index range on one array axis.
// Lo == Hi represents a single element.
type AxisRange struct{ Lo, Hi int }

// Assignment is one simplified, fully index-resolved assignment statement,
// produced after loop unrolling and LHS simplification (spec §4.C rule 1).
type Assignment struct {
	Name string
	Axes []AxisRange // nil for a scalar LHS
	RHS  ast.Expr
	Kind Kind
	Link string
}

// IsSlice reports whether the assignment's LHS spans more than one element
// along any axis (a broadcast or multivariate assignment, as opposed to a
// single scalar or array-element write).
func (a Assignment) IsSlice() bool {
	for _, ax := range a.Axes {
		if ax.Hi > ax.Lo {
			return true
		}
	}
	return false
}

// Vars enumerates every concrete element Var the assignment's LHS touches,
// in row-major axis order.
func (a Assignment) Vars() []env.Var {
	if len(a.Axes) == 0 {
		return []env.Var{env.Scalar(a.Name)}
	}
	var out []env.Var
	idx := make([]int, len(a.Axes))
	for i, ax := range a.Axes {
		idx[i] = ax.Lo
	}
	var walk func(axis int)
	walk = func(axis int) {
		if axis == len(a.Axes) {
			cur := make([]int, len(idx))
			copy(cur, idx)
			out = append(out, env.Element(a.Name, cur...))
			return
		}
		for v := a.Axes[axis].Lo; v <= a.Axes[axis].Hi; v++ {
			idx[axis] = v
			walk(axis + 1)
		}
	}
	walk(0)
	return out
}

// Result is the output of Collect: every assignment discovered, in
// discovery order, plus the per-variable classification needed by later
// passes.
type Result struct {
	Assignments []Assignment
	// VarKind maps an env.Var.ID() to its classification. A variable that
	// only ever appears as a logical LHS is Logical; one that only appears
	// as a stochastic LHS is Stochastic; one appearing as both is recorded
	// as Stochastic here (the transient dual-tag case of spec §3's
	// Classification note is resolved by the transform pass, which may
	// demote it to pseudo-data).
	VarKind map[string]Kind
}

// shapeTracker accumulates, per array name, the running maximum index
// touched on each axis (spec §4.C rule 3: "each axis' size is max(current,
// last-index-touched)").
type shapeTracker struct {
	max map[string][]int
}

func newShapeTracker() *shapeTracker { return &shapeTracker{max: map[string][]int{}} }

func (s *shapeTracker) touch(name string, axes []AxisRange) {
	if len(axes) == 0 {
		return
	}
	cur, ok := s.max[name]
	if !ok {
		cur = make([]int, len(axes))
	}
	for i, ax := range axes {
		if ax.Hi > cur[i] {
			cur[i] = ax.Hi
		}
	}
	s.max[name] = cur
}

// Collect runs the variable collector of spec §4.C over p against e,
// mutating e with the opportunistic constant writes needed to resolve
// forward-referenced loop bounds (see the doc comment on opportunisticFold
// below), freezing non-data array shapes, adding an undetermined cell for
// every non-data scalar it collected, and returning the flattened,
// index-resolved assignment list.
func Collect(p *ast.Program, e *env.Environment) (*Result, error) {
	if err := prescan(p, e); err != nil {
		return nil, err
	}

	shapes := newShapeTracker()
	var res *Result
	prevUnresolved := -1

	for round := 1; ; round++ {
		if round > config.FixpointRoundLimit {
			return nil, compileerr.New(compileerr.UnresolvableLoopBound,
				"variable collection did not converge after %d rounds", config.FixpointRoundLimit)
		}

		res = &Result{VarKind: map[string]Kind{}}
		w := &walker{env: e, shapes: shapes, res: res}
		if err := w.walkStmts(p.Body, nil); err != nil {
			return nil, err
		}

		if len(w.unresolved) == 0 {
			break
		}
		if len(w.unresolved) == prevUnresolved {
			return nil, compileerr.New(compileerr.UnresolvableLoopBound,
				"%d statement(s) have loop bounds or conditions that never resolve", len(w.unresolved)).At(w.unresolved[0])
		}
		prevUnresolved = len(w.unresolved)
	}

	for name, maxIdx := range shapes.max {
		if e.IsDataArray(name) {
			continue
		}
		// Each axis ends at max(current size, last index touched); an array
		// already allocated (or provisionally grown by opportunisticFold)
		// keeps its cells.
		e.GrowArray(name, maxIdx)
	}
	for _, a := range res.Assignments {
		if len(a.Axes) == 0 {
			e.EnsureScalar(a.Name)
		}
	}

	return res, nil
}

// walker performs one full top-down pass over the program, expanding every
// for-loop and if-statement whose condition/bounds resolve this round, and
// recording every assignment it reaches in res. Statements whose bounds or
// condition do not resolve this round are appended to unresolved and
// skipped; Collect retries them on the next round, since an earlier
// sibling statement processed later in this same pass (see
// opportunisticFold) may have just supplied the missing value.
type walker struct {
	env        *env.Environment
	shapes     *shapeTracker
	res        *Result
	unresolved []ast.Stmt
}

func (w *walker) walkStmts(stmts []ast.Stmt, scope eval.Scope) error {
	for _, s := range stmts {
		if err := w.walkStmt(s, scope); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) walkStmt(s ast.Stmt, scope eval.Scope) error {
	switch n := s.(type) {
	case ast.LogicalAssign:
		return w.walkAssign(n.LHS, n.RHS, Logical, n.Link, scope)
	case ast.StochasticAssign:
		return w.walkAssign(n.LHS, n.RHS, Stochastic, n.Link, scope)
	case ast.For:
		return w.walkFor(n, scope)
	case ast.If:
		return w.walkIf(n, scope)
	default:
		return nil
	}
}

func (w *walker) walkFor(n ast.For, scope eval.Scope) error {
	loR := eval.Eval(n.Lo, w.env, scope)
	hiR := eval.Eval(n.Hi, w.env, scope)
	lo, loOK := loR.AsScalarInt()
	hi, hiOK := hiR.AsScalarInt()
	if !loOK || !hiOK {
		w.unresolved = append(w.unresolved, n)
		return nil
	}
	// Property 8: lo > hi emits zero iterations.
	for i := lo; i <= hi; i++ {
		child := extendScope(scope, n.Var, i)
		if err := w.walkStmts(n.Body, child); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) walkIf(n ast.If, scope eval.Scope) error {
	r := eval.Eval(n.Cond, w.env, scope)
	iv, ok := r.AsScalarInt()
	if !ok {
		w.unresolved = append(w.unresolved, n)
		return nil
	}
	if iv != 0 {
		return w.walkStmts(n.Then, scope)
	}
	return w.walkStmts(n.Else, scope)
}

func extendScope(scope eval.Scope, v string, val int) eval.Scope {
	child := make(eval.Scope, len(scope)+1)
	for k, vv := range scope {
		child[k] = vv
	}
	child[v] = val
	return child
}

func (w *walker) walkAssign(lhs, rhs ast.Expr, kind Kind, link string, scope eval.Scope) error {
	name, axes, ok, err := simplifyLHS(lhs, w.env, scope)
	if err != nil {
		return err
	}
	if !ok {
		w.unresolved = append(w.unresolved, stmtFor(lhs, rhs, kind, link))
		return nil
	}

	if err := validateAgainstData(name, axes, kind, w.env); err != nil {
		return err
	}

	// Bake the enclosing loop scope into the RHS now, while it is still
	// available: later passes (transform, nodefn) only ever see the
	// environment, never the walker's transient per-iteration scope, so a
	// residual reference to a loop variable like `i` in `m[i,j]=i+j` must
	// already be the concrete literal this iteration bound it to.
	a := Assignment{Name: name, Axes: axes, RHS: substituteScope(rhs, scope), Kind: kind, Link: link}
	w.res.Assignments = append(w.res.Assignments, a)
	for _, v := range a.Vars() {
		if _, seen := w.res.VarKind[v.ID()]; !seen || kind == Stochastic {
			w.res.VarKind[v.ID()] = kind
		}
	}
	w.shapes.touch(name, axes)

	opportunisticFold(a, w.env)
	return nil
}

// substituteScope replaces every Sym bound in scope with its concrete
// integer literal, recursing through Ref indices and Call arguments.
// Anything not bound in scope (data/model identifiers, link/distribution
// calls) passes through unchanged.
func substituteScope(e ast.Expr, scope eval.Scope) ast.Expr {
	if len(scope) == 0 {
		return e
	}
	switch n := e.(type) {
	case ast.Sym:
		if v, ok := scope[n.Name]; ok {
			return ast.IntLit{Value: v}
		}
		return n
	case ast.Ref:
		idx := make([]ast.Expr, len(n.Indices))
		for i, ix := range n.Indices {
			idx[i] = substituteScope(ix, scope)
		}
		return ast.Ref{Name: n.Name, Indices: idx}
	case ast.Call:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = substituteScope(a, scope)
		}
		return ast.Call{Func: n.Func, Args: args}
	default:
		return e
	}
}

// stmtFor reconstructs a Stmt for reporting/retry purposes when LHS
// simplification defers; the original Stmt type isn't retained by
// walkAssign's caller, so a fresh equivalent is built from the parts it
// already has.
func stmtFor(lhs, rhs ast.Expr, kind Kind, link string) ast.Stmt {
	if kind == Stochastic {
		return ast.StochasticAssign{LHS: lhs, RHS: rhs, Link: link}
	}
	return ast.LogicalAssign{LHS: lhs, RHS: rhs, Link: link}
}

// simplifyLHS implements spec §4.C rule 1: an LHS is a bare identifier
// (scalar) or ref(name, indices...) whose indices each partial-evaluate to
// an integer or a resolved range. ok is false (not an error) when an index
// is merely not-yet-resolvable this round; err is non-nil only for the
// fatal, never-resolvable NonIntegerIndex case.
func simplifyLHS(lhs ast.Expr, e *env.Environment, scope eval.Scope) (name string, axes []AxisRange, ok bool, err error) {
	switch n := lhs.(type) {
	case ast.Sym:
		return n.Name, nil, true, nil
	case ast.Ref:
		axes = make([]AxisRange, len(n.Indices))
		for i, idxExpr := range n.Indices {
			ir := eval.ResolveIndex(idxExpr, e, scope)
			switch ir.Kind {
			case eval.IndexInt:
				axes[i] = AxisRange{Lo: ir.Int, Hi: ir.Int}
			case eval.IndexRange:
				axes[i] = AxisRange{Lo: ir.Lo, Hi: ir.Hi}
			case eval.IndexNonInteger:
				return "", nil, false, compileerr.New(compileerr.NonIntegerIndex,
					"index %d of %q is not integral", i, n.Name).At(n)
			default:
				return "", nil, false, nil
			}
		}
		return n.Name, axes, true, nil
	default:
		return "", nil, false, compileerr.New(compileerr.UnsupportedExpression,
			"left-hand side must be an identifier or array reference").At(lhs)
	}
}

// validateAgainstData implements spec §4.C rule 2: a logical write may never
// target a data-provided cell, and a stochastic write may never partially
// overlap observed and missing cells of the same array.
func validateAgainstData(name string, axes []AxisRange, kind Kind, e *env.Environment) error {
	if len(axes) == 0 {
		if kind == Logical && e.IsDataScalar(name) {
			return compileerr.New(compileerr.OverwriteData, "logical assignment writes data scalar %q", name)
		}
		return nil
	}
	if !e.IsDataArray(name) {
		return nil
	}
	a := Assignment{Name: name, Axes: axes}
	vars := a.Vars()
	if kind == Logical {
		for _, v := range vars {
			if e.IsDataArrayCell(name, v.Indices) {
				return compileerr.New(compileerr.OverwriteData, "logical assignment writes data cell %s", v.ID())
			}
		}
		return nil
	}
	// Stochastic: every cell in the footprint must be uniformly observed or
	// uniformly missing; a mix is a partial observation.
	observed, missing := 0, 0
	for _, v := range vars {
		if e.IsDataArrayCell(name, v.Indices) {
			observed++
		} else {
			missing++
		}
	}
	if observed > 0 && missing > 0 {
		return compileerr.New(compileerr.PartialObservation,
			"multivariate stochastic assignment to %q overlaps observed and missing cells", name)
	}
	return nil
}

// opportunisticFold writes a just-collected logical assignment's value into
// the environment immediately, ahead of the full data-transformation pass
// (§4.E), when its RHS (already scope-substituted by walkAssign) fully
// resolves against the current environment.
//
// This is necessary, not merely an optimization: spec §8 scenario S1 has a
// second loop's bound reference an array cell (`n[i]`) written by an
// earlier loop's logical assignment within the very same program, and
// nothing else in the collector's pipeline would make that value visible
// before the dependent loop's bound is evaluated. Because §4.E's pass is
// monotone and order-independent (spec §4.E, §8 property 4), anything
// folded here is exactly what §4.E will (re)confirm once it runs, so this
// preview can never introduce a value §4.E would not itself produce.
func opportunisticFold(a Assignment, e *env.Environment) {
	if a.Kind != Logical || a.IsSlice() {
		return
	}
	r := eval.Eval(a.RHS, e, nil)
	if r.Kind != eval.Value {
		return
	}
	v := a.Vars()[0]
	if v.IsScalar() {
		if cur, ok := e.Scalars.Load(v.Name); ok && cur.Determined() {
			return
		}
		e.Scalars.Store(v.Name, r.Scalar)
		return
	}
	e.GrowArray(v.Name, v.Indices)
	_ = e.Set(v, r.Scalar)
}
