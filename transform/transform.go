// Package transform implements the data-transformation fixpoint of spec
// §4.E: repeatedly walks every logical assignment collected by package
// collect and, wherever the partial evaluator (package eval) can now fully
// resolve the right-hand side against the environment, writes the value
// into the corresponding cell(s) and marks the pass as having changed.
// Stochastic assignments are never written by this pass.
package transform

import (
	"github.com/nilaway-labs/bugscompile/collect"
	"github.com/nilaway-labs/bugscompile/compileerr"
	"github.com/nilaway-labs/bugscompile/config"
	"github.com/nilaway-labs/bugscompile/env"
	"github.com/nilaway-labs/bugscompile/eval"
)

// Run iterates res.Assignments to fixpoint against e, per spec §4.E. The
// iteration order within a single walk is the collector's discovery order,
// but because the pass repeats until a full walk makes no change, the
// final environment is independent of that order (spec §8 property 4).
func Run(res *collect.Result, e *env.Environment) error {
	for round := 1; ; round++ {
		if round > config.FixpointRoundLimit {
			return compileerr.New(compileerr.UnresolvableIndex,
				"data-transformation pass did not converge after %d rounds", config.FixpointRoundLimit)
		}
		changed := false
		for _, a := range res.Assignments {
			if a.Kind != collect.Logical {
				continue
			}
			c, err := applyOne(a, e)
			if err != nil {
				return err
			}
			changed = changed || c
		}
		if !changed {
			return nil
		}
	}
}

// applyOne writes a's resolved value into e if its LHS cell(s) are still
// undetermined and its RHS now fully resolves, reporting whether it made a
// change.
func applyOne(a collect.Assignment, e *env.Environment) (bool, error) {
	if a.IsSlice() {
		return applySlice(a, e)
	}
	return applyScalarOrElement(a, e)
}

func applyScalarOrElement(a collect.Assignment, e *env.Environment) (bool, error) {
	v := a.Vars()[0]
	cur, ok := e.Get(v)
	if ok && cur.Determined() {
		return false, nil
	}
	r := eval.Eval(a.RHS, e, nil)
	if r.Kind != eval.Value {
		return false, nil
	}
	if err := e.Set(v, r.Scalar); err != nil {
		return false, compileerr.New(compileerr.ShapeMismatch, "%v", err).At(a.RHS)
	}
	return true, nil
}

// applySlice implements the broadcast-assignment case of spec §4.E: the
// LHS is a range and the RHS is an array of matching shape, each selected
// cell receiving the correspondingly-positioned RHS element.
func applySlice(a collect.Assignment, e *env.Environment) (bool, error) {
	vars := a.Vars()
	allSet := true
	for _, v := range vars {
		cur, ok := e.Get(v)
		if !ok || !cur.Determined() {
			allSet = false
			break
		}
	}
	if allSet {
		return false, nil
	}

	r := eval.Eval(a.RHS, e, nil)
	switch r.Kind {
	case eval.Array:
		if len(r.Elems) != len(vars) {
			return false, compileerr.New(compileerr.ShapeMismatch,
				"broadcast assignment to %q: %d cells vs %d RHS elements", a.Name, len(vars), len(r.Elems)).At(a.RHS)
		}
		changed := false
		for i, v := range vars {
			cur, ok := e.Get(v)
			if ok && cur.Determined() {
				continue
			}
			if !r.Elems[i].Determined() {
				continue
			}
			if err := e.Set(v, r.Elems[i]); err != nil {
				return false, compileerr.New(compileerr.ShapeMismatch, "%v", err).At(a.RHS)
			}
			changed = true
		}
		return changed, nil
	case eval.Value:
		// A scalar RHS broadcasts uniformly across every selected cell.
		changed := false
		for _, v := range vars {
			cur, ok := e.Get(v)
			if ok && cur.Determined() {
				continue
			}
			if err := e.Set(v, r.Scalar); err != nil {
				return false, compileerr.New(compileerr.ShapeMismatch, "%v", err).At(a.RHS)
			}
			changed = true
		}
		return changed, nil
	default:
		return false, nil
	}
}
