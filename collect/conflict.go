package collect

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/nilaway-labs/bugscompile/compileerr"
	"github.com/nilaway-labs/bugscompile/env"
)

// ConflictState is the running set of per-element write masks maintained by
// the repeated-assignment checker of spec §4.D across the two checkpoints
// (right after collection, and again after the data-transformation pass
// reaches fixpoint).
type ConflictState struct {
	logicalMask    map[string]*bitset.BitSet
	stochasticMask map[string]*bitset.BitSet

	logicalScalars    map[string]bool
	stochasticScalars map[string]bool

	// overlapVars holds every element/scalar Var touched by both a logical
	// and a stochastic write, deferred for the post-transform recheck
	// (spec §4.D: "permitted only if... fully data-resolved on the logical
	// side").
	overlapVars []env.Var
}

func newConflictState() *ConflictState {
	return &ConflictState{
		logicalMask:       map[string]*bitset.BitSet{},
		stochasticMask:    map[string]*bitset.BitSet{},
		logicalScalars:    map[string]bool{},
		stochasticScalars: map[string]bool{},
	}
}

// CheckConflicts runs the initial pass of spec §4.D over every collected
// assignment, immediately after Collect (and therefore after non-data
// array shapes are frozen in e). It returns the accumulated masks so the
// driver can re-check the deferred logical/stochastic overlaps after the
// data-transformation pass (§4.E) converges, via FinalCheck.
func CheckConflicts(res *Result, e *env.Environment) (*ConflictState, error) {
	st := newConflictState()
	for _, a := range res.Assignments {
		if len(a.Axes) == 0 {
			if err := st.markScalar(a); err != nil {
				return nil, err
			}
			continue
		}
		if err := st.markArray(a, e); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (st *ConflictState) markScalar(a Assignment) error {
	v := env.Scalar(a.Name)
	if a.Kind == Logical {
		if st.logicalScalars[a.Name] {
			return compileerr.New(compileerr.RepeatedAssignment, "scalar %q assigned logically more than once", a.Name)
		}
		st.logicalScalars[a.Name] = true
	} else {
		if st.stochasticScalars[a.Name] {
			return compileerr.New(compileerr.RepeatedAssignment, "scalar %q assigned stochastically more than once", a.Name)
		}
		st.stochasticScalars[a.Name] = true
	}
	if st.logicalScalars[a.Name] && st.stochasticScalars[a.Name] {
		st.overlapVars = append(st.overlapVars, v)
	}
	return nil
}

func (st *ConflictState) markArray(a Assignment, e *env.Environment) error {
	arr, ok := e.Arrays.Load(a.Name)
	if !ok {
		return compileerr.New(compileerr.ShapeMismatch, "array %q has no frozen shape", a.Name)
	}
	lm := st.maskFor(st.logicalMask, a.Name, arr.Shape)
	sm := st.maskFor(st.stochasticMask, a.Name, arr.Shape)

	own, other := lm, sm
	if a.Kind == Stochastic {
		own, other = sm, lm
	}

	for _, v := range a.Vars() {
		off := flatOffset(arr.Shape, v.Indices)
		if own.Test(off) {
			return compileerr.New(compileerr.RepeatedAssignment,
				"%s cell %s assigned more than once", kindName(a.Kind), v.ID())
		}
		own.Set(off)
		if other.Test(off) {
			st.overlapVars = append(st.overlapVars, v)
		}
	}
	return nil
}

func (st *ConflictState) maskFor(m map[string]*bitset.BitSet, name string, shape []int) *bitset.BitSet {
	b, ok := m[name]
	if !ok {
		n := 1
		for _, s := range shape {
			n *= s
		}
		b = bitset.New(uint(n))
		m[name] = b
	}
	return b
}

func kindName(k Kind) string {
	if k == Logical {
		return "logical"
	}
	return "stochastic"
}

// flatOffset computes the row-major flat bit offset of 1-based indices
// within an array of the given shape, mirroring env.Array's internal
// layout so FinalCheck's masks line up with the environment's own cells.
func flatOffset(shape []int, indices1Based []int) uint {
	off := 0
	for axis, idx := range indices1Based {
		off = off*shape[axis] + (idx - 1)
	}
	return uint(off)
}

// FinalCheck re-validates every deferred logical/stochastic overlap after
// the data-transformation pass (§4.E) has run to fixpoint: an overlap is
// only legal if the cell is now fully determined (spec §4.D: "fully
// data-resolved on the logical side").
func (st *ConflictState) FinalCheck(e *env.Environment) error {
	for _, v := range st.overlapVars {
		val, ok := e.Get(v)
		if !ok || !val.Determined() {
			return compileerr.New(compileerr.LogicalStochasticConflict,
				"cell %s is written both logically and stochastically and never fully resolves", v.ID())
		}
	}
	return nil
}
