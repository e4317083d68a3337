// Package env implements the evaluation environment (spec §3): the mapping
// from identifier to scalar or array cell that every compiler pass reads
// from and that the variable collector (§4.C, which allocates cells and
// folds resolvable logical values early) and the data-transformation pass
// (§4.E) mutate.
package env

import (
	"fmt"
	"strconv"
	"strings"
)

// Var is a variable identity: (name, indices). Indices is empty for a
// scalar, or one integer per axis for an array element. Array slices are
// never represented as a Var; they scalarize (spec §3, §4.G) into the
// cartesian product of element Vars before becoming graph vertices.
//
// Var holds a slice, so it is not comparable and cannot be a map key
// itself; maps are keyed by its ID string instead.
type Var struct {
	Name    string
	Indices []int // nil/empty => scalar
}

// Scalar constructs the scalar Var for name.
func Scalar(name string) Var { return Var{Name: name} }

// Element constructs the array-element Var name[indices...].
func Element(name string, indices ...int) Var {
	idx := make([]int, len(indices))
	copy(idx, indices)
	return Var{Name: name, Indices: idx}
}

// IsScalar reports whether v identifies a bare scalar rather than an array
// element.
func (v Var) IsScalar() bool { return len(v.Indices) == 0 }

// ID returns a canonical string key for v, suitable for map keys and for the
// stable, deterministic ordering required by spec §4.G ("the sort is stable
// with respect to statement discovery order").
func (v Var) ID() string {
	if v.IsScalar() {
		return v.Name
	}
	parts := make([]string, len(v.Indices))
	for i, idx := range v.Indices {
		parts[i] = strconv.Itoa(idx)
	}
	return v.Name + "[" + strings.Join(parts, ",") + "]"
}

func (v Var) String() string { return v.ID() }

// GoString supports %#v formatting in test failure output.
func (v Var) GoString() string { return fmt.Sprintf("Var(%s)", v.ID()) }
