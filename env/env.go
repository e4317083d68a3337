package env

import (
	"fmt"

	"github.com/nilaway-labs/bugscompile/internal/util/orderedmap"
)

// Environment is the evaluation environment of spec §3: a mapping from
// identifier to scalar or array cell, seeded from data and grown by the
// variable collector (§4.C), then mutated only by the data-transformation
// pass (§4.E).
//
// Scalars and Arrays are kept as OrderedMaps (adapted from the teacher's
// util/orderedmap) rather than bare Go maps so that passes which must walk
// "every identifier in the environment" (variable collection, model
// assembly) do so in a deterministic, insertion-order sequence instead of
// Go's randomized map iteration order — this is what makes the compiler's
// topological sort stable across runs (spec §4.G, §8 property 4).
type Environment struct {
	Scalars *orderedmap.OrderedMap[string, Value]
	Arrays  *orderedmap.OrderedMap[string, *Array]

	// dataScalars and dataArrayCells record which cells were seeded from the
	// caller-supplied data environment (as opposed to produced by a logical
	// assignment). This provenance is what the collector's OverwriteData
	// and PartialObservation checks (§4.C rule 2) consult.
	dataScalars    map[string]bool
	dataArrayCells map[string]*Array // name -> bitmap-shaped Array of bool-as-int markers
}

// New creates an empty environment.
func New() *Environment {
	return &Environment{
		Scalars:        orderedmap.New[string, Value](),
		Arrays:         orderedmap.New[string, *Array](),
		dataScalars:    map[string]bool{},
		dataArrayCells: map[string]*Array{},
	}
}

// SeedScalar installs a data-provided scalar value under name, marking it as
// data provenance.
func (e *Environment) SeedScalar(name string, v Value) {
	e.Scalars.Store(name, v)
	e.dataScalars[name] = true
}

// SeedArray installs a data-provided array under name with the given shape
// and initial cell values (row-major, in the same order NewArray allocates
// them). Any undetermined cells within a seeded array are treated as
// "partially observed" data, relevant to the PartialObservation check
// (§4.C rule 2b).
func (e *Environment) SeedArray(name string, shape []int, cells []Value) {
	a := NewArray(shape)
	copy(a.cells, cells)
	e.Arrays.Store(name, a)

	marker := NewArray(shape)
	for i, c := range cells {
		if c.Determined() {
			marker.cells[i] = Int(1)
		}
	}
	e.dataArrayCells[name] = marker
}

// IsDataScalar reports whether name was seeded as a data scalar.
func (e *Environment) IsDataScalar(name string) bool { return e.dataScalars[name] }

// IsDataArray reports whether name was seeded as a data array at all (even
// if partially observed).
func (e *Environment) IsDataArray(name string) bool {
	_, ok := e.dataArrayCells[name]
	return ok
}

// IsDataArrayCell reports whether the specific element was provided by data
// (as opposed to merely living in a data-backed array that has other
// undetermined, non-data cells).
func (e *Environment) IsDataArrayCell(name string, indices []int) bool {
	marker, ok := e.dataArrayCells[name]
	if !ok {
		return false
	}
	v, err := marker.Get(indices)
	if err != nil {
		return false
	}
	return v.Determined() && v.Int64() == 1
}

// EnsureArray returns the array registered under name, allocating it at the
// given shape (all cells undetermined) if it does not yet exist. Calling
// EnsureArray on an already-allocated array with a different shape is a
// programmer error (shapes are frozen at the end of §4.C) and panics.
func (e *Environment) EnsureArray(name string, shape []int) *Array {
	if a, ok := e.Arrays.Load(name); ok {
		if !sameShape(a.Shape, shape) {
			panic(fmt.Sprintf("env: shape of %q already frozen as %v, cannot re-allocate as %v", name, a.Shape, shape))
		}
		return a
	}
	a := NewArray(shape)
	e.Arrays.Store(name, a)
	return a
}

// GrowArray returns the array registered under name, allocating it at shape
// if absent, or growing it (preserving existing determined cells) if it
// already exists at a smaller shape on any axis. Unlike EnsureArray, this
// never panics on a shape mismatch — it is how the variable collector
// (package collect) provisionally grows a non-data array's backing store
// mid-pass, before its final shape is frozen.
func (e *Environment) GrowArray(name string, shape []int) *Array {
	a, ok := e.Arrays.Load(name)
	if !ok {
		a = NewArray(shape)
		e.Arrays.Store(name, a)
		return a
	}
	grown := a.Grow(shape)
	if grown != a {
		e.Arrays.Store(name, grown)
	}
	return grown
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EnsureScalar returns the scalar cell registered under name, seeding it as
// undetermined if absent.
func (e *Environment) EnsureScalar(name string) Value {
	if v, ok := e.Scalars.Load(name); ok {
		return v
	}
	e.Scalars.Store(name, Undetermined)
	return Undetermined
}

// Get looks up the value of v, resolving a scalar Var against Scalars or an
// element Var against the corresponding Array.
func (e *Environment) Get(v Var) (Value, bool) {
	if v.IsScalar() {
		val, ok := e.Scalars.Load(v.Name)
		return val, ok
	}
	a, ok := e.Arrays.Load(v.Name)
	if !ok {
		return Value{}, false
	}
	val, err := a.Get(v.Indices)
	if err != nil {
		return Value{}, false
	}
	return val, true
}

// Set stores val at v, which must already have a backing scalar cell or
// array allocated.
func (e *Environment) Set(v Var, val Value) error {
	if v.IsScalar() {
		e.Scalars.Store(v.Name, val)
		return nil
	}
	a, ok := e.Arrays.Load(v.Name)
	if !ok {
		return fmt.Errorf("env: array %q not allocated", v.Name)
	}
	return a.Set(v.Indices, val)
}

// Clone returns a deep copy of the environment, for per-sample use by
// downstream evaluators (spec §5: "downstream evaluators may clone the
// environment per sample").
func (e *Environment) Clone() *Environment {
	out := New()
	e.Scalars.OrderedRange(func(k string, v Value) bool {
		out.Scalars.Store(k, v)
		return true
	})
	e.Arrays.OrderedRange(func(k string, v *Array) bool {
		out.Arrays.Store(k, v.Clone())
		return true
	})
	for k, v := range e.dataScalars {
		out.dataScalars[k] = v
	}
	for k, v := range e.dataArrayCells {
		out.dataArrayCells[k] = v.Clone()
	}
	return out
}
