package env

import (
	"bytes"
	"encoding/gob"
)

// Value is a scalar cell value: either the sentinel "undetermined" (spec
// §3) or a concrete integer or float. Value is a plain struct rather than an
// interface so cells can be stored and compared by value without boxing.
type Value struct {
	determined bool
	isFloat    bool
	i          int
	f          float64
}

// Undetermined is the sentinel cell value for a scalar or array element that
// has not yet been assigned.
var Undetermined = Value{}

// Int constructs a determined integer value.
func Int(i int) Value { return Value{determined: true, i: i} }

// Float constructs a determined float value.
func Float(f float64) Value { return Value{determined: true, isFloat: true, f: f} }

// Determined reports whether v holds a concrete value.
func (v Value) Determined() bool { return v.determined }

// IsFloat reports whether a determined v is a float (as opposed to an
// integer). Meaningless if !v.Determined().
func (v Value) IsFloat() bool { return v.isFloat }

// Int64 returns v's integer value. Panics if v is not a determined integer;
// callers must check IsFloat first when the value's kind is not already
// known from context.
func (v Value) Int64() int {
	if !v.determined || v.isFloat {
		panic("env: Int64 called on non-integer value")
	}
	return v.i
}

// Float64 returns v's value coerced to float64, whether it is stored as an
// int or a float. Panics if v is undetermined.
func (v Value) Float64() float64 {
	if !v.determined {
		panic("env: Float64 called on undetermined value")
	}
	if v.isFloat {
		return v.f
	}
	return float64(v.i)
}

// AsInt returns v's value as an integer together with whether the
// conversion is exact, implementing the spec §4.B / §9 "open question" rule:
// coerce a float index iff its value is exactly integral, otherwise reject.
func (v Value) AsInt() (int, bool) {
	if !v.determined {
		return 0, false
	}
	if !v.isFloat {
		return v.i, true
	}
	if v.f != float64(int(v.f)) {
		return 0, false
	}
	return int(v.f), true
}

// valueShim is Value's gob wire format: Value's own fields are unexported
// (to keep construction funneled through Int/Float/Undetermined), so it
// needs custom Gob methods the same way the teacher's InferredMap wraps a
// private field for gob encoding (inference/inferred_map.go GobEncode).
type valueShim struct {
	Determined bool
	IsFloat    bool
	I          int
	F          float64
}

// GobEncode implements gob.GobEncoder.
func (v Value) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	shim := valueShim{Determined: v.determined, IsFloat: v.isFloat, I: v.i, F: v.f}
	if err := gob.NewEncoder(&buf).Encode(shim); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (v *Value) GobDecode(data []byte) error {
	var shim valueShim
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&shim); err != nil {
		return err
	}
	v.determined = shim.Determined
	v.isFloat = shim.IsFloat
	v.i = shim.I
	v.f = shim.F
	return nil
}

// Equal reports whether two determined values are numerically equal,
// comparing across int/float representations.
func (v Value) Equal(o Value) bool {
	if v.determined != o.determined {
		return false
	}
	if !v.determined {
		return true
	}
	if !v.isFloat && !o.isFloat {
		return v.i == o.i
	}
	return v.Float64() == o.Float64()
}
