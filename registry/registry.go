// Package registry implements the primitive-function contract of spec §6:
// the fixed set of function names the partial evaluator (package eval) may
// fold, plus the registration hook that lets callers extend that set before
// compilation.
package registry

import "sync"

// Arity describes how many arguments a primitive accepts. Variadic
// primitives (e.g. `mean`, `sum`) set Max to -1 for "unbounded".
type Arity struct {
	Min int
	Max int // -1 means unbounded
}

// Fn is a folded primitive: given already-resolved float64 arguments, it
// returns the resolved result. The caller (package eval) turns the result
// into an integer env.Value when all inputs were integers and the result is
// integral, and into a float otherwise; Fn itself only performs
// the numeric computation to avoid an import of package env here (registry
// sits below env in the dependency order so config/registration can happen
// before any environment exists).
type Fn func(args ...float64) (float64, error)

// Entry is one registered primitive.
type Entry struct {
	Name       string
	Arity      Arity
	Fn         Fn
	IsInteger  bool // recorded on the entry only; package eval does not read it (see Fn)
	Distribution bool // true for dXxx/truncated/censored constructors, which eval never numerically folds
}

// registry is the process-wide table of known primitives, guarded by mu
// since Register may be called from test or CLI init code concurrently with
// compilation in library use (spec §6: "registrations made before
// compilation are visible").
var (
	mu      sync.RWMutex
	entries = map[string]Entry{}
)

func init() {
	for _, e := range builtins() {
		entries[e.Name] = e
	}
}

// Register installs a new primitive, or replaces an existing one of the
// same name. Per spec §6, callers must register before invoking the
// compiler for the registration to be visible to §4.B and §4.F.
func Register(e Entry) {
	mu.Lock()
	defer mu.Unlock()
	entries[e.Name] = e
}

// Lookup returns the registered entry for name, if any.
func Lookup(name string) (Entry, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := entries[name]
	return e, ok
}

// IsDistribution reports whether name is a registered distribution
// constructor (spec §6's dnorm/dbin/... list and truncated/censored).
func IsDistribution(name string) bool {
	e, ok := Lookup(name)
	return ok && e.Distribution
}

// IsPrimitive reports whether name is any registered, foldable primitive
// (arithmetic, range, elementary math) as opposed to a distribution
// constructor.
func IsPrimitive(name string) bool {
	e, ok := Lookup(name)
	return ok && !e.Distribution
}

// CheckArity reports whether n arguments is valid for the registered entry
// e.
func (e Entry) CheckArity(n int) bool {
	if n < e.Arity.Min {
		return false
	}
	if e.Arity.Max == -1 {
		return true
	}
	return n <= e.Arity.Max
}
