// Package config hosts non-user-configurable parameters for the compiler
// core, grounded on the teacher's config/const.go: development-time
// constants that tune pass behavior without being part of the compiler's
// observable contract.
package config

// FixpointRoundLimit bounds the number of full walks the data-transformation
// pass (spec §4.E) and the variable-collector's loop/if resolution fixpoint
// (spec §4.C) may take before the compiler gives up and reports an
// UnresolvableLoopBound / UnresolvableIndex error instead of looping
// forever. Spec §5 already argues both fixpoints terminate because the set
// of resolved cells/bounds is strictly increasing and bounded by the program
// and environment size; this limit is a diagnosability ceiling, not a
// soundness requirement, set generously above any model this compiler is
// expected to see in practice.
const FixpointRoundLimit = 10000

// NoInferenceComment, if present verbatim as a standalone statement comment
// in a model's source (a concern of the out-of-scope parser, §6), signals
// that compiled output should not be cached; retained here only as the
// string constant consuming tools can check for, mirroring the teacher's
// NilAwayNoInferString convention for tests.
const NoInferenceComment = "# bugscompile: no-cache"

// LinkFunctionTable is the fixed link-function table of spec §6: a link
// function name on an LHS rewrites to its inverse applied to the RHS.
var LinkFunctionTable = map[string]string{
	"logit":   "logistic",
	"log":     "exp",
	"cloglog": "cexpexp",
	"probit":  "phi",
}
