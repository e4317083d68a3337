// Package compile is the driver of spec §2: it runs every core pass in the
// fixed order the specification lays out and returns the single compiled
// artifact, or the first fatal error any pass raises.
package compile

import (
	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/ast/normalize"
	"github.com/nilaway-labs/bugscompile/collect"
	"github.com/nilaway-labs/bugscompile/env"
	"github.com/nilaway-labs/bugscompile/model"
	"github.com/nilaway-labs/bugscompile/nodefn"
	"github.com/nilaway-labs/bugscompile/transform"
)

// Compile runs the full pipeline of spec §2 over program against data:
// normalization (A) once, then the variable collector (C), the repeated-
// assignment checker's first pass (D), the data-transformation fixpoint
// (E), the repeated-assignment checker's final recheck (D finalization),
// the node-function builder (F), and model assembly (H, which itself
// builds the graph of G). data is mutated in place by the collector (which
// allocates cells for non-data variables and folds resolvable logical
// values early) and by the transformation pass — callers that need to keep
// their original data environment untouched should pass data.Clone().
func Compile(program *ast.Program, data *env.Environment) (*model.Model, error) {
	normalized, err := normalize.Normalize(program)
	if err != nil {
		return nil, err
	}

	res, err := collect.Collect(normalized, data)
	if err != nil {
		return nil, err
	}

	conflicts, err := collect.CheckConflicts(res, data)
	if err != nil {
		return nil, err
	}

	if err := transform.Run(res, data); err != nil {
		return nil, err
	}

	if err := conflicts.FinalCheck(data); err != nil {
		return nil, err
	}

	nodes, err := nodefn.Build(res, data)
	if err != nil {
		return nil, err
	}

	return model.Assemble(nodes, res, data)
}
