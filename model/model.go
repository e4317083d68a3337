// Package model implements model assembly (spec §4.H): given the node
// records built by package nodefn and the dependency graph built by package
// graph, it produces the single immutable compiled artifact a caller
// consumes — the topologically sorted vertex list, the parameter sublist,
// the graph, the per-vertex node records, and the environment used to
// initialize them.
package model

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/nilaway-labs/bugscompile/collect"
	"github.com/nilaway-labs/bugscompile/env"
	"github.com/nilaway-labs/bugscompile/graph"
	"github.com/nilaway-labs/bugscompile/nodefn"
)

// Model is the compiled artifact of spec §6 "Output from the core": the
// topologically sorted variable list, the parameter sublist, the graph, the
// per-vertex node records, and the initialized value store. It is immutable
// once returned (spec §4.H "Shared-resource policy"); downstream evaluators
// that need a mutable per-sample copy should call Env.Clone(), not mutate
// Env directly.
type Model struct {
	Graph      *graph.Graph
	Order      []string // topological order, vertex IDs
	Nodes      []*nodefn.Node
	Parameters []env.Var
	Env        *env.Environment
}

// NodeByID returns the node record for a given vertex ID, or nil if id
// names an auxiliary vertex (which has no node record of its own).
func (m *Model) NodeByID(id string) *nodefn.Node {
	for _, n := range m.Nodes {
		if n.Var.ID() == id {
			return n
		}
	}
	return nil
}

// Assemble runs the final assembly step of spec §4.H over the node records
// and collector result, building the dependency graph (package graph) and
// selecting the parameter sublist.
//
// Spec §8 property 5 defines the parameter list as "exactly {stochastic
// vertices with undetermined value in the final environment and no logical
// override}". Every node in nodes already carries a single Kind (a variable
// written both logically and stochastically is classified Stochastic by the
// collector, per collect.Result.VarKind's doc comment, deferring the actual
// conflict to collect.CheckConflicts), so "no logical override" reduces to
// "this variable's one surviving assignment is stochastic" — exactly
// Kind == collect.Stochastic.
func Assemble(nodes []*nodefn.Node, res *collect.Result, e *env.Environment) (*Model, error) {
	g, order, err := graph.Build(nodes, res)
	if err != nil {
		return nil, err
	}

	var params []env.Var
	for _, n := range nodes {
		if n.Kind != collect.Stochastic {
			continue
		}
		if val, ok := e.Get(n.Var); ok && val.Determined() {
			continue
		}
		params = append(params, n.Var)
	}

	return &Model{
		Graph:      g,
		Order:      order,
		Nodes:      nodes,
		Parameters: params,
		Env:        e,
	}, nil
}

// artifact is the gob-serializable projection of a Model. Model itself
// isn't gob-encoded directly: *nodefn.Node carries an Fn closure, which gob
// cannot encode, so a saved/loaded artifact carries everything except the
// callables; LoadArtifact's caller is expected to re-derive Fn by recompiling
// against the restored Env, the same way the teacher's InferredMap restores
// a value whose consumer re-derives anything it cannot serialize directly.
type artifact struct {
	Order      []string
	Parameters []env.Var
	Scalars    map[string]env.Value
	Arrays     map[string]arrayArtifact
}

type arrayArtifact struct {
	Shape []int
	Cells []env.Value
}

// SaveArtifact gob-encodes m's order, parameter list, and environment, then
// compresses the result with zstd and writes it to w. Mirrors the teacher's
// gob-encoding of InferredMap as a cross-package analysis.Fact
// (inference/engine.go), reusing encoding/gob for an analogous "serialize an
// immutable compiled result to disk" need.
func SaveArtifact(w io.Writer, m *Model) error {
	a := artifact{
		Order:      m.Order,
		Parameters: m.Parameters,
		Scalars:    map[string]env.Value{},
		Arrays:     map[string]arrayArtifact{},
	}
	m.Env.Scalars.OrderedRange(func(k string, v env.Value) bool {
		a.Scalars[k] = v
		return true
	})
	m.Env.Arrays.OrderedRange(func(k string, v *env.Array) bool {
		a.Arrays[k] = arrayArtifact{Shape: v.Shape, Cells: v.Cells()}
		return true
	})

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return err
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := zw.Write(buf.Bytes()); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// LoadedArtifact is the result of LoadArtifact: the topological order, the
// parameter list, and a freshly reconstructed environment. It deliberately
// has no Graph or Nodes — those carry unexported state and closures that
// cannot round-trip through gob. Every restored scalar and array in Env is
// seeded as data, including cells that a logical assignment produced or that
// are still undetermined, so compiling the same program against Env reports
// OverwriteData for any logical assignment to a restored name.
type LoadedArtifact struct {
	Order      []string
	Parameters []env.Var
	Env        *env.Environment
}

// LoadArtifact reverses SaveArtifact.
func LoadArtifact(r io.Reader) (*LoadedArtifact, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}

	var a artifact
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&a); err != nil {
		return nil, err
	}

	e := env.New()
	for name, v := range a.Scalars {
		e.SeedScalar(name, v)
	}
	for name, arr := range a.Arrays {
		e.SeedArray(name, arr.Shape, arr.Cells)
	}

	return &LoadedArtifact{Order: a.Order, Parameters: a.Parameters, Env: e}, nil
}
