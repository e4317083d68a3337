// Package graph implements the dependency-graph builder of spec §4.G: one
// vertex per surviving model variable plus an auxiliary vertex for every
// array that is ever assigned as a slice (so that whole-array consumers and
// the array's individual element producers can be linked without making
// the whole array itself a model variable — spec §3 keeps vertices at
// scalar/element granularity and only this pass introduces the coarser
// auxiliary nodes), directed edges from dependency to dependent, and a
// deterministic topological sort.
//
// The DFS-based topological sort below is adapted from the discovery-order,
// white/gray/black traversal in katalvlaran-lvlath's dfs package: vertices
// are visited in their discovery order and a back-edge onto a Gray vertex
// is reported as a cycle, but state here lives directly on this package's
// own adjacency lists rather than a generic core.Graph, since this graph's
// vertex set is fixed once built and never needs the teacher's broader
// mutable-graph API.
package graph

import (
	"sort"

	"github.com/nilaway-labs/bugscompile/collect"
	"github.com/nilaway-labs/bugscompile/compileerr"
	"github.com/nilaway-labs/bugscompile/env"
	"github.com/nilaway-labs/bugscompile/nodefn"
)

// auxPrefix namespaces an auxiliary whole-array vertex ID so it can never
// collide with a scalar model variable's ID (which is just the bare name).
const auxPrefix = "aux:"

// Graph is the dependency graph of spec §3/§4.G: vertices labeled by
// variable identity (or, for auxiliary vertices, an array name), edges
// directed dependency → dependent.
type Graph struct {
	vertices []string // discovery order
	index    map[string]int
	edges    map[string][]string // from -> to, in insertion order
	edgeSeen map[string]map[string]bool
}

func newGraph() *Graph {
	return &Graph{
		index:    map[string]int{},
		edges:    map[string][]string{},
		edgeSeen: map[string]map[string]bool{},
	}
}

func (g *Graph) addVertex(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.vertices)
	g.vertices = append(g.vertices, id)
}

func (g *Graph) addEdge(from, to string) {
	g.addVertex(from)
	g.addVertex(to)
	if g.edgeSeen[from] == nil {
		g.edgeSeen[from] = map[string]bool{}
	}
	if g.edgeSeen[from][to] {
		return
	}
	g.edgeSeen[from][to] = true
	g.edges[from] = append(g.edges[from], to)
}

// Vertices returns every vertex ID in discovery order.
func (g *Graph) Vertices() []string {
	out := make([]string, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// Successors returns the dependents of from (edges from → to), in the order
// they were added.
func (g *Graph) Successors(from string) []string {
	return g.edges[from]
}

// Build constructs the dependency graph for nodes (the output of package
// nodefn) and returns it together with a topological order. Edge rules
// (spec §4.G):
//
//   - For each node V and each d ∈ deps(V): edge d → V.
//   - For each array LHS slice S: for each scalarized element e ∈ S, edge
//     (the slice's auxiliary vertex) → e.
//   - For each node V whose coarse args name an array assigned as a slice:
//     edge (that array's auxiliary vertex) → V.
func Build(nodes []*nodefn.Node, res *collect.Result) (*Graph, []string, error) {
	g := newGraph()

	// Discover model-variable vertices first, in nodefn's build order,
	// which itself follows statement discovery order (spec §4.G "stable
	// with respect to statement discovery order").
	for _, n := range nodes {
		g.addVertex(n.Var.ID())
	}

	sliceArrays := map[string]bool{}
	for _, a := range res.Assignments {
		if a.IsSlice() {
			sliceArrays[a.Name] = true
		}
	}

	for _, a := range res.Assignments {
		if !a.IsSlice() {
			continue
		}
		aux := auxPrefix + a.Name
		for _, v := range a.Vars() {
			g.addEdge(aux, v.ID())
		}
	}

	for _, n := range nodes {
		for _, d := range n.Deps {
			g.addEdge(d.ID(), n.Var.ID())
		}
		for _, arg := range n.Args {
			if sliceArrays[arg.Name] {
				g.addEdge(auxPrefix+arg.Name, n.Var.ID())
			}
		}
	}

	order, err := g.topologicalSort()
	if err != nil {
		return nil, nil, err
	}
	return g, order, nil
}

const (
	white = 0
	gray  = 1
	black = 2
)

// topologicalSort performs a DFS over g's vertices in discovery order,
// returning a linear extension of the edges (dependency before dependent).
// A back-edge onto a Gray vertex means the dependency graph has a true
// cycle (spec §9 "apparent cycles through array slices are broken by
// scalarizing to elements" — by construction every edge here already
// targets a scalar/element vertex, so any cycle found is genuine).
func (g *Graph) topologicalSort() ([]string, error) {
	state := make(map[string]int, len(g.vertices))
	order := make([]string, 0, len(g.vertices))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case gray:
			return compileerr.New(compileerr.CycleInDependencyGraph,
				"dependency graph contains a cycle through %s", id)
		case black:
			return nil
		}
		state[id] = gray
		for _, to := range g.edges[id] {
			if err := visit(to); err != nil {
				return err
			}
		}
		state[id] = black
		order = append(order, id)
		return nil
	}

	for _, id := range g.vertices {
		if state[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}

	// order is currently a reverse topological (post-)order; reverse it in
	// place. The result is deterministic for a given graph, but vertices not
	// ordered by an edge are not kept in discovery order.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// AuxVertexName recovers the array name from an auxiliary vertex ID.
func AuxVertexName(id string) (string, bool) {
	if len(id) > len(auxPrefix) && id[:len(auxPrefix)] == auxPrefix {
		return id[len(auxPrefix):], true
	}
	return "", false
}

// SortedVarIDs returns the IDs of vars in sorted order, a deterministic
// comparison baseline independent of map iteration.
func SortedVarIDs(vars []env.Var) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.ID()
	}
	sort.Strings(out)
	return out
}
