// Package modelfile reads the JSON-encoded model files consumed by
// cmd/bugscompile. Parsing a model's surface syntax is explicitly out of
// scope for the compiler core (spec §6 "Input to the core" takes an
// already-parsed AST); this package is the CLI-only stand-in for whatever
// real BUGS parser a caller would otherwise plug in, encoding the same AST
// and data-environment shape spec §3 describes as plain JSON so the CLI has
// something concrete to read from disk.
package modelfile

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nilaway-labs/bugscompile/ast"
	"github.com/nilaway-labs/bugscompile/env"
)

// File is the on-disk shape: a data environment and a program body.
type File struct {
	Data struct {
		Scalars map[string]jsonValue `json:"scalars"`
		Arrays  map[string]jsonArray `json:"arrays"`
	} `json:"data"`
	Body []json.RawMessage `json:"body"`
}

type jsonValue struct {
	Undetermined bool    `json:"undetermined"`
	Float        bool    `json:"float"`
	Value        float64 `json:"value"`
}

func (v jsonValue) toEnvValue() env.Value {
	if v.Undetermined {
		return env.Undetermined
	}
	if v.Float {
		return env.Float(v.Value)
	}
	return env.Int(int(v.Value))
}

type jsonArray struct {
	Shape []int       `json:"shape"`
	Cells []jsonValue `json:"cells"`
}

// exprEnvelope and stmtEnvelope give every AST node a "kind" discriminator
// plus the union of fields any kind might need; Load switches on Kind to
// build the corresponding ast.Expr/ast.Stmt.
type exprEnvelope struct {
	Kind    string         `json:"kind"` // int, float, sym, ref, call
	Int     int            `json:"int,omitempty"`
	Float   float64        `json:"float,omitempty"`
	Name    string         `json:"name,omitempty"`
	Func    string         `json:"func,omitempty"`
	Indices []exprEnvelope `json:"indices,omitempty"`
	Args    []exprEnvelope `json:"args,omitempty"`
}

type stmtEnvelope struct {
	Kind string       `json:"kind"` // logical, stochastic, for, if
	LHS  exprEnvelope `json:"lhs,omitempty"`
	RHS  exprEnvelope `json:"rhs,omitempty"`
	Link string       `json:"link,omitempty"`
	Var  string       `json:"var,omitempty"`
	Lo   exprEnvelope `json:"lo,omitempty"`
	Hi   exprEnvelope `json:"hi,omitempty"`
	Cond exprEnvelope `json:"cond,omitempty"`
	Body []json.RawMessage `json:"body,omitempty"`
	Else []json.RawMessage `json:"else,omitempty"`
}

func (e exprEnvelope) toExpr() (ast.Expr, error) {
	switch e.Kind {
	case "int":
		return ast.IntLit{Value: e.Int}, nil
	case "float":
		return ast.FloatLit{Value: e.Float}, nil
	case "sym":
		return ast.Sym{Name: e.Name}, nil
	case "ref":
		idx := make([]ast.Expr, len(e.Indices))
		for i, ix := range e.Indices {
			x, err := ix.toExpr()
			if err != nil {
				return nil, err
			}
			idx[i] = x
		}
		return ast.Ref{Name: e.Name, Indices: idx}, nil
	case "call":
		args := make([]ast.Expr, len(e.Args))
		for i, a := range e.Args {
			x, err := a.toExpr()
			if err != nil {
				return nil, err
			}
			args[i] = x
		}
		return ast.Call{Func: e.Func, Args: args}, nil
	default:
		return nil, fmt.Errorf("modelfile: unknown expression kind %q", e.Kind)
	}
}

func decodeStmts(raw []json.RawMessage) ([]ast.Stmt, error) {
	out := make([]ast.Stmt, len(raw))
	for i, r := range raw {
		var se stmtEnvelope
		if err := json.Unmarshal(r, &se); err != nil {
			return nil, err
		}
		s, err := se.toStmt()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (s stmtEnvelope) toStmt() (ast.Stmt, error) {
	switch s.Kind {
	case "logical", "stochastic":
		lhs, err := s.LHS.toExpr()
		if err != nil {
			return nil, err
		}
		rhs, err := s.RHS.toExpr()
		if err != nil {
			return nil, err
		}
		if s.Kind == "logical" {
			return ast.LogicalAssign{LHS: lhs, RHS: rhs, Link: s.Link}, nil
		}
		return ast.StochasticAssign{LHS: lhs, RHS: rhs, Link: s.Link}, nil
	case "for":
		lo, err := s.Lo.toExpr()
		if err != nil {
			return nil, err
		}
		hi, err := s.Hi.toExpr()
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(s.Body)
		if err != nil {
			return nil, err
		}
		return ast.For{Var: s.Var, Lo: lo, Hi: hi, Body: body}, nil
	case "if":
		cond, err := s.Cond.toExpr()
		if err != nil {
			return nil, err
		}
		then, err := decodeStmts(s.Body)
		if err != nil {
			return nil, err
		}
		var elseBody []ast.Stmt
		if len(s.Else) > 0 {
			elseBody, err = decodeStmts(s.Else)
			if err != nil {
				return nil, err
			}
		}
		return ast.If{Cond: cond, Then: then, Else: elseBody}, nil
	default:
		return nil, fmt.Errorf("modelfile: unknown statement kind %q", s.Kind)
	}
}

// Load reads and decodes a model file from r, returning the program body and
// a freshly seeded data environment.
func Load(r io.Reader) (*ast.Program, *env.Environment, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, nil, fmt.Errorf("modelfile: decode: %w", err)
	}

	e := env.New()
	for name, v := range f.Data.Scalars {
		e.SeedScalar(name, v.toEnvValue())
	}
	for name, a := range f.Data.Arrays {
		cells := make([]env.Value, len(a.Cells))
		for i, c := range a.Cells {
			cells[i] = c.toEnvValue()
		}
		e.SeedArray(name, a.Shape, cells)
	}

	body, err := decodeStmts(f.Body)
	if err != nil {
		return nil, nil, err
	}

	return &ast.Program{Body: body}, e, nil
}
