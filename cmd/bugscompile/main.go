// Command bugscompile reads a JSON-encoded model file (program body + data
// environment, package modelfile's stand-in for a real BUGS parser's
// output) and prints the compiled model's parameter list and topological
// order. It exercises the whole core pipeline end-to-end the way the
// teacher's cmd/nilaway/main.go exercises the whole analyzer end-to-end; it
// carries none of the compiler core's invariants itself.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/nilaway-labs/bugscompile/compile"
	"github.com/nilaway-labs/bugscompile/internal/modelfile"
)

func main() {
	flag.Parse()
	path := flag.Arg(0)
	if path == "" {
		log.Fatal("usage: bugscompile <model.json>")
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("bugscompile: %v", err)
	}
	defer f.Close()

	if err := run(f, os.Stdout); err != nil {
		log.Fatalf("bugscompile: %v", err)
	}
}

// run is the testable core of the command: decode the model file, compile
// it, and report the parameter list and topological order to out.
func run(in io.Reader, out io.Writer) error {
	program, data, err := modelfile.Load(in)
	if err != nil {
		return err
	}

	m, err := compile.Compile(program, data)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "parameters (%d):\n", len(m.Parameters))
	for _, p := range m.Parameters {
		fmt.Fprintf(out, "  %s\n", p.ID())
	}

	fmt.Fprintf(out, "topological order (%d vertices):\n", len(m.Order))
	for _, id := range m.Order {
		fmt.Fprintf(out, "  %s\n", id)
	}

	return nil
}
