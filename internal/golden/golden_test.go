// Package golden regression-tests the whole pipeline (lex, parse, compile,
// optimize, renumber, render) against the small SMPL programs under
// testdata/. Rather than pinning brittle byte-exact output snapshots, each
// fixture is compiled and rendered twice from scratch, and separately
// rendered again after an extra optimize/renumber round on the already
// folded program; in both cases the two renders are required to match
// exactly, with a line diff on failure.
package golden

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andreyvit/diff"

	"smplc/internal/graph"
	"smplc/internal/parser"
)

func compileAndRender(t *testing.T, path string) string {
	t.Helper()
	src, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := parser.New(path, string(src))
	if err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	comp, err := p.Parse()
	if err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	prog, err := comp.Compile()
	if err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	prog.Optimize()
	prog.Renumber()
	return graph.Render(prog)
}

// TestFixturesRenderDeterministically compiles every testdata/*.smpl fixture
// twice from scratch and requires byte-identical output, catching any
// nondeterminism introduced by map iteration order in the builder, the
// optimizer's rename pass, or the serializer's DFS.
func TestFixturesRenderDeterministically(t *testing.T) {
	matches, err := filepath.Glob("testdata/*.smpl")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 {
		t.Fatal("no fixtures found under testdata/")
	}
	for _, path := range matches {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			first := compileAndRender(t, path)
			second := compileAndRender(t, path)
			if first != second {
				t.Fatalf("nondeterministic render for %s:\n%s", path, diff.LineDiff(first, second))
			}
		})
	}
}

// TestFixturesFoldReachesFixpoint additionally re-optimizes each already
// folded program and requires the rendered output not to change,
// exercising fold idempotence end to end.
func TestFixturesFoldReachesFixpoint(t *testing.T) {
	matches, err := filepath.Glob("testdata/*.smpl")
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range matches {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			src, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			p, err := parser.New(path, string(src))
			if err != nil {
				t.Fatalf("%s: %v", path, err)
			}
			comp, err := p.Parse()
			if err != nil {
				t.Fatalf("%s: %v", path, err)
			}
			prog, err := comp.Compile()
			if err != nil {
				t.Fatalf("%s: %v", path, err)
			}
			prog.Optimize()
			prog.Renumber()
			once := graph.Render(prog)

			prog.Optimize()
			prog.Renumber()
			twice := graph.Render(prog)

			if once != twice {
				t.Fatalf("fold pass did not reach a fixpoint for %s:\n%s", path, diff.LineDiff(once, twice))
			}
		})
	}
}
