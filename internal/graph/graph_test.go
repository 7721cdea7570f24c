package graph

import (
	"strings"
	"testing"

	"smplc/internal/parser"
)

func render(t *testing.T, src string) string {
	t.Helper()
	p, err := parser.New("test.smpl", src)
	if err != nil {
		t.Fatal(err)
	}
	comp, err := p.Parse()
	if err != nil {
		t.Fatal(err)
	}
	prog, err := comp.Compile()
	if err != nil {
		t.Fatal(err)
	}
	prog.Optimize()
	prog.Renumber()
	return Render(prog)
}

func TestRenderMainSignature(t *testing.T) {
	out := render(t, `main var x; { let x <- 1 } .`)
	if !strings.Contains(out, "digraph G {") {
		t.Fatal("expected a digraph G wrapper")
	}
	if !strings.Contains(out, `label="main"`) {
		t.Fatalf("expected the main cluster labeled \"main\", got:\n%s", out)
	}
	if !strings.Contains(out, "subgraph cluster_0") {
		t.Fatal("expected a cluster_0 for main")
	}
}

func TestRenderFunctionSignature(t *testing.T) {
	out := render(t, `main void function f(a, b); { return }; { call f(1, 2) } .`)
	if !strings.Contains(out, `label="void f (a, b)"`) {
		t.Fatalf("expected the function cluster labeled with its void signature, got:\n%s", out)
	}
}

func TestRenderIfProducesBranchAndFallThrough(t *testing.T) {
	out := render(t, `main var x; { if 1 < 2 then let x <- 1 else let x <- 2 fi } .`)
	if !strings.Contains(out, `label="branch"`) {
		t.Fatalf("expected a branch edge to the else block, got:\n%s", out)
	}
	if !strings.Contains(out, `label="fall-through"`) {
		t.Fatalf("expected a fall-through edge to the then block, got:\n%s", out)
	}
	if !strings.Contains(out, "phi") {
		t.Fatalf("expected the join block's phi to appear in the record, got:\n%s", out)
	}
}

func TestRenderDomEdgesAreDotted(t *testing.T) {
	out := render(t, `main var x; { if 1 < 2 then let x <- 1 else let x <- 2 fi } .`)
	if !strings.Contains(out, `color="blue", style="dotted"`) {
		t.Fatalf("expected dominance edges styled dotted blue, got:\n%s", out)
	}
}

func TestRenderEmptyBlockPlaceholder(t *testing.T) {
	// f's join block holds no instructions (no phi is needed and nothing
	// follows the if), so the serializer must insert the placeholder.
	out := render(t, `main var x; void function f(); { if 1 < 2 then call OutputNum(1) fi }; { let x <- 1 } .`)
	if !strings.Contains(out, `\<empty\>`) {
		t.Fatalf("expected the empty join block to render as an escaped <empty> record, got:\n%s", out)
	}
}

func TestRenderBlockIDsOffsetAcrossFunctions(t *testing.T) {
	out := render(t, `main var q; function f(x); { return x }; { let q <- call f(5) } .`)
	if strings.Count(out, "subgraph cluster_") != 2 {
		t.Fatalf("expected two clusters (main and f), got:\n%s", out)
	}
	// main is rendered first (cluster_0, its single block keeps label
	// bb1); f's single block is then offset to bb2 in cluster_1.
	if !strings.Contains(out, "bb1 [shape=record") {
		t.Fatalf("expected main's entry block at bb1, got:\n%s", out)
	}
	if !strings.Contains(out, "bb2 [shape=record") {
		t.Fatalf("expected f's block offset to bb2, got:\n%s", out)
	}
}
