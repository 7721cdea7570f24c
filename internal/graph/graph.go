// Package graph serializes a compiled *ir.Program into the textual
// directed-graph description consumed by an external graph-rendering tool.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"smplc/internal/diag"
	"smplc/internal/ir"
)

// Render walks every function in p via DFS from its entry block and
// returns the combined `digraph G { ... }` description, one
// `subgraph cluster_<n>` per function. Block IDs are offset globally
// across functions so labels stay unique in the combined graph. Any
// uninitialized-variable reads collected while walking a function are
// flushed as warnings (one per distinct name) before moving to the next
// function.
func Render(p *ir.Program) string {
	var clusters []string
	offset := 0
	for i, fn := range p.Functions {
		cluster, maxLabel := renderFunction(i, fn, offset)
		clusters = append(clusters, cluster)
		offset += maxLabel
	}
	return fmt.Sprintf("digraph G {\n%s\n}", strings.Join(clusters, "\n"))
}

func signature(fn *ir.Function) string {
	if fn.Name == "main" {
		return "main"
	}
	label := ""
	if fn.IsVoid {
		label = "void "
	}
	return fmt.Sprintf("%s%s (%s)", label, fn.Name, strings.Join(fn.Params, ", "))
}

func renderFunction(id int, fn *ir.Function, offset int) (string, int) {
	blocks := reachableBlocks(fn.Entry)

	var defines []string
	var connections []string
	uninit := make(map[string]bool)
	var uninitOrder []string

	for _, b := range blocks {
		instrStrs := blockInstrStrings(b)
		for _, instr := range b.Instrs {
			for _, op := range instr.Operands {
				if imm, ok := op.(ir.Immediate); ok && imm.Uninit {
					if !uninit[imm.Name] {
						uninit[imm.Name] = true
						uninitOrder = append(uninitOrder, imm.Name)
					}
				}
			}
		}

		links := b.BlockLinks()
		for _, c := range links["branch"] {
			connections = append(connections, edgeLine(b, c, "branch", offset, false))
		}
		for _, c := range links["fall_through"] {
			connections = append(connections, edgeLine(b, c, "fall-through", offset, false))
		}
		for _, c := range links["dom"] {
			connections = append(connections, edgeLine(b, c, "dom", offset, true))
		}

		defines = append(defines, fmt.Sprintf(
			"\t\tbb%d [shape=record, label=\"<b>BB%d| {%s}\"];",
			b.Label+offset, b.Label, strings.Join(instrStrs, "|"),
		))
	}

	for _, name := range uninitOrder {
		diag.UninitWarning(functionWarnName(fn), name)
	}

	maxLabel := 0
	for _, b := range blocks {
		if b.Label > maxLabel {
			maxLabel = b.Label
		}
	}

	cluster := fmt.Sprintf("\tsubgraph cluster_%d {\n%s\n%s\n\t\tlabel=%q\n\t}",
		id, strings.Join(defines, "\n"), strings.Join(connections, "\n"), signature(fn))
	return cluster, maxLabel
}

func functionWarnName(fn *ir.Function) string {
	if fn.Name == "main" {
		return "main"
	}
	return fn.Name
}

func edgeLine(from, to *ir.Block, label string, offset int, dom bool) string {
	if dom {
		return fmt.Sprintf("\t\tbb%d -> bb%d [label=%q, color=\"blue\", style=\"dotted\"];",
			from.Label+offset, to.Label+offset, label)
	}
	return fmt.Sprintf("\t\tbb%d -> bb%d [label=%q];", from.Label+offset, to.Label+offset, label)
}

// blockInstrStrings renders b's instructions for a record label, inserting
// an escaped placeholder when the block holds no instructions at all so the
// renderer still receives a non-empty record. The angle brackets must be
// backslash-escaped or the record parser reads them as port delimiters.
func blockInstrStrings(b *ir.Block) []string {
	if len(b.Instrs) == 0 {
		return []string{`\<empty\>`}
	}
	out := make([]string, len(b.Instrs))
	for i, instr := range b.Instrs {
		if instr.Empty {
			out[i] = `\<empty\>`
			continue
		}
		out[i] = instr.String()
	}
	return out
}

// reachableBlocks returns every block reachable from entry, ordered by
// block label (the DFS visits children in a map, whose iteration order Go
// does not fix, so the label sort keeps the output deterministic).
func reachableBlocks(entry *ir.Block) []*ir.Block {
	visited := make(map[*ir.Block]bool)
	var out []*ir.Block
	var walk func(b *ir.Block)
	walk = func(b *ir.Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		out = append(out, b)
		for _, children := range b.Children {
			for _, c := range children {
				walk(c)
			}
		}
	}
	walk(entry)
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
