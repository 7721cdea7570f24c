package ir

import (
	"fmt"
	"sort"
)

// declareLocalVar introduces name (with optional array strides) into b's
// local scope. Redeclaring a name in the same block is a hard error.
func (b *Block) declareLocalVar(name string, strides []int) error {
	if b.declared[name] {
		return fmt.Errorf("attempted to redeclare variable %q", name)
	}
	b.declared[name] = true
	b.Locals[name] = nil
	b.Strides[name] = strides
	return nil
}

// getLocalVar returns name's current SSA value and array strides (nil for
// a scalar). Reading a name that was declared but never assigned yields an
// Immediate placeholder tagged Uninit so later passes can warn about it.
func (b *Block) getLocalVar(name string) (Operand, []int, error) {
	if !b.declared[name] {
		return nil, nil, fmt.Errorf("accessing an undeclared variable %q", name)
	}
	val := b.Locals[name]
	strides := b.Strides[name]
	if val == nil {
		return Immediate{Uninit: true, Name: name}, strides, nil
	}
	return val, strides, nil
}

// LocalVar is the exported form of getLocalVar, used by if/while lowering
// to read a non-current predecessor block's bindings when deciding
// whether a phi is needed.
func (b *Block) LocalVar(name string) (Operand, []int, error) {
	return b.getLocalVar(name)
}

// DeclaredNames returns the names declared in b's scope, sorted for
// deterministic iteration (phi insertion order is otherwise unobservable,
// but determinism keeps output and tests reproducible).
func (b *Block) DeclaredNames() []string {
	names := make([]string, 0, len(b.declared))
	for name := range b.declared {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// setLocalVar rebinds name to val in b's local scope.
func (b *Block) setLocalVar(name string, val Operand) error {
	if !b.declared[name] {
		return fmt.Errorf("accessing an undeclared variable %q", name)
	}
	b.Locals[name] = val
	return nil
}

// renameOp rewrites every operand across b and its descendants that is
// equal to oldOp into newOp. visited guards against infinite recursion on
// the cycles a while loop's back edge introduces.
func (b *Block) renameOp(oldOp, newOp Operand, visited map[*Block]bool) {
	if visited == nil {
		visited = make(map[*Block]bool)
	}
	if visited[b] {
		return
	}
	visited[b] = true

	for _, instr := range b.Instrs {
		for i, op := range instr.Operands {
			if op.Equal(oldOp) {
				instr.Operands[i] = newOp
			}
		}
	}
	for _, children := range b.Children {
		for _, child := range children {
			child.renameOp(oldOp, newOp, visited)
		}
	}
}

// BlockLinks is the exported form of blockLinks, used by the serializer.
func (b *Block) BlockLinks() map[string][]*Block {
	return b.blockLinks()
}

// blockLinks classifies b's outgoing edges into the dot-serializer's
// branch/fall_through/dom vocabulary, matching the shape an if or while
// construction produces.
func (b *Block) blockLinks() map[string][]*Block {
	links := make(map[string][]*Block)

	_, hasThen := b.Children[EdgeThen]
	_, hasElse := b.Children[EdgeElse]
	_, hasJoin := b.Children[EdgeJoin]
	if hasThen || hasElse || hasJoin {
		switch {
		case hasThen && hasElse:
			links["branch"] = b.Children[EdgeElse]
			links["fall_through"] = b.Children[EdgeThen]
		case !hasThen && hasJoin:
			links["fall_through"] = b.Children[EdgeJoin]
		}
	}

	_, hasHead := b.Children[EdgeHead]
	_, hasBody := b.Children[EdgeBody]
	_, hasExit := b.Children[EdgeExit]
	if hasHead || hasBody || hasExit {
		switch {
		case hasHead:
			links["fall_through"] = b.Children[EdgeHead]
		case hasBody && hasExit:
			links["fall_through"] = b.Children[EdgeBody]
			links["branch"] = b.Children[EdgeExit]
		}
	}

	links["dom"] = b.Dominates
	return links
}
