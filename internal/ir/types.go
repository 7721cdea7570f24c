// Package ir implements SSA construction, on-the-fly common subexpression
// elimination, constant folding, and renumbering for SMPL programs.
package ir

import "fmt"

// EdgeRole names the purpose of an edge out of a Block, mirroring the
// "then"/"else"/"join"/"head"/"body"/"exit" roles the builder assigns.
type EdgeRole string

const (
	EdgeThen EdgeRole = "then"
	EdgeElse EdgeRole = "else"
	EdgeJoin EdgeRole = "join"
	EdgeHead EdgeRole = "head"
	EdgeBody EdgeRole = "body"
	EdgeExit EdgeRole = "exit"
)

// Operand is the closed sum type over the three kinds of instruction
// operand: a reference to another instruction's result, an immediate
// constant, or a function argument.
type Operand interface {
	isOperand()
	String() string
	Equal(Operand) bool
}

// InstrRef refers to the result of another Instruction, identified by that
// instruction's assigned number.
type InstrRef struct {
	Instr *Instruction
}

func (InstrRef) isOperand() {}

func (r InstrRef) String() string { return fmt.Sprintf("(%d)", r.Instr.Num) }

func (r InstrRef) Equal(other Operand) bool {
	o, ok := other.(InstrRef)
	return ok && o.Instr.Num == r.Instr.Num
}

// Immediate is a constant integer operand. Uninit marks a placeholder
// standing in for a variable read before any assignment; Name then carries
// the variable's name purely for warning diagnostics and never
// participates in equality.
type Immediate struct {
	Value  int
	Uninit bool
	Name   string
}

func (Immediate) isOperand() {}

func (i Immediate) String() string { return fmt.Sprintf("#%d", i.Value) }

func (i Immediate) Equal(other Operand) bool {
	o, ok := other.(Immediate)
	return ok && o.Value == i.Value
}

// Argument is a reference to one of the enclosing function's parameters.
type Argument struct {
	Name string
}

func (Argument) isOperand() {}

func (a Argument) String() string { return "@" + a.Name }

func (a Argument) Equal(other Operand) bool {
	o, ok := other.(Argument)
	return ok && o.Name == a.Name
}

// Instruction is one typed three-address IR instruction. Target is set only
// on branch opcodes ("bra" and the conditional b* family); it names the
// destination block directly by pointer so it stays correct across
// renumbering, instead of embedding a label string among Operands.
type Instruction struct {
	Op       string
	Operands []Operand
	Target   *Block // set only on branch opcodes ("bra" and the b* family)
	Callee   string // set only on "call" (a user function has no Operand shape)
	Num      int    // 0 until assigned by emit or renumbering
	Empty    bool
}

func (i *Instruction) String() string {
	if i.Empty {
		return "<empty>"
	}
	op := i.Op
	if i.Op == "call" {
		op = "call " + i.Callee
	}
	out := fmt.Sprintf("%d: %s", i.Num, op)
	for _, a := range i.Operands {
		out += " " + a.String()
	}
	if i.Target != nil {
		out += fmt.Sprintf(" (BB%d)", i.Target.Label)
	}
	return out
}

// sameOperands reports whether i and other were built from equal operand
// lists, the test CSE and the load kill check key on.
func (i *Instruction) sameOperands(other *Instruction) bool {
	if len(i.Operands) != len(other.Operands) {
		return false
	}
	for idx := range i.Operands {
		if !i.Operands[idx].Equal(other.Operands[idx]) {
			return false
		}
	}
	return true
}

// findIdenticalInstr scans domList (already filtered to the relevant
// opcode bucket by the caller) for an instruction with the same operands.
func findIdenticalInstr(instr *Instruction, domList []*Instruction) *Instruction {
	for _, candidate := range domList {
		if candidate.sameOperands(instr) {
			return candidate
		}
	}
	return nil
}

// Block is one basic block: a straight-line instruction sequence plus the
// SSA bookkeeping needed while it is still being built (Locals, Strides,
// SearchList, kill-set tracking) and the CFG edges once it is done.
type Block struct {
	Label     int
	Instrs    []*Instruction
	Children  map[EdgeRole][]*Block
	Dominates []*Block

	// Construction-time SSA state; shallow-copied into same-context
	// children (if/while branches) so edits don't alias the parent.
	Locals   map[string]Operand
	Strides  map[string][]int
	declared map[string]bool

	// CSE bookkeeping: per-opcode list of instructions emitted along this
	// block's path so far, reachable by a descendant without crossing a
	// join that invalidates them.
	SearchList map[string][]*Instruction

	// Memory kill-set tracking: adda instructions immediately preceding a
	// store in this block, propagated to successor join/exit blocks as
	// PossiblyKilledLoad so a load is not wrongly deduplicated across a
	// store that may have invalidated it.
	JoinBlockKilled    []*Instruction
	PossiblyKilledLoad map[*Instruction]bool
}

// NewBlock returns an empty Block with initialized maps.
func NewBlock() *Block {
	return &Block{
		Children:           make(map[EdgeRole][]*Block),
		Locals:             make(map[string]Operand),
		Strides:            make(map[string][]int),
		declared:           make(map[string]bool),
		SearchList:         make(map[string][]*Instruction),
		PossiblyKilledLoad: make(map[*Instruction]bool),
	}
}

// AddChild records a CFG edge of the given role from b to child.
func (b *Block) AddChild(role EdgeRole, child *Block) {
	b.Children[role] = append(b.Children[role], child)
}

// Function is one SMPL function (or the implicit `main`), lowered to a CFG
// of Blocks rooted at Entry.
type Function struct {
	Name   string
	Params []string
	IsVoid bool
	Entry  *Block

	blockCounter int
	instrCounter int
}

// Program is the whole compiled unit: the implicit main computation first,
// followed by zero or more user functions in declaration order.
type Program struct {
	Functions []*Function
}
