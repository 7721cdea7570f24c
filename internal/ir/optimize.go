package ir

// foldFuncs holds the two-operand arithmetic opcodes constant folding
// evaluates once both operands are Immediate. div truncates toward zero,
// which Go's integer division already guarantees.
var foldFuncs = map[string]func(a, b int) int{
	"add":  func(a, b int) int { return a + b },
	"adda": func(a, b int) int { return a + b },
	"sub":  func(a, b int) int { return a - b },
	"mul":  func(a, b int) int { return a * b },
	"div":  func(a, b int) int { return a / b },
}

// leftUnit and rightUnit name the identity-element rewrites: an add/adda/mul
// whose left operand is the identity collapses to its right operand, and
// symmetrically (plus sub/div, which have no useful left identity) for the
// right operand.
var leftUnit = map[string]int{
	"add":  0,
	"adda": 0,
	"mul":  1,
}

var rightUnit = map[string]int{
	"add":  0,
	"adda": 0,
	"sub":  0,
	"mul":  1,
	"div":  1,
}

// ConstantEliminate folds two-Immediate-operand arithmetic into a single
// Immediate and removes arithmetic against an identity element, iterating
// to a fixed point. Every elimination rewrites the folded instruction's
// uses (in b and every descendant block) via renameOp, so a value computed
// once but consumed after a join still resolves correctly.
func (b *Block) ConstantEliminate() {
	for {
		eliminated := 0
		for i := 0; i < len(b.Instrs); i++ {
			instr := b.Instrs[i]
			if len(instr.Operands) != 2 {
				continue
			}
			left, right := instr.Operands[0], instr.Operands[1]

			if fn, ok := foldFuncs[instr.Op]; ok {
				leftImm, leftOK := left.(Immediate)
				rightImm, rightOK := right.(Immediate)
				if leftOK && rightOK && !leftImm.Uninit && !rightImm.Uninit {
					if instr.Op == "div" && rightImm.Value == 0 {
						continue
					}
					result := Immediate{Value: fn(leftImm.Value, rightImm.Value)}
					b.eliminate(i, instr, result)
					eliminated++
					i--
					continue
				}
			}

			// Identity removal keys on value equality alone, so an
			// uninitialized read (which stands in as #0) still counts as
			// the additive identity here.
			if unit, ok := leftUnit[instr.Op]; ok {
				if imm, ok := left.(Immediate); ok && imm.Value == unit {
					b.eliminate(i, instr, right)
					eliminated++
					i--
					continue
				}
			}

			if unit, ok := rightUnit[instr.Op]; ok {
				if imm, ok := right.(Immediate); ok && imm.Value == unit {
					b.eliminate(i, instr, left)
					eliminated++
					i--
					continue
				}
			}
		}
		if eliminated == 0 {
			return
		}
	}
}

// eliminate removes the instruction at index i and rewrites every reference
// to it (across b and its descendants) to replacement.
func (b *Block) eliminate(i int, instr *Instruction, replacement Operand) {
	b.Instrs = append(b.Instrs[:i], b.Instrs[i+1:]...)
	b.renameOp(InstrRef{Instr: instr}, replacement, nil)
}

// Optimize runs constant folding to a fixed point over every block reachable
// from fn.Entry, visiting each block once (a while loop's back edge would
// otherwise cycle the walk forever).
func (fn *Function) Optimize() {
	visited := make(map[*Block]bool)
	var walk func(b *Block)
	walk = func(b *Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		b.ConstantEliminate()
		for _, children := range b.Children {
			for _, child := range children {
				walk(child)
			}
		}
	}
	walk(fn.Entry)
}

// Optimize runs constant folding across every function in p.
func (p *Program) Optimize() {
	for _, fn := range p.Functions {
		fn.Optimize()
	}
}
