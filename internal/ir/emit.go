package ir

// emit appends a new instruction (or reuses an existing one via CSE) to b.
// checkDup requests common subexpression elimination against b.SearchList;
// the load/adda pair gets joint-dedup and kill-aware handling of its own.
// It returns the operand callers should use for the instruction's result
// and the adjustment to add to the caller's usual one-step advance of its
// running instruction counter (0 normally, -1 or -2 when CSE collapsed one
// or two instructions away, -1 for an <empty> placeholder).
func (b *Block) emit(instrIndex int, name string, ops []Operand, checkDup, isEmpty bool) (Operand, int) {
	change := 0

	if len(b.Instrs) == 1 && b.Instrs[0].Empty {
		b.Instrs = nil
	}

	instr := &Instruction{Op: name, Operands: ops}

	var domList []*Instruction
	if name == "adda" {
		domList = b.SearchList["load"]
	} else {
		domList = b.SearchList[name]
	}

	if !isEmpty {
		if checkDup {
			if identical := findIdenticalInstr(instr, domList); identical != nil {
				return InstrRef{Instr: identical}, change - 1
			}

			if name == "load" && len(b.Instrs) > 0 && b.Instrs[len(b.Instrs)-1].Op == "adda" {
				if ref, ok := ops[0].(InstrRef); ok && ref.Instr == b.Instrs[len(b.Instrs)-1] {
					addaBeforeLoad := b.Instrs[len(b.Instrs)-1]
					origOps := instr.Operands
					startCheckDup := true

					for killedAdda := range b.PossiblyKilledLoad {
						if killedAdda.sameOperands(addaBeforeLoad) {
							startCheckDup = false
							b.SearchList["load"] = []*Instruction{addaBeforeLoad, instr}
							b.PossiblyKilledLoad = make(map[*Instruction]bool)
						}
					}

					if startCheckDup {
						if prevIdenticalAdda := findIdenticalInstr(addaBeforeLoad, domList); prevIdenticalAdda != nil {
							instr.Operands = []Operand{InstrRef{Instr: prevIdenticalAdda}}
							if identical := findIdenticalInstr(instr, domList); identical != nil {
								b.Instrs = b.Instrs[:len(b.Instrs)-1]
								return InstrRef{Instr: identical}, change - 2
							}
							instr.Operands = origOps
						}
					}
				}
			}
		}

		if name == "store" && len(b.Instrs) > 0 && b.Instrs[len(b.Instrs)-1].Op == "adda" {
			b.JoinBlockKilled = append(b.JoinBlockKilled, b.Instrs[len(b.Instrs)-1])
			b.SearchList["load"] = nil
		} else if name == "adda" {
			b.SearchList["load"] = append(b.SearchList["load"], instr)
		} else {
			b.SearchList[name] = append(b.SearchList[name], instr)
		}
		instr.Num = instrIndex
	} else {
		instr.Empty = true
		change--
	}

	b.Instrs = append(b.Instrs, instr)
	return InstrRef{Instr: instr}, change
}
