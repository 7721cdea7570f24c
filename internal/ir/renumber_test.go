package ir

import "testing"

// TestSSAUniqueness: every non-empty instruction has a unique positive
// number and every InstrRef resolves to an instruction that is actually
// present in the function.
func TestSSAUniqueness(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)
	a := fb.Emit("add", Immediate{Value: 1}, Immediate{Value: 2})
	fb.Emit("mul", a, Immediate{Value: 4})
	fn.Renumber()

	seen := make(map[int]bool)
	present := make(map[*Instruction]bool)
	for _, b := range fn.Blocks() {
		for _, instr := range b.Instrs {
			present[instr] = true
		}
	}
	for _, b := range fn.Blocks() {
		for _, instr := range b.Instrs {
			if instr.Empty {
				continue
			}
			if instr.Num <= 0 {
				t.Fatalf("expected a positive instruction number, got %d", instr.Num)
			}
			if seen[instr.Num] {
				t.Fatalf("duplicate instruction number %d", instr.Num)
			}
			seen[instr.Num] = true
			for _, op := range instr.Operands {
				if ref, ok := op.(InstrRef); ok && !present[ref.Instr] {
					t.Fatalf("instruction reference points outside the function")
				}
			}
		}
	}
}

func TestRenumberClosesGapsAndSkipsEmpty(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)
	// Folds away, leaving a gap in the numbering.
	fb.Emit("add", Immediate{Value: 1}, Immediate{Value: 2})
	kept := fb.EmitNoDup("alloca", Immediate{Value: 4})
	fb.EmitEmpty()
	fb.EmitNoDup("return", kept)

	fn.Optimize()
	fn.Renumber()

	var nums []int
	for _, instr := range fb.Current().Instrs {
		if instr.Empty {
			continue
		}
		nums = append(nums, instr.Num)
	}
	for i, n := range nums {
		if n != i+1 {
			t.Fatalf("expected dense numbering starting at 1, got %v", nums)
		}
	}
}

func TestRenumberBlockLabelsAreDense(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)
	b1 := fb.NewBlock(false)
	fb.Current().AddChild(EdgeThen, b1)
	b2 := fb.NewBlock(false)
	b1.AddChild(EdgeJoin, b2)

	fn.Renumber()

	labels := map[int]bool{}
	for _, b := range fn.Blocks() {
		labels[b.Label] = true
	}
	for i := 1; i <= len(fn.Blocks()); i++ {
		if !labels[i] {
			t.Fatalf("expected dense block labels 1..N, missing %d in %v", i, labels)
		}
	}
}
