package ir

import "testing"

func countOp(b *Block, op string) int {
	n := 0
	for _, instr := range b.Instrs {
		if instr.Op == op {
			n++
		}
	}
	return n
}

// TestCSEIdempotence: emitting the same side-effect-free arithmetic
// instruction twice back-to-back yields exactly one instruction and both
// call sites get an equal operand back.
func TestCSEIdempotence(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)

	a := fb.Emit("add", Immediate{Value: 1}, Immediate{Value: 2})
	b := fb.Emit("add", Immediate{Value: 1}, Immediate{Value: 2})

	if !a.Equal(b) {
		t.Fatalf("expected deduplicated operands to be equal: %v vs %v", a, b)
	}
	if got := countOp(fb.Current(), "add"); got != 1 {
		t.Fatalf("expected exactly one add instruction, got %d", got)
	}
}

// TestCSEDistinctOperandsNotMerged ensures CSE only fires on an identical
// operand list, not merely the same opcode.
func TestCSEDistinctOperandsNotMerged(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)

	fb.Emit("add", Immediate{Value: 1}, Immediate{Value: 2})
	fb.Emit("add", Immediate{Value: 1}, Immediate{Value: 3})

	if got := countOp(fb.Current(), "add"); got != 2 {
		t.Fatalf("expected two distinct add instructions, got %d", got)
	}
}

// TestStoreKillsLoadInSameBlock: a store through a matching adda forces
// any later load of the same address to be re-materialized.
func TestStoreKillsLoadInSameBlock(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)

	base := fb.EmitNoDup("alloca", Immediate{Value: 16})

	addr1 := fb.EmitNoDup("adda", Immediate{Value: 0}, base)
	load1 := fb.Emit("load", addr1)

	addr2 := fb.EmitNoDup("adda", Immediate{Value: 0}, base)
	fb.EmitNoDup("store", Immediate{Value: 99}, addr2)

	addr3 := fb.EmitNoDup("adda", Immediate{Value: 0}, base)
	load2 := fb.Emit("load", addr3)

	if load1.Equal(load2) {
		t.Fatal("load after a store to the same address must not reuse the prior load")
	}
	if got := countOp(fb.Current(), "load"); got != 2 {
		t.Fatalf("expected two distinct load instructions, got %d", got)
	}
}

// TestLoadCSEAcrossDominatingAdda checks that an adda/load pair is
// deduplicated when a second, textually distinct adda with identical
// operands is immediately followed by a load, with no intervening store.
func TestLoadCSEAcrossDominatingAdda(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)

	base := fb.EmitNoDup("alloca", Immediate{Value: 16})

	addr1 := fb.EmitNoDup("adda", Immediate{Value: 4}, base)
	load1 := fb.Emit("load", addr1)

	addr2 := fb.EmitNoDup("adda", Immediate{Value: 4}, base)
	load2 := fb.Emit("load", addr2)

	if !load1.Equal(load2) {
		t.Fatal("a repeated adda,load pair with no intervening store must be deduplicated")
	}
	if got := countOp(fb.Current(), "load"); got != 1 {
		t.Fatalf("expected the second adda,load pair to collapse away, got %d load instructions", got)
	}
}

// TestPossiblyKilledLoadDisablesCrossBlockCSE models the join-point kill
// propagation: a same-context child block that inherits a dominating
// adda,load pair marked as possibly killed must not dedup a repeat of that
// pair, even though the operand lists match.
func TestPossiblyKilledLoadDisablesCrossBlockCSE(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)

	base := fb.EmitNoDup("alloca", Immediate{Value: 16})
	addr1 := fb.EmitNoDup("adda", Immediate{Value: 8}, base)
	load1 := fb.Emit("load", addr1)

	addaInstr := addr1.(InstrRef).Instr

	child := fb.NewBlock(true)
	child.PossiblyKilledLoad[addaInstr] = true
	fb.SetCurrent(child)

	addr2 := fb.EmitNoDup("adda", Immediate{Value: 8}, base)
	load2 := fb.Emit("load", addr2)

	if load1.Equal(load2) {
		t.Fatal("a possibly-killed dominating adda,load pair must not be reused across the join")
	}
	if len(child.PossiblyKilledLoad) != 0 {
		t.Fatal("possibly_killed_load must be cleared once the kill has been accounted for")
	}
}

func TestDeclareRedeclarationIsError(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)
	if err := fb.DeclareLocalVar("x", nil); err != nil {
		t.Fatal(err)
	}
	if err := fb.DeclareLocalVar("x", nil); err == nil {
		t.Fatal("expected a redeclaration error")
	}
}

func TestGetUndeclaredVariableIsError(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)
	if _, _, err := fb.GetLocalVar("x"); err == nil {
		t.Fatal("expected an undeclared-variable error")
	}
}

func TestUninitializedReadYieldsTaggedImmediate(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)
	if err := fb.DeclareLocalVar("x", nil); err != nil {
		t.Fatal(err)
	}
	val, _, err := fb.GetLocalVar("x")
	if err != nil {
		t.Fatal(err)
	}
	imm, ok := val.(Immediate)
	if !ok || !imm.Uninit || imm.Name != "x" {
		t.Fatalf("expected an Uninit Immediate tagged \"x\", got %#v", val)
	}
}

func TestSameContextBlockDoesNotAliasParent(t *testing.T) {
	fn := NewFunction("f", nil, false)
	fb := NewFuncBuilder(fn)
	if err := fb.DeclareLocalVar("x", nil); err != nil {
		t.Fatal(err)
	}
	if err := fb.SetLocalVar("x", Immediate{Value: 1}); err != nil {
		t.Fatal(err)
	}
	parent := fb.Current()

	child := fb.NewBlock(true)
	fb.SetCurrent(child)
	if err := fb.SetLocalVar("x", Immediate{Value: 2}); err != nil {
		t.Fatal(err)
	}

	parentVal, _, _ := parent.LocalVar("x")
	if !parentVal.Equal(Immediate{Value: 1}) {
		t.Fatalf("mutating the child's locals must not alias the parent's, got %v", parentVal)
	}
}
