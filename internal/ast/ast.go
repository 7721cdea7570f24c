// Package ast holds the SMPL syntax tree produced by internal/parser and
// the lowering ("compile") methods that walk it into an *ir.Program.
package ast

import (
	"smplc/internal/ir"
	"smplc/token"
)

// Position is a byte offset into the source file a node was parsed from.
// Diagnostics carry no location information beyond this.
type Position struct {
	Offset int
}

// Expr is any node that yields an ir.Operand when lowered.
type Expr interface {
	CompileExpr(fb *ir.FuncBuilder) (ir.Operand, error)
}

// Stmt is any node that lowers into instructions with no result value.
type Stmt interface {
	CompileStmt(fb *ir.FuncBuilder) error
}

// Ident is both an expression (a variable read) and, paired with no
// indices, a designator.
type Ident struct {
	Name string
	Pos  Position
}

func (i *Ident) CompileExpr(fb *ir.FuncBuilder) (ir.Operand, error) {
	val, _, err := fb.GetLocalVar(i.Name)
	return val, err
}

// Number is an integer literal.
type Number struct {
	Value int
	Pos   Position
}

func (n *Number) CompileExpr(fb *ir.FuncBuilder) (ir.Operand, error) {
	return ir.Immediate{Value: n.Value}, nil
}

// ArrayAccess is a designator with one or more index expressions:
// `a[i0][i1]...` or the parser's flattened `a[i0,i1,...]` form.
type ArrayAccess struct {
	Ident   *Ident
	Indices []Expr
}

// CompileAddr computes the element's effective address: a chain of
// CSE-eligible mul/add instructions folding the indices against the
// array's strides, followed by a never-deduplicated `adda`.
func (a *ArrayAccess) CompileAddr(fb *ir.FuncBuilder) (ir.Operand, error) {
	base, strides, err := fb.GetLocalVar(a.Ident.Name)
	if err != nil {
		return nil, err
	}
	var offset ir.Operand = ir.Immediate{Value: 0}
	for i, idxExpr := range a.Indices {
		idxOp, err := idxExpr.CompileExpr(fb)
		if err != nil {
			return nil, err
		}
		stride := 0
		if i < len(strides) {
			stride = strides[i]
		}
		term := fb.Emit("mul", idxOp, ir.Immediate{Value: stride})
		offset = fb.Emit("add", offset, term)
	}
	offset = fb.Emit("mul", offset, ir.Immediate{Value: token.IntegerSize})
	return fb.EmitNoDup("adda", offset, base), nil
}

func (a *ArrayAccess) CompileExpr(fb *ir.FuncBuilder) (ir.Operand, error) {
	addr, err := a.CompileAddr(fb)
	if err != nil {
		return nil, err
	}
	return fb.Emit("load", addr), nil
}

// Designator is either *Ident or *ArrayAccess, the two lvalue shapes.
type Designator interface {
	Expr
}

// BinaryExpr is an arithmetic or relational operator application. Op is
// the IR opcode this operator lowers to ("add", "cmp", ...); BranchOp is
// the inverse branch opcode used when this expression heads a
// relation (empty for pure arithmetic).
type BinaryExpr struct {
	Op       string
	BranchOp string
	Left     Expr
	Right    Expr
}

func (b *BinaryExpr) CompileExpr(fb *ir.FuncBuilder) (ir.Operand, error) {
	left, err := b.Left.CompileExpr(fb)
	if err != nil {
		return nil, err
	}
	right, err := b.Right.CompileExpr(fb)
	if err != nil {
		return nil, err
	}
	return fb.Emit(b.Op, left, right), nil
}

// CompileCondBranch lowers the relation and emits the inverse conditional
// branch targeting elseOrExit, used by if/while heads.
func (b *BinaryExpr) CompileCondBranch(fb *ir.FuncBuilder, elseOrExit *ir.Block) error {
	cond, err := b.CompileExpr(fb)
	if err != nil {
		return err
	}
	fb.EmitBranch(b.BranchOp, elseOrExit, cond)
	return nil
}

// Assignment is `let <designator> <- <expr>`.
type Assignment struct {
	Target Designator
	Value  Expr
}

func (a *Assignment) CompileStmt(fb *ir.FuncBuilder) error {
	val, err := a.Value.CompileExpr(fb)
	if err != nil {
		return err
	}
	switch t := a.Target.(type) {
	case *Ident:
		return fb.SetLocalVar(t.Name, val)
	case *ArrayAccess:
		addr, err := t.CompileAddr(fb)
		if err != nil {
			return err
		}
		fb.EmitNoDup("store", val, addr)
		return nil
	default:
		panic("ast: unknown designator kind")
	}
}

// FuncCallExpr is `call name(args...)`, usable both as a statement and an
// expression (its result is simply discarded as a statement).
type FuncCallExpr struct {
	Name string
	Args []Expr
}

func (c *FuncCallExpr) compileArgs(fb *ir.FuncBuilder) ([]ir.Operand, error) {
	ops := make([]ir.Operand, 0, len(c.Args))
	for _, a := range c.Args {
		op, err := a.CompileExpr(fb)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (c *FuncCallExpr) CompileExpr(fb *ir.FuncBuilder) (ir.Operand, error) {
	args, err := c.compileArgs(fb)
	if err != nil {
		return nil, err
	}
	if opcode, ok := token.BuiltinFuncs[c.Name]; ok {
		return fb.EmitNoDup(opcode, args...), nil
	}
	return fb.EmitCall(c.Name, args...), nil
}

func (c *FuncCallExpr) CompileStmt(fb *ir.FuncBuilder) error {
	_, err := c.CompileExpr(fb)
	return err
}

// VarDecl declares a scalar (Dims == nil) or array variable.
type VarDecl struct {
	Name string
	Dims []int
}

func (v *VarDecl) compile(fb *ir.FuncBuilder) error {
	if len(v.Dims) == 0 {
		return fb.DeclareLocalVar(v.Name, nil)
	}
	strides := make([]int, len(v.Dims))
	size := 1
	for i := len(v.Dims) - 1; i >= 0; i-- {
		strides[i] = size
		size *= v.Dims[i]
	}
	if err := fb.DeclareLocalVar(v.Name, strides); err != nil {
		return err
	}
	base := fb.EmitNoDup("alloca", ir.Immediate{Value: size * token.IntegerSize})
	return fb.SetLocalVar(v.Name, base)
}

// IfStmt is `if relation then ... [else ...] fi`. Lowering always produces
// three fresh blocks (then, else, join) regardless of branch emptiness; an
// omitted else still gets its own block.
type IfStmt struct {
	Cond *BinaryExpr
	Then []Stmt
	Else []Stmt
}

func (s *IfStmt) CompileStmt(fb *ir.FuncBuilder) error {
	thenBlock := fb.NewBlock(true)
	elseBlock := fb.NewBlock(true)
	joinBlock := fb.NewBlock(true)

	cur := fb.Current()
	cur.AddChild(ir.EdgeThen, thenBlock)
	cur.AddChild(ir.EdgeElse, elseBlock)
	cur.Dominates = append(cur.Dominates, thenBlock, elseBlock, joinBlock)

	if err := s.Cond.CompileCondBranch(fb, elseBlock); err != nil {
		return err
	}

	fb.SetCurrent(thenBlock)
	for _, st := range s.Then {
		if err := st.CompileStmt(fb); err != nil {
			return err
		}
	}
	if len(fb.Current().Instrs) == 0 {
		fb.EmitEmpty()
	}
	fb.EmitBranch("bra", joinBlock, nil)
	fb.Current().AddChild(ir.EdgeJoin, joinBlock)
	var killed []*ir.Instruction
	killed = append(killed, fb.Current().JoinBlockKilled...)
	thenEnd := fb.Current()

	fb.SetCurrent(elseBlock)
	for _, st := range s.Else {
		if err := st.CompileStmt(fb); err != nil {
			return err
		}
	}
	if len(fb.Current().Instrs) == 0 {
		fb.EmitEmpty()
	}
	fb.EmitBranch("bra", joinBlock, nil)
	fb.Current().AddChild(ir.EdgeJoin, joinBlock)
	killed = append(killed, fb.Current().JoinBlockKilled...)
	elseEnd := fb.Current()

	fb.SetCurrent(joinBlock)
	for _, k := range killed {
		joinBlock.PossiblyKilledLoad[k] = true
	}
	for _, name := range joinBlock.DeclaredNames() {
		a, _, err := thenEnd.LocalVar(name)
		if err != nil {
			return err
		}
		b, _, err := elseEnd.LocalVar(name)
		if err != nil {
			return err
		}
		if a.Equal(b) {
			continue
		}
		phi := fb.EmitNoDup("phi", a, b)
		if err := fb.SetLocalVar(name, phi); err != nil {
			return err
		}
	}
	return nil
}

// WhileStmt is `while relation do ... od`, lowered in two passes: the body
// is first compiled into a throwaway block to discover which variables it
// rewrites (the head's phis cannot be named before their body-side
// definitions exist), then recompiled for real against the head's
// phi-updated bindings.
type WhileStmt struct {
	Cond *BinaryExpr
	Body []Stmt
}

func (s *WhileStmt) CompileStmt(fb *ir.FuncBuilder) error {
	cur := fb.Current()
	head := fb.NewBlock(true)
	cur.AddChild(ir.EdgeHead, head)
	cur.Dominates = append(cur.Dominates, head)

	snapshot := fb.InstrCounter()
	tmpBody := fb.NewTempBlock()
	fb.SetCurrent(tmpBody)
	for _, st := range s.Body {
		if err := st.CompileStmt(fb); err != nil {
			return err
		}
	}
	tmpBodyEnd := fb.Current()

	fb.SetCurrent(head)
	for _, name := range head.DeclaredNames() {
		a, _, err := head.LocalVar(name)
		if err != nil {
			return err
		}
		b, _, err := tmpBodyEnd.LocalVar(name)
		if err != nil {
			return err
		}
		if !a.Equal(b) {
			phi := fb.EmitNoDup("phi", a, b)
			if err := fb.SetLocalVar(name, phi); err != nil {
				return err
			}
		}
	}

	exit := fb.NewBlock(true)
	if err := s.Cond.CompileCondBranch(fb, exit); err != nil {
		return err
	}

	postHeadCounter := fb.InstrCounter()
	body := fb.NewBlock(true)
	fb.SetInstrCounter(snapshot)
	fb.SetCurrent(body)
	for _, st := range s.Body {
		if err := st.CompileStmt(fb); err != nil {
			return err
		}
	}
	bodyEnd := fb.Current()
	var killed []*ir.Instruction
	killed = append(killed, bodyEnd.JoinBlockKilled...)
	fb.SetInstrCounter(postHeadCounter)
	fb.EmitBranch("bra", head, nil)

	head.AddChild(ir.EdgeBody, body)
	bodyEnd.AddChild(ir.EdgeHead, head)
	head.AddChild(ir.EdgeExit, exit)
	head.Dominates = append(head.Dominates, body, exit)

	fb.SetCurrent(exit)
	for _, k := range killed {
		exit.PossiblyKilledLoad[k] = true
	}
	if len(body.Instrs) == 0 {
		fb.EmitEmpty()
	}
	return nil
}

// ReturnStmt is `return [expr]`.
type ReturnStmt struct {
	Value Expr // nil for a value-less return
}

func (s *ReturnStmt) CompileStmt(fb *ir.FuncBuilder) error {
	if s.Value == nil {
		fb.EmitNoDup("return")
		return nil
	}
	val, err := s.Value.CompileExpr(fb)
	if err != nil {
		return err
	}
	fb.EmitNoDup("return", val)
	return nil
}

// FuncDecl is a user function declaration.
type FuncDecl struct {
	Name   string
	Params []string
	IsVoid bool
	Vars   []*VarDecl
	Stmts  []Stmt
}

func (f *FuncDecl) compile() (*ir.Function, error) {
	fn := ir.NewFunction(f.Name, f.Params, f.IsVoid)
	fb := ir.NewFuncBuilder(fn)
	for _, p := range f.Params {
		if err := fb.DeclareLocalVar(p, nil); err != nil {
			return nil, err
		}
		if err := fb.SetLocalVar(p, ir.Argument{Name: p}); err != nil {
			return nil, err
		}
	}
	for _, v := range f.Vars {
		if err := v.compile(fb); err != nil {
			return nil, err
		}
	}
	for _, st := range f.Stmts {
		if err := st.CompileStmt(fb); err != nil {
			return nil, err
		}
	}
	return fn, nil
}

// Computation is the whole program: `main {varDecl} {funcDecl} { stats } .`
type Computation struct {
	VarDecls  []*VarDecl
	FuncDecls []*FuncDecl
	Stmts     []Stmt
}

// Compile lowers the computation into an *ir.Program whose first function
// is the anonymous main body, followed by user functions in source order.
func (c *Computation) Compile() (*ir.Program, error) {
	prog := &ir.Program{}

	mainFn := ir.NewFunction("main", nil, false)
	mfb := ir.NewFuncBuilder(mainFn)

	for _, fd := range c.FuncDecls {
		fn, err := fd.compile()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}

	for _, v := range c.VarDecls {
		if err := v.compile(mfb); err != nil {
			return nil, err
		}
	}
	for _, st := range c.Stmts {
		if err := st.CompileStmt(mfb); err != nil {
			return nil, err
		}
	}
	mfb.EmitNoDup("end")

	prog.Functions = append([]*ir.Function{mainFn}, prog.Functions...)
	return prog, nil
}
