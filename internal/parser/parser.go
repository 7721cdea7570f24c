// Package parser implements the recursive-descent parser for SMPL,
// turning a token stream into an *ast.Computation ready for lowering.
package parser

import (
	"smplc/internal/ast"
	"smplc/internal/diag"
	"smplc/internal/lexer"
	"smplc/token"
)

// Parser walks a pre-lexed token slice with one token of lookahead; every
// production decides its path from a single peeked token kind.
type Parser struct {
	filename string
	source   string
	tokens   []token.Token
	pos      int
}

// New lexes source in full and returns a Parser ready to parse it, or the
// first lex error encountered (no token matches at some byte offset).
func New(filename, source string) (*Parser, error) {
	tokens := lexer.New(source).Tokens()
	for _, tok := range tokens {
		if tok.Kind == token.ILLEGAL {
			return nil, diag.New(diag.Lex, filename, source, tok.Offset, "no token matches %q", tok.Literal)
		}
	}
	return &Parser{filename: filename, source: source, tokens: tokens}, nil
}

func (p *Parser) peek() token.Token { return p.tokens[p.pos] }

func (p *Parser) peekKind() token.Kind { return p.tokens[p.pos].Kind }

func (p *Parser) errf(tok token.Token, format string, args ...interface{}) *diag.Error {
	return diag.New(diag.Parse, p.filename, p.source, tok.Offset, format, args...)
}

// consume requires the current token to have kind k, returning it and
// advancing past it, or a fatal parse error naming what was expected.
func (p *Parser) consume(k token.Kind) (token.Token, error) {
	tok := p.peek()
	if tok.Kind != k {
		return tok, p.errf(tok, "expected %s, found %s %q", k, tok.Kind, tok.Literal)
	}
	p.pos++
	return tok, nil
}

func (p *Parser) in(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.peekKind() == k {
			return true
		}
	}
	return false
}

// Parse runs the full `computation` production and returns the resulting
// AST, or the first fatal parse error encountered. Lex errors are reported
// by New, semantic errors by lowering the AST.
func (p *Parser) Parse() (*ast.Computation, error) {
	return p.computation()
}

func (p *Parser) ident() (*ast.Ident, error) {
	tok, err := p.consume(token.IDENT)
	if err != nil {
		return nil, err
	}
	return &ast.Ident{Name: tok.Literal, Pos: ast.Position{Offset: tok.Offset}}, nil
}

func (p *Parser) number() (*ast.Number, error) {
	tok, err := p.consume(token.NUMBER)
	if err != nil {
		return nil, err
	}
	val := 0
	for _, c := range tok.Literal {
		val = val*10 + int(c-'0')
	}
	return &ast.Number{Value: val, Pos: ast.Position{Offset: tok.Offset}}, nil
}

// designator = ident {"[" expression "]"}
func (p *Parser) designator() (ast.Designator, error) {
	id, err := p.ident()
	if err != nil {
		return nil, err
	}
	var indices []ast.Expr
	for p.peekKind() == token.LBRACKET {
		p.pos++
		idx, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RBRACKET); err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	if indices == nil {
		return id, nil
	}
	return &ast.ArrayAccess{Ident: id, Indices: indices}, nil
}

// factor = designator | number | "(" expression ")" | funcCall
func (p *Parser) factor() (ast.Expr, error) {
	switch p.peekKind() {
	case token.IDENT:
		return p.designator()
	case token.NUMBER:
		return p.number()
	case token.CALL:
		return p.funcCall()
	case token.LPAREN:
		p.pos++
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	default:
		tok := p.peek()
		return nil, p.errf(tok, "expected a factor, found %s %q", tok.Kind, tok.Literal)
	}
}

// term = factor {("*"|"/") factor}
func (p *Parser) term() (ast.Expr, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.in(token.ASTERISK, token.SLASH) {
		opKind := p.peekKind()
		p.pos++
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: token.OpTable[opKind], Left: left, Right: right}
	}
	return left, nil
}

// expression = term {("+"|"-") term}
func (p *Parser) expression() (ast.Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.in(token.PLUS, token.MINUS) {
		opKind := p.peekKind()
		p.pos++
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: token.OpTable[opKind], Left: left, Right: right}
	}
	return left, nil
}

var relOpKinds = []token.Kind{token.OP_LT, token.OP_GT, token.OP_EQ, token.OP_NEQ, token.OP_GE, token.OP_LE}

// relation = expression relOp expression
func (p *Parser) relation() (*ast.BinaryExpr, error) {
	left, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.in(relOpKinds...) {
		tok := p.peek()
		return nil, p.errf(tok, "expected a relational operator, found %s %q", tok.Kind, tok.Literal)
	}
	opKind := p.peekKind()
	p.pos++
	right, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpr{Op: "cmp", BranchOp: token.BranchOpMap[opKind], Left: left, Right: right}, nil
}

// assignment = "let" designator "<-" expression
func (p *Parser) assignment() (*ast.Assignment, error) {
	if _, err := p.consume(token.LET); err != nil {
		return nil, err
	}
	target, err := p.designator()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.ASSIGN); err != nil {
		return nil, err
	}
	val, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.Assignment{Target: target, Value: val}, nil
}

var exprStartKinds = []token.Kind{token.IDENT, token.NUMBER, token.LPAREN, token.CALL}

// funcCall = "call" ident ["(" [expression {"," expression}] ")"]
func (p *Parser) funcCall() (*ast.FuncCallExpr, error) {
	if _, err := p.consume(token.CALL); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	var args []ast.Expr
	if p.peekKind() == token.LPAREN {
		p.pos++
		if p.in(exprStartKinds...) {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			for p.peekKind() == token.COMMA {
				p.pos++
				arg, err := p.expression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
		}
		if _, err := p.consume(token.RPAREN); err != nil {
			return nil, err
		}
	}
	return &ast.FuncCallExpr{Name: name.Name, Args: args}, nil
}

// ifStatement = "if" relation "then" statSequence ["else" statSequence] "fi"
func (p *Parser) ifStat() (*ast.IfStmt, error) {
	if _, err := p.consume(token.IF); err != nil {
		return nil, err
	}
	cond, err := p.relation()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.THEN); err != nil {
		return nil, err
	}
	thenStmts, err := p.statSequence()
	if err != nil {
		return nil, err
	}
	var elseStmts []ast.Stmt
	if p.peekKind() == token.ELSE {
		p.pos++
		elseStmts, err = p.statSequence()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.FI); err != nil {
		return nil, err
	}
	return &ast.IfStmt{Cond: cond, Then: thenStmts, Else: elseStmts}, nil
}

// whileStatement = "while" relation "do" statSequence "od"
func (p *Parser) whileStat() (*ast.WhileStmt, error) {
	if _, err := p.consume(token.WHILE); err != nil {
		return nil, err
	}
	cond, err := p.relation()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.DO); err != nil {
		return nil, err
	}
	body, err := p.statSequence()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.OD); err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body}, nil
}

// returnStatement = "return" [expression]
func (p *Parser) returnStat() (*ast.ReturnStmt, error) {
	if _, err := p.consume(token.RETURN); err != nil {
		return nil, err
	}
	if !p.in(exprStartKinds...) {
		return &ast.ReturnStmt{}, nil
	}
	val, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Value: val}, nil
}

var stmtStartKinds = []token.Kind{token.LET, token.CALL, token.IF, token.WHILE, token.RETURN}

// statement = assignment | funcCall | ifStatement | whileStatement | returnStatement
func (p *Parser) statement() (ast.Stmt, error) {
	switch p.peekKind() {
	case token.LET:
		return p.assignment()
	case token.CALL:
		return p.funcCall()
	case token.IF:
		return p.ifStat()
	case token.WHILE:
		return p.whileStat()
	case token.RETURN:
		return p.returnStat()
	default:
		tok := p.peek()
		return nil, p.errf(tok, "expected a statement, found %s %q", tok.Kind, tok.Literal)
	}
}

// statSequence = statement {";" statement} [";"]
func (p *Parser) statSequence() ([]ast.Stmt, error) {
	first, err := p.statement()
	if err != nil {
		return nil, err
	}
	stmts := []ast.Stmt{first}
	for p.peekKind() == token.SEMICOLON {
		p.pos++
		if !p.in(stmtStartKinds...) {
			break
		}
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	return stmts, nil
}

// typeDecl = "var" | "array" "[" number "]" {"[" number "]"}
func (p *Parser) typeDecl() ([]int, error) {
	if p.peekKind() == token.VAR {
		p.pos++
		return nil, nil
	}
	if _, err := p.consume(token.ARRAY); err != nil {
		return nil, err
	}
	var dims []int
	if _, err := p.consume(token.LBRACKET); err != nil {
		return nil, err
	}
	n, err := p.number()
	if err != nil {
		return nil, err
	}
	dims = append(dims, n.Value)
	if _, err := p.consume(token.RBRACKET); err != nil {
		return nil, err
	}
	for p.peekKind() == token.LBRACKET {
		p.pos++
		n, err := p.number()
		if err != nil {
			return nil, err
		}
		dims = append(dims, n.Value)
		if _, err := p.consume(token.RBRACKET); err != nil {
			return nil, err
		}
	}
	return dims, nil
}

// varDecl = typeDecl ident {"," ident} ";"
func (p *Parser) varDecl() ([]*ast.VarDecl, error) {
	dims, err := p.typeDecl()
	if err != nil {
		return nil, err
	}
	id, err := p.ident()
	if err != nil {
		return nil, err
	}
	decls := []*ast.VarDecl{{Name: id.Name, Dims: dims}}
	for p.peekKind() == token.COMMA {
		p.pos++
		id, err := p.ident()
		if err != nil {
			return nil, err
		}
		decls = append(decls, &ast.VarDecl{Name: id.Name, Dims: dims})
	}
	if _, err := p.consume(token.SEMICOLON); err != nil {
		return nil, err
	}
	return decls, nil
}

// formalParam = "(" [ident {"," ident}] ")"
func (p *Parser) formalParam() ([]string, error) {
	if _, err := p.consume(token.LPAREN); err != nil {
		return nil, err
	}
	var names []string
	if p.peekKind() == token.IDENT {
		id, err := p.ident()
		if err != nil {
			return nil, err
		}
		names = append(names, id.Name)
		for p.peekKind() == token.COMMA {
			p.pos++
			id, err := p.ident()
			if err != nil {
				return nil, err
			}
			names = append(names, id.Name)
		}
	}
	if _, err := p.consume(token.RPAREN); err != nil {
		return nil, err
	}
	return names, nil
}

var varStartKinds = []token.Kind{token.VAR, token.ARRAY}

// funcBody = {varDecl} "{" [statSequence] "}"
func (p *Parser) funcBody() ([]*ast.VarDecl, []ast.Stmt, error) {
	var vars []*ast.VarDecl
	for p.in(varStartKinds...) {
		decls, err := p.varDecl()
		if err != nil {
			return nil, nil, err
		}
		vars = append(vars, decls...)
	}
	if _, err := p.consume(token.LBRACE); err != nil {
		return nil, nil, err
	}
	var stmts []ast.Stmt
	if p.in(stmtStartKinds...) {
		var err error
		stmts, err = p.statSequence()
		if err != nil {
			return nil, nil, err
		}
	}
	if _, err := p.consume(token.RBRACE); err != nil {
		return nil, nil, err
	}
	return vars, stmts, nil
}

// funcDecl = ["void"] "function" ident formalParam ";" funcBody ";"
func (p *Parser) funcDecl() (*ast.FuncDecl, error) {
	isVoid := false
	if p.peekKind() == token.VOID {
		p.pos++
		isVoid = true
	}
	if _, err := p.consume(token.FUNCTION); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	params, err := p.formalParam()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON); err != nil {
		return nil, err
	}
	vars, stmts, err := p.funcBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.FuncDecl{Name: name.Name, Params: params, IsVoid: isVoid, Vars: vars, Stmts: stmts}, nil
}

var funcStartKinds = []token.Kind{token.VOID, token.FUNCTION}

// computation = "main" {varDecl} {funcDecl} "{" statSequence "}" "."
func (p *Parser) computation() (*ast.Computation, error) {
	if _, err := p.consume(token.MAIN); err != nil {
		return nil, err
	}
	var vars []*ast.VarDecl
	for p.in(varStartKinds...) {
		decls, err := p.varDecl()
		if err != nil {
			return nil, err
		}
		vars = append(vars, decls...)
	}
	var funcs []*ast.FuncDecl
	for p.in(funcStartKinds...) {
		fd, err := p.funcDecl()
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, fd)
	}
	if _, err := p.consume(token.LBRACE); err != nil {
		return nil, err
	}
	stmts, err := p.statSequence()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RBRACE); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.PERIOD); err != nil {
		return nil, err
	}
	return &ast.Computation{VarDecls: vars, FuncDecls: funcs, Stmts: stmts}, nil
}
