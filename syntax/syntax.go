// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package syntax provides a gaut parser and abstract syntax tree.
package syntax // import "go.gaut.net/syntax"

// A Node is a node in a gaut syntax tree.
type Node interface {
	// Span returns the start and end position of the node.
	Span() (start, end Position)
}

// Start returns the start position of the node.
func Start(n Node) Position {
	start, _ := n.Span()
	return start
}

// End returns the end position of the node.
func End(n Node) Position {
	_, end := n.Span()
	return end
}

// A Program is an ordered sequence of top-level declarations,
// the unit consumed by the checker, interpreter and C generator.
type Program struct {
	Path  string
	Decls []Decl
}

func (x *Program) Span() (start, end Position) {
	if len(x.Decls) == 0 {
		return
	}
	start, _ = x.Decls[0].Span()
	_, end = x.Decls[len(x.Decls)-1].Span()
	return start, end
}

// A Decl is a top-level declaration.
type Decl interface {
	Node
	decl()
}

func (*ImportDecl) decl() {}
func (*VarDecl) decl()    {}
func (*TypeDecl) decl()   {}
func (*FuncDecl) decl()   {}

// An ImportDecl names another module whose declarations are spliced
// in by the driver before checking: import io
type ImportDecl struct {
	Import Position
	Module *Ident
}

func (x *ImportDecl) Span() (start, end Position) {
	_, end = x.Module.Span()
	return x.Import, end
}

// A Binding declares a name with a type annotation and an initial value:
//	x: i32 = 1
//	mut p: Point = { x: 0, y: 0 }
// It is the common part of VarDecl and LetStmt.
type Binding struct {
	MutPos Position // position of "mut", if Mut
	Mut    bool
	Name   *Ident
	Type   TypeExpr
	Value  Expr
}

func (b *Binding) Span() (start, end Position) {
	if b.Mut {
		start = b.MutPos
	} else {
		start, _ = b.Name.Span()
	}
	_, end = b.Value.Span()
	return start, end
}

// A VarDecl is a top-level binding, with or without the "global" keyword.
// The two forms are equivalent for checking and evaluation.
type VarDecl struct {
	GlobalPos Position // position of "global", if Global
	Global    bool
	Binding
}

func (x *VarDecl) Span() (start, end Position) {
	start, end = x.Binding.Span()
	if x.Global {
		start = x.GlobalPos
	}
	return start, end
}

// A TypeDecl declares a type alias: type Point = { x: i32, y: i32 }
type TypeDecl struct {
	TypePos Position
	Name    *Ident
	Type    TypeExpr
}

func (x *TypeDecl) Span() (start, end Position) {
	_, end = x.Type.Span()
	return x.TypePos, end
}

// A FuncDecl declares a function: add(a: i32, b: i32) -> i32 = a + b
// The body is a single expression, usually a BlockExpr.
type FuncDecl struct {
	Name   *Ident
	Lparen Position
	Params []Param
	Rparen Position
	Ret    TypeExpr // or nil: inferred from the body
	Body   Expr
}

func (x *FuncDecl) Span() (start, end Position) {
	start, _ = x.Name.Span()
	_, end = x.Body.Span()
	return start, end
}

// A Param is one function parameter.
type Param struct {
	MutPos Position // position of "mut", if Mut
	Mut    bool
	Name   *Ident
	Type   TypeExpr
}

func (p *Param) Span() (start, end Position) {
	if p.Mut {
		start = p.MutPos
	} else {
		start, _ = p.Name.Span()
	}
	_, end = p.Type.Span()
	return start, end
}

// A Stmt is a gaut statement, which may appear only inside a block.
type Stmt interface {
	Node
	stmt()
}

func (*LetStmt) stmt()    {}
func (*AssignStmt) stmt() {}
func (*ExprStmt) stmt()   {}

// A LetStmt introduces a block-local binding.
type LetStmt struct {
	Binding
}

// An AssignStmt replaces a binding, or a record field reached by a
// dotted path: p.x = p.x + 1
type AssignStmt struct {
	Target *PathExpr
	EqPos  Position
	Value  Expr
}

func (x *AssignStmt) Span() (start, end Position) {
	start, _ = x.Target.Span()
	_, end = x.Value.Span()
	return start, end
}

// An ExprStmt is an expression evaluated for its effects (and, as the
// final statement of a block, for the block's value).
type ExprStmt struct {
	X Expr
}

func (x *ExprStmt) Span() (start, end Position) {
	return x.X.Span()
}

// An Expr is a gaut expression.
type Expr interface {
	Node
	expr()
}

func (*Literal) expr()    {}
func (*PathExpr) expr()   {}
func (*CopyExpr) expr()   {}
func (*RefExpr) expr()    {}
func (*CallExpr) expr()   {}
func (*IfExpr) expr()     {}
func (*BlockExpr) expr()  {}
func (*RecordExpr) expr() {}
func (*UnaryExpr) expr()  {}
func (*BinaryExpr) expr() {}

// An Ident represents an identifier.
type Ident struct {
	NamePos Position
	Name    string
}

func (x *Ident) Span() (start, end Position) {
	return x.NamePos, x.NamePos.add(x.Name)
}

// A Literal represents a literal int, string, bool, or unit value.
type Literal struct {
	Token    Token // = INT | STRING | TRUE | FALSE | UNIT
	TokenPos Position
	Raw      string      // uninterpreted text
	Value    interface{} // = int64 | string | bool | nil (unit)
}

func (x *Literal) Span() (start, end Position) {
	return x.TokenPos, x.TokenPos.add(x.Raw)
}

// A PathExpr is a dotted name: a binding, optionally followed by
// record-field selections: origin.x
type PathExpr struct {
	Names []*Ident // len >= 1
}

func (x *PathExpr) Span() (start, end Position) {
	start, _ = x.Names[0].Span()
	_, end = x.Names[len(x.Names)-1].Span()
	return start, end
}

// A CopyExpr reads its operand without consuming it: copy x
type CopyExpr struct {
	CopyPos Position
	X       Expr
}

func (x *CopyExpr) Span() (start, end Position) {
	_, end = x.X.Span()
	return x.CopyPos, end
}

// A RefExpr borrows a non-owning view of its operand: &origin
type RefExpr struct {
	AmpPos Position
	X      Expr
}

func (x *RefExpr) Span() (start, end Position) {
	_, end = x.X.Span()
	return x.AmpPos, end
}

// A CallExpr represents a function call: Fn(Args).
type CallExpr struct {
	Fn     *PathExpr
	Lparen Position
	Args   []Expr
	Rparen Position
}

func (x *CallExpr) Span() (start, end Position) {
	start, _ = x.Fn.Span()
	return start, x.Rparen.add(")")
}

// An IfExpr is a conditional expression: if Cond then Then else Else.
// Both branches are mandatory; exactly one is evaluated.
type IfExpr struct {
	IfPos Position
	Cond  Expr
	Then  Expr
	Else  Expr
}

func (x *IfExpr) Span() (start, end Position) {
	_, end = x.Else.Span()
	return x.IfPos, end
}

// A BlockExpr is a brace-delimited scope whose value is its tail
// expression, or unit if there is none.
type BlockExpr struct {
	Lbrace Position
	Stmts  []Stmt
	Tail   Expr // or nil: unit is implied
	Rbrace Position
}

func (x *BlockExpr) Span() (start, end Position) {
	return x.Lbrace, x.Rbrace.add("}")
}

// A RecordExpr constructs a record value: { x: 0, y: 0 }
type RecordExpr struct {
	Lbrace Position
	Fields []FieldInit
	Rbrace Position
}

func (x *RecordExpr) Span() (start, end Position) {
	return x.Lbrace, x.Rbrace.add("}")
}

// A FieldInit is one field of a RecordExpr.
type FieldInit struct {
	Name  *Ident
	Value Expr
}

// A UnaryExpr represents a unary expression: Op X. Op is MINUS or BANG.
type UnaryExpr struct {
	OpPos Position
	Op    Token
	X     Expr
}

func (x *UnaryExpr) Span() (start, end Position) {
	_, end = x.X.Span()
	return x.OpPos, end
}

// A BinaryExpr represents a binary expression: X Op Y.
type BinaryExpr struct {
	X     Expr
	OpPos Position
	Op    Token // = PLUS | MINUS | STAR | SLASH | LT | EQL | AND | OR
	Y     Expr
}

func (x *BinaryExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	_, end = x.Y.Span()
	return start, end
}

// A TypeExpr is a type annotation as written in source.
type TypeExpr interface {
	Node
	typeExpr()
}

func (*NamedType) typeExpr()  {}
func (*RefType) typeExpr()    {}
func (*RecordType) typeExpr() {}

// A NamedType names a builtin scalar or a declared alias: i32, Point.
type NamedType struct {
	Name *Ident
}

func (x *NamedType) Span() (start, end Position) {
	return x.Name.Span()
}

// A RefType is a non-owning reference type: &Point.
type RefType struct {
	AmpPos Position
	Elem   TypeExpr
}

func (x *RefType) Span() (start, end Position) {
	_, end = x.Elem.Span()
	return x.AmpPos, end
}

// A RecordType is a structural record type: { x: i32, y: i32 }.
type RecordType struct {
	Lbrace Position
	Fields []FieldType
	Rbrace Position
}

func (x *RecordType) Span() (start, end Position) {
	return x.Lbrace, x.Rbrace.add("}")
}

// A FieldType is one field of a RecordType.
type FieldType struct {
	Name *Ident
	Type TypeExpr
}

// PathString returns the dotted source form of a path: "p.x".
func (x *PathExpr) PathString() string {
	s := x.Names[0].Name
	for _, id := range x.Names[1:] {
		s += "." + id.Name
	}
	return s
}
