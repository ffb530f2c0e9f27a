// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

import "fmt"

// Parse parses the source text of a single gaut module and returns its
// Program. The filename is used only for error positions.
func Parse(filename string, src string) (*Program, error) {
	tokens, err := scan(filename, src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	prog := &Program{Path: filename}
	for !p.at(EOF) {
		decl, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, decl)
	}
	return prog, nil
}

// ParseExpr parses a single expression, for use by the REPL.
// The input must be consumed entirely.
func ParseExpr(filename string, src string) (Expr, error) {
	tokens, err := scan(filename, src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.at(EOF) {
		return nil, p.errorf("expression", p.peek())
	}
	return e, nil
}

type parser struct {
	tokens []tokenValue // ends with EOF
	pos    int
}

func (p *parser) peek() tokenValue {
	return p.tokens[p.pos]
}

func (p *parser) at(kind Token) bool {
	return p.peek().kind == kind
}

func (p *parser) atNext(kind Token) bool {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1].kind == kind
	}
	return false
}

func (p *parser) advance() tokenValue {
	tv := p.tokens[p.pos]
	if tv.kind != EOF {
		p.pos++
	}
	return tv
}

// match consumes and reports the next token if it has the given kind.
func (p *parser) match(kind Token) bool {
	if p.at(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) errorf(expected string, found tokenValue) error {
	what := found.kind.String()
	switch found.kind {
	case IDENT, INT, STRING:
		what = fmt.Sprintf("%s %q", what, found.raw)
	}
	return Error{Pos: found.pos, Msg: fmt.Sprintf("expected %s, found %s", expected, what)}
}

func (p *parser) expect(kind Token, context string) (tokenValue, error) {
	if p.at(kind) {
		return p.advance(), nil
	}
	return tokenValue{}, p.errorf(fmt.Sprintf("%q %s", tokenNames[kind], context), p.peek())
}

func (p *parser) expectIdent(context string) (*Ident, error) {
	if p.at(IDENT) {
		tv := p.advance()
		return &Ident{NamePos: tv.pos, Name: tv.string}, nil
	}
	return nil, p.errorf(context, p.peek())
}

func (p *parser) parseDecl() (Decl, error) {
	if p.at(IMPORT) {
		imp := p.advance()
		mod, err := p.expectIdent("module name")
		if err != nil {
			return nil, err
		}
		return &ImportDecl{Import: imp.pos, Module: mod}, nil
	}

	if p.at(GLOBAL) {
		kw := p.advance()
		b, err := p.parseBinding()
		if err != nil {
			return nil, err
		}
		return &VarDecl{GlobalPos: kw.pos, Global: true, Binding: b}, nil
	}

	if p.at(TYPE) {
		kw := p.advance()
		name, err := p.expectIdent("type name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(EQ, "after type name"); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &TypeDecl{TypePos: kw.pos, Name: name, Type: ty}, nil
	}

	// Function vs. top-level let: a function name is followed by '('.
	if p.at(IDENT) && p.atNext(LPAREN) {
		return p.parseFuncDecl()
	}

	b, err := p.parseBinding()
	if err != nil {
		return nil, err
	}
	return &VarDecl{Binding: b}, nil
}

func (p *parser) parseFuncDecl() (Decl, error) {
	name, err := p.expectIdent("function name")
	if err != nil {
		return nil, err
	}
	lparen, err := p.expect(LPAREN, "after function name")
	if err != nil {
		return nil, err
	}
	var params []Param
	if !p.at(RPAREN) {
		params, err = p.parseParams()
		if err != nil {
			return nil, err
		}
	}
	rparen, err := p.expect(RPAREN, "after parameters")
	if err != nil {
		return nil, err
	}
	var ret TypeExpr
	if p.match(ARROW) {
		ret, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(EQ, "before function body"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &FuncDecl{
		Name:   name,
		Lparen: lparen.pos,
		Params: params,
		Rparen: rparen.pos,
		Ret:    ret,
		Body:   body,
	}, nil
}

func (p *parser) parseParams() ([]Param, error) {
	var params []Param
	for {
		var param Param
		if p.at(MUT) {
			kw := p.advance()
			param.MutPos, param.Mut = kw.pos, true
		}
		name, err := p.expectIdent("parameter name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COLON, "after parameter name"); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		param.Name, param.Type = name, ty
		params = append(params, param)
		if !p.match(COMMA) {
			return params, nil
		}
	}
}

func (p *parser) parseBinding() (Binding, error) {
	var b Binding
	if p.at(MUT) {
		kw := p.advance()
		b.MutPos, b.Mut = kw.pos, true
	}
	name, err := p.expectIdent("binding name")
	if err != nil {
		return Binding{}, err
	}
	if _, err := p.expect(COLON, "after binding name"); err != nil {
		return Binding{}, err
	}
	ty, err := p.parseType()
	if err != nil {
		return Binding{}, err
	}
	if _, err := p.expect(EQ, "after binding type"); err != nil {
		return Binding{}, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return Binding{}, err
	}
	b.Name, b.Type, b.Value = name, ty, value
	return b, nil
}

func (p *parser) parseType() (TypeExpr, error) {
	if p.at(AMP) {
		amp := p.advance()
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &RefType{AmpPos: amp.pos, Elem: elem}, nil
	}

	if p.at(LBRACE) {
		lbrace := p.advance()
		rec := &RecordType{Lbrace: lbrace.pos}
		if p.at(RBRACE) {
			rec.Rbrace = p.advance().pos
			return rec, nil
		}
		for {
			name, err := p.expectIdent("field name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(COLON, "after field name"); err != nil {
				return nil, err
			}
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			rec.Fields = append(rec.Fields, FieldType{Name: name, Type: ty})
			if p.match(COMMA) {
				continue
			}
			rbrace, err := p.expect(RBRACE, "to close record type")
			if err != nil {
				return nil, err
			}
			rec.Rbrace = rbrace.pos
			return rec, nil
		}
	}

	name, err := p.expectIdent("type")
	if err != nil {
		return nil, err
	}
	return &NamedType{Name: name}, nil
}

// parseBlockRest parses the remainder of a block whose '{' has been consumed.
// The final expression statement before '}' becomes the block's tail value.
func (p *parser) parseBlockRest(lbrace Position) (*BlockExpr, error) {
	block := &BlockExpr{Lbrace: lbrace}
	for {
		if p.at(RBRACE) {
			block.Rbrace = p.advance().pos
			return block, nil
		}
		if p.at(EOF) {
			return nil, Error{Pos: p.peek().pos, Msg: "unexpected end of file in block"}
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if p.at(RBRACE) {
			if es, ok := stmt.(*ExprStmt); ok {
				block.Tail = es.X
			} else {
				block.Stmts = append(block.Stmts, stmt)
			}
			block.Rbrace = p.advance().pos
			return block, nil
		}
		block.Stmts = append(block.Stmts, stmt)
	}
}

func (p *parser) parseStmt() (Stmt, error) {
	// A binding starts with "mut", or with an identifier followed by ':'.
	if p.at(MUT) || p.at(IDENT) && p.atNext(COLON) {
		b, err := p.parseBinding()
		if err != nil {
			return nil, err
		}
		return &LetStmt{Binding: b}, nil
	}

	// Assignment: Path '=' Expr (but '==' is a comparison).
	if p.at(IDENT) {
		save := p.pos
		path, err := p.parsePath()
		if err == nil && p.at(EQ) {
			eq := p.advance()
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &AssignStmt{Target: path, EqPos: eq.pos, Value: value}, nil
		}
		p.pos = save // rewind: not an assignment
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{X: x}, nil
}

func (p *parser) parsePath() (*PathExpr, error) {
	first, err := p.expectIdent("path")
	if err != nil {
		return nil, err
	}
	path := &PathExpr{Names: []*Ident{first}}
	for p.match(DOT) {
		seg, err := p.expectIdent("path segment")
		if err != nil {
			return nil, err
		}
		path.Names = append(path.Names, seg)
	}
	return path, nil
}

// Binary operators, loosest first: || && == < (+ -) (* /).

func (p *parser) parseExpr() (Expr, error) { return p.parseBinary(OR) }

// binaryNext gives the next-tighter level for each operator group;
// STAR's "next" is not a level, so its operands are unary expressions.
var binaryNext = map[Token]Token{OR: AND, AND: EQL, EQL: LT, LT: PLUS, PLUS: STAR, STAR: ILLEGAL}

func (p *parser) parseBinary(level Token) (Expr, error) {
	next, ok := binaryNext[level]
	if !ok {
		return p.parseUnary()
	}
	operand := func() (Expr, error) { return p.parseBinary(next) }
	x, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op.kind != level && !(level == PLUS && op.kind == MINUS) &&
			!(level == STAR && op.kind == SLASH) {
			return x, nil
		}
		p.advance()
		y, err := operand()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{X: x, OpPos: op.pos, Op: op.kind, Y: y}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.peek().kind {
	case MINUS, BANG:
		op := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{OpPos: op.pos, Op: op.kind, X: x}, nil
	case COPY:
		kw := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &CopyExpr{CopyPos: kw.pos, X: x}, nil
	case AMP:
		amp := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &RefExpr{AmpPos: amp.pos, X: x}, nil
	}
	return p.parseIf()
}

func (p *parser) parseIf() (Expr, error) {
	if p.at(IF) {
		kw := p.advance()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(THEN, "in if expression"); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(ELSE, "in if expression"); err != nil {
			return nil, err
		}
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &IfExpr{IfPos: kw.pos, Cond: cond, Then: then, Else: els}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(LPAREN) {
		path, ok := x.(*PathExpr)
		if !ok {
			return nil, Error{Pos: p.peek().pos, Msg: "call of non-path expression"}
		}
		lparen := p.advance()
		call := &CallExpr{Fn: path, Lparen: lparen.pos}
		if p.at(RPAREN) {
			call.Rparen = p.advance().pos
			x = call
			continue
		}
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.match(COMMA) {
				continue
			}
			rparen, err := p.expect(RPAREN, "after call arguments")
			if err != nil {
				return nil, err
			}
			call.Rparen = rparen.pos
			break
		}
		x = call
	}
	return x, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tv := p.peek()
	switch tv.kind {
	case IDENT:
		return p.parsePath()

	case INT:
		p.advance()
		return &Literal{Token: INT, TokenPos: tv.pos, Raw: tv.raw, Value: tv.int}, nil

	case STRING:
		p.advance()
		return &Literal{Token: STRING, TokenPos: tv.pos, Raw: tv.raw, Value: tv.string}, nil

	case TRUE, FALSE:
		p.advance()
		return &Literal{Token: tv.kind, TokenPos: tv.pos, Raw: tv.raw, Value: tv.kind == TRUE}, nil

	case LPAREN:
		p.advance()
		if p.at(RPAREN) {
			p.advance()
			return &Literal{Token: UNIT, TokenPos: tv.pos, Raw: "()"}, nil
		}
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "after expression"); err != nil {
			return nil, err
		}
		return x, nil

	case LBRACE:
		p.advance()
		if p.at(RBRACE) {
			rbrace := p.advance()
			return &BlockExpr{Lbrace: tv.pos, Rbrace: rbrace.pos}, nil
		}
		if p.looksLikeRecordLiteral() {
			rec := &RecordExpr{Lbrace: tv.pos}
			for {
				name, err := p.expectIdent("field name")
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(COLON, "after field name"); err != nil {
					return nil, err
				}
				value, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				rec.Fields = append(rec.Fields, FieldInit{Name: name, Value: value})
				if p.match(COMMA) {
					continue
				}
				rbrace, err := p.expect(RBRACE, "after record literal")
				if err != nil {
					return nil, err
				}
				rec.Rbrace = rbrace.pos
				return rec, nil
			}
		}
		return p.parseBlockRest(tv.pos)
	}
	return nil, p.errorf("expression", tv)
}

// looksLikeRecordLiteral reports whether the tokens after a just-consumed
// '{' begin a record literal rather than a block. A record literal starts
// with "ident :" and its first field ends at a top-level ',' or '}' before
// any '=' is seen; a binding statement ("x: i32 = ...") hits the '='.
func (p *parser) looksLikeRecordLiteral() bool {
	i := p.pos
	if p.tokens[i].kind != IDENT || p.tokens[i+1].kind != COLON {
		return false
	}
	i += 2
	parens, braces := 0, 0
	for ; p.tokens[i].kind != EOF; i++ {
		switch p.tokens[i].kind {
		case LPAREN:
			parens++
		case RPAREN:
			if parens > 0 {
				parens--
			}
		case LBRACE:
			braces++
		case RBRACE:
			if braces == 0 && parens == 0 {
				return true // first field ran to the closing brace
			}
			if braces > 0 {
				braces--
			}
		case COMMA:
			if braces == 0 && parens == 0 {
				return true
			}
		case EQ:
			if braces == 0 && parens == 0 {
				return false
			}
		}
	}
	return false
}
