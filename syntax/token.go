// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

import "fmt"

// A Token represents a lexical token of the gaut language.
type Token int8

const (
	ILLEGAL Token = iota
	EOF

	IDENT  // x
	INT    // 42
	STRING // "hello"

	// Punctuation
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )
	COLON  // :
	COMMA  // ,
	DOT    // .
	EQ     // =
	ARROW  // ->
	AMP    // &
	PLUS   // +
	MINUS  // -
	STAR   // *
	SLASH  // /
	LT     // <
	EQL    // ==
	AND    // &&
	OR     // ||
	BANG   // !

	// Keywords
	IMPORT
	GLOBAL
	MUT
	TYPE
	IF
	THEN
	ELSE
	COPY
	TRUE
	FALSE

	// UNIT is never produced by the scanner; it marks the
	// () literal in the AST.
	UNIT

	maxToken
)

func (tok Token) String() string { return tokenNames[tok] }

var tokenNames = [...]string{
	ILLEGAL: "illegal token",
	EOF:     "end of file",
	IDENT:   "identifier",
	INT:     "int literal",
	STRING:  "string literal",
	LBRACE:  "{",
	RBRACE:  "}",
	LPAREN:  "(",
	RPAREN:  ")",
	COLON:   ":",
	COMMA:   ",",
	DOT:     ".",
	EQ:      "=",
	ARROW:   "->",
	AMP:     "&",
	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	LT:      "<",
	EQL:     "==",
	AND:     "&&",
	OR:      "||",
	BANG:    "!",
	IMPORT:  "import",
	GLOBAL:  "global",
	MUT:     "mut",
	TYPE:    "type",
	IF:      "if",
	THEN:    "then",
	ELSE:    "else",
	COPY:    "copy",
	TRUE:    "true",
	FALSE:   "false",
	UNIT:    "()",
}

var keywordToken = map[string]Token{
	"import": IMPORT,
	"global": GLOBAL,
	"mut":    MUT,
	"type":   TYPE,
	"if":     IF,
	"then":   THEN,
	"else":   ELSE,
	"copy":   COPY,
	"true":   TRUE,
	"false":  FALSE,
}

// A Position describes the location of a rune of input.
type Position struct {
	file *string // filename (indirect for compactness)
	Line int32   // 1-based line number; 0 if unknown
	Col  int32   // 1-based column (rune) number; 0 if unknown
}

// MakePosition returns position with the specified components.
func MakePosition(file *string, line, col int32) Position {
	return Position{file, line, col}
}

// IsValid reports whether the position is valid.
func (p Position) IsValid() bool { return p.file != nil }

// Filename returns the name of the file containing this position.
func (p Position) Filename() string {
	if p.file != nil {
		return *p.file
	}
	return "<invalid>"
}

func (p Position) String() string {
	file := p.Filename()
	if p.Line > 0 {
		if p.Col > 0 {
			return fmt.Sprintf("%s:%d:%d", file, p.Line, p.Col)
		}
		return fmt.Sprintf("%s:%d", file, p.Line)
	}
	return file
}

// add returns the position at the end of s, assuming it contains no newlines.
func (p Position) add(s string) Position {
	p.Col += int32(len(s))
	return p
}

// An Error describes the failure to parse gaut source and its position.
type Error struct {
	Pos Position
	Msg string
}

func (e Error) Error() string { return e.Pos.String() + ": " + e.Msg }
