// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// A scanner for gaut source. The whole input is tokenized up front;
// the parser needs unbounded lookahead to tell a record literal from a
// block expression, and token slices make that cheap.

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// A tokenValue is a single token together with its position and,
// for IDENT, INT and STRING tokens, its decoded payload.
type tokenValue struct {
	kind   Token
	pos    Position
	raw    string // verbatim source text
	string string // decoded string, for IDENT and STRING
	int    int64  // decoded int, for INT
}

type scanner struct {
	rest     string   // remaining input
	pos      Position // position of the next rune
	filename *string
}

func newScanner(filename, src string) *scanner {
	f := filename // copy, to be immune to caller mutation
	return &scanner{
		rest:     src,
		pos:      MakePosition(&f, 1, 1),
		filename: &f,
	}
}

// scan tokenizes the entire input.
func scan(filename, src string) ([]tokenValue, error) {
	sc := newScanner(filename, src)
	var tokens []tokenValue
	for {
		tv, err := sc.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tv)
		if tv.kind == EOF {
			return tokens, nil
		}
	}
}

func (sc *scanner) errorf(pos Position, format string, args ...interface{}) error {
	return Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// peekRune returns the next rune without consuming it, or -1 at EOF.
func (sc *scanner) peekRune() rune {
	if sc.rest == "" {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(sc.rest)
	return r
}

func (sc *scanner) readRune() rune {
	r, size := utf8.DecodeRuneInString(sc.rest)
	sc.rest = sc.rest[size:]
	if r == '\n' {
		sc.pos.Line++
		sc.pos.Col = 1
	} else {
		sc.pos.Col++
	}
	return r
}

func (sc *scanner) nextToken() (tokenValue, error) {
	// Skip whitespace and line comments.
	for {
		c := sc.peekRune()
		if c == -1 {
			return tokenValue{kind: EOF, pos: sc.pos}, nil
		}
		if unicode.IsSpace(c) {
			sc.readRune()
			continue
		}
		if c == '/' && len(sc.rest) > 1 && sc.rest[1] == '/' {
			for sc.rest != "" && sc.peekRune() != '\n' {
				sc.readRune()
			}
			continue
		}
		break
	}

	start := sc.pos
	c := sc.peekRune()

	switch {
	case isIdentStart(c):
		return sc.scanIdent(start), nil
	case c >= '0' && c <= '9':
		return sc.scanNumber(start)
	case c == '"':
		return sc.scanString(start)
	}

	sc.readRune()
	one := func(kind Token) (tokenValue, error) {
		return tokenValue{kind: kind, pos: start, raw: tokenNames[kind]}, nil
	}
	switch c {
	case '{':
		return one(LBRACE)
	case '}':
		return one(RBRACE)
	case '(':
		return one(LPAREN)
	case ')':
		return one(RPAREN)
	case ':':
		return one(COLON)
	case ',':
		return one(COMMA)
	case '.':
		return one(DOT)
	case '+':
		return one(PLUS)
	case '*':
		return one(STAR)
	case '/':
		return one(SLASH)
	case '<':
		return one(LT)
	case '!':
		return one(BANG)
	case '=':
		if sc.peekRune() == '=' {
			sc.readRune()
			return one(EQL)
		}
		return one(EQ)
	case '-':
		if sc.peekRune() == '>' {
			sc.readRune()
			return one(ARROW)
		}
		return one(MINUS)
	case '&':
		if sc.peekRune() == '&' {
			sc.readRune()
			return one(AND)
		}
		return one(AMP)
	case '|':
		if sc.peekRune() == '|' {
			sc.readRune()
			return one(OR)
		}
		return tokenValue{}, sc.errorf(start, "unexpected '|'")
	}
	return tokenValue{}, sc.errorf(start, "unexpected input character %q", c)
}

func (sc *scanner) scanIdent(start Position) tokenValue {
	var name []byte
	for sc.rest != "" && isIdentCont(sc.peekRune()) {
		name = append(name, byte(sc.readRune()))
	}
	s := string(name)
	if kw, ok := keywordToken[s]; ok {
		return tokenValue{kind: kw, pos: start, raw: s}
	}
	return tokenValue{kind: IDENT, pos: start, raw: s, string: s}
}

func (sc *scanner) scanNumber(start Position) (tokenValue, error) {
	var digits []byte
	for sc.rest != "" && sc.peekRune() >= '0' && sc.peekRune() <= '9' {
		digits = append(digits, byte(sc.readRune()))
	}
	raw := string(digits)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return tokenValue{}, sc.errorf(start, "invalid int literal %s", raw)
	}
	return tokenValue{kind: INT, pos: start, raw: raw, int: v}, nil
}

// scanString reads a double-quoted string.
// The language has no escape sequences; the literal runs to the next quote.
func (sc *scanner) scanString(start Position) (tokenValue, error) {
	sc.readRune() // consume '"'
	var text []byte
	for {
		if sc.rest == "" {
			return tokenValue{}, sc.errorf(start, "unclosed string literal")
		}
		c := sc.readRune()
		if c == '"' {
			break
		}
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], c)
		text = append(text, buf[:n]...)
	}
	s := string(text)
	return tokenValue{kind: STRING, pos: start, raw: `"` + s + `"`, string: s}, nil
}

func isIdentStart(c rune) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isIdentCont(c rune) bool {
	return isIdentStart(c) || '0' <= c && c <= '9'
}
