// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax_test

import (
	"fmt"
	"strings"
	"testing"

	"go.gaut.net/syntax"
)

// summarize returns a one-line structural rendering of an expression,
// ignoring positions.
func summarize(n syntax.Node) string {
	switch n := n.(type) {
	case *syntax.Literal:
		if n.Token == syntax.UNIT {
			return "()"
		}
		return fmt.Sprintf("%v", n.Value)
	case *syntax.PathExpr:
		return n.PathString()
	case *syntax.CopyExpr:
		return fmt.Sprintf("(copy %s)", summarize(n.X))
	case *syntax.RefExpr:
		return fmt.Sprintf("(& %s)", summarize(n.X))
	case *syntax.CallExpr:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = summarize(a)
		}
		return fmt.Sprintf("(call %s %s)", n.Fn.PathString(), strings.Join(args, " "))
	case *syntax.IfExpr:
		return fmt.Sprintf("(if %s %s %s)", summarize(n.Cond), summarize(n.Then), summarize(n.Else))
	case *syntax.BlockExpr:
		parts := make([]string, 0, len(n.Stmts)+1)
		for _, s := range n.Stmts {
			parts = append(parts, summarize(s))
		}
		if n.Tail != nil {
			parts = append(parts, summarize(n.Tail))
		}
		return fmt.Sprintf("(block %s)", strings.Join(parts, " "))
	case *syntax.RecordExpr:
		parts := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			parts[i] = f.Name.Name + "=" + summarize(f.Value)
		}
		return fmt.Sprintf("(record %s)", strings.Join(parts, " "))
	case *syntax.UnaryExpr:
		return fmt.Sprintf("(%s %s)", n.Op, summarize(n.X))
	case *syntax.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", n.Op, summarize(n.X), summarize(n.Y))
	case *syntax.LetStmt:
		return fmt.Sprintf("(let %s %s)", n.Name.Name, summarize(n.Value))
	case *syntax.AssignStmt:
		return fmt.Sprintf("(set %s %s)", n.Target.PathString(), summarize(n.Value))
	case *syntax.ExprStmt:
		return summarize(n.X)
	}
	return fmt.Sprintf("%T", n)
}

func TestParseExpr(t *testing.T) {
	for _, test := range []struct {
		src, want string
	}{
		{`1 + 2 * 3`, `(+ 1 (* 2 3))`},
		{`1 * 2 + 3`, `(+ (* 1 2) 3)`},
		{`a < b == c < d`, `(== (< a b) (< c d))`},
		{`a && b || c`, `(|| (&& a b) c)`},
		{`-x + 1`, `(+ (- x) 1)`},
		{`!a && b`, `(&& (! a) b)`},
		{`copy sum`, `(copy sum)`},
		{`&origin`, `(& origin)`},
		{`if x < 0 then 10 else 5`, `(if (< x 0) 10 5)`},
		{`add(x, y)`, `(call add x y)`},
		{`p.x + p.y`, `(+ p.x p.y)`},
		{`{ x: 0, y: 0 }`, `(record x=0 y=0)`},
		{`{ x: i32 = 1 x }`, `(block (let x 1) x)`},
		{`{}`, `(block )`},
		{`()`, `()`},
		{`("x")`, `x`},
		{`{ f(x) }`, `(block (call f x))`},
		{`"a" + "b"`, `(+ a b)`},
	} {
		expr, err := syntax.ParseExpr("test.gaut", test.src)
		if err != nil {
			t.Errorf("parse %q: %v", test.src, err)
			continue
		}
		if got := summarize(expr); got != test.want {
			t.Errorf("parse %q = %s, want %s", test.src, got, test.want)
		}
	}
}

func TestParseProgram(t *testing.T) {
	const src = `
type Point = { x: i32, y: i32 }

global greeting: Str = "hello"

shift(p: Point, dx: i32, dy: i32) -> Point = {
  mut moved: Point = p
  moved.x = moved.x + dx
  moved.y = moved.y + dy
  moved
}

length_x(p: &Point) -> i32 = p.x

main() = {
  origin: Point = { x: 0, y: 0 }
  p1: Point = shift(origin, 5, 0)
  px: i32 = length_x(&p1)
  copy px
}
`
	prog, err := syntax.Parse("test.gaut", src)
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Decls) != 5 {
		t.Fatalf("got %d decls, want 5", len(prog.Decls))
	}

	td, ok := prog.Decls[0].(*syntax.TypeDecl)
	if !ok || td.Name.Name != "Point" {
		t.Errorf("decl 0: got %T, want TypeDecl Point", prog.Decls[0])
	}
	rec, ok := td.Type.(*syntax.RecordType)
	if !ok || len(rec.Fields) != 2 || rec.Fields[0].Name.Name != "x" {
		t.Errorf("Point type: got %T %+v", td.Type, td.Type)
	}

	vd, ok := prog.Decls[1].(*syntax.VarDecl)
	if !ok || !vd.Global || vd.Name.Name != "greeting" {
		t.Errorf("decl 1: got %T, want global VarDecl greeting", prog.Decls[1])
	}

	fd, ok := prog.Decls[2].(*syntax.FuncDecl)
	if !ok || fd.Name.Name != "shift" || len(fd.Params) != 3 {
		t.Fatalf("decl 2: got %T, want FuncDecl shift/3", prog.Decls[2])
	}
	body, ok := fd.Body.(*syntax.BlockExpr)
	if !ok {
		t.Fatalf("shift body: got %T, want BlockExpr", fd.Body)
	}
	if len(body.Stmts) != 3 || body.Tail == nil {
		t.Errorf("shift body: got %d stmts, tail %v; want 3 stmts and a tail",
			len(body.Stmts), body.Tail)
	}
	if _, ok := body.Stmts[1].(*syntax.AssignStmt); !ok {
		t.Errorf("shift body stmt 1: got %T, want AssignStmt", body.Stmts[1])
	}

	lx := prog.Decls[3].(*syntax.FuncDecl)
	if _, ok := lx.Params[0].Type.(*syntax.RefType); !ok {
		t.Errorf("length_x param type: got %T, want RefType", lx.Params[0].Type)
	}
}

func TestParseImport(t *testing.T) {
	prog, err := syntax.Parse("test.gaut", "import io\nmain() = ()")
	if err != nil {
		t.Fatal(err)
	}
	imp, ok := prog.Decls[0].(*syntax.ImportDecl)
	if !ok || imp.Module.Name != "io" {
		t.Fatalf("got %T %+v, want import io", prog.Decls[0], prog.Decls[0])
	}
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		src, want string
	}{
		{`main() = if true then 1`, `expected "else" in if expression`},
		{`main() = { x: i32 = }`, `expected expression`},
		{`main() = {`, `unexpected end of file in block`},
		{`f(: i32) = 1`, `expected parameter name`},
	} {
		_, err := syntax.Parse("test.gaut", test.src)
		if err == nil {
			t.Errorf("parse %q: unexpected success", test.src)
			continue
		}
		if !strings.Contains(err.Error(), test.want) {
			t.Errorf("parse %q: error %q does not mention %q", test.src, err, test.want)
		}
	}
}

func TestSpan(t *testing.T) {
	prog, err := syntax.Parse("test.gaut", `add(a: i32, b: i32) -> i32 = a + b`)
	if err != nil {
		t.Fatal(err)
	}
	start, end := prog.Decls[0].Span()
	if start.Line != 1 || start.Col != 1 {
		t.Errorf("start = %d:%d, want 1:1", start.Line, start.Col)
	}
	if end.Line != 1 || end.Col != 35 {
		t.Errorf("end = %d:%d, want 1:35", end.Line, end.Col)
	}
}
