// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cgen translates a checked gaut program to C source code
// targeting the gaut C runtime (runtime.h).
//
// Each generated function carries a stack-allocated arena; every block
// opens an arena scope on entry and releases it on exit, so transient
// strings allocated inside a block are reclaimed when the block ends.
// Values returned out of a function (strings and byte buffers) are
// allocated on the heap instead.
package cgen // import "go.gaut.net/cgen"

import (
	"fmt"
	"strconv"
	"strings"

	"go.gaut.net/syntax"
	"go.gaut.net/types"
)

// Source parses src and translates it to C.
// The filename is used only in parse error messages.
func Source(filename, src string) (string, error) {
	prog, err := syntax.Parse(filename, src)
	if err != nil {
		return "", fmt.Errorf("parse error: %v", err)
	}
	return Program(prog)
}

// Program translates a program to C. The program is assumed to have
// passed the checker; Program reports only constructs the C backend
// cannot express.
func Program(prog *syntax.Program) (string, error) {
	g := &generator{
		env:  types.NewEnv(),
		sigs: make(map[string]types.Type),
	}
	for _, decl := range prog.Decls {
		switch decl := decl.(type) {
		case *syntax.FuncDecl:
			var ret types.Type
			if decl.Ret != nil {
				ret = types.FromExpr(decl.Ret)
			}
			g.sigs[decl.Name.Name] = ret
		case *syntax.TypeDecl:
			g.env.Define(decl.Name.Name, types.FromExpr(decl.Type))
		}
	}
	for name, ret := range builtinRets {
		if _, ok := g.sigs[name]; !ok {
			g.sigs[name] = ret
		}
	}
	g.push()
	for _, decl := range prog.Decls {
		if decl, ok := decl.(*syntax.VarDecl); ok {
			g.insert(decl.Name.Name, types.FromExpr(decl.Type))
		}
	}

	g.printf("#include <stdint.h>\n")
	g.printf("#include <stdbool.h>\n")
	g.printf("#include <stddef.h>\n")
	g.printf("#include %q\n\n", "runtime.h")

	g.emitShims(prog)

	for _, decl := range prog.Decls {
		if decl, ok := decl.(*syntax.TypeDecl); ok {
			g.emitTypeDecl(decl)
		}
	}
	for _, decl := range prog.Decls {
		if decl, ok := decl.(*syntax.VarDecl); ok {
			if err := g.emitGlobal(decl); err != nil {
				return "", err
			}
		}
	}
	for _, decl := range prog.Decls {
		if decl, ok := decl.(*syntax.FuncDecl); ok {
			if err := g.emitFunc(decl); err != nil {
				return "", err
			}
		}
	}
	return g.out.String(), nil
}

// builtinRets gives the result types of the builtins the C runtime
// provides. A user declaration of the same name takes precedence.
var builtinRets = map[string]types.Type{
	"print":      types.Str,
	"println":    types.Str,
	"read_file":  types.Str,
	"write_file": types.Unit,
	"args":       types.Bytes,
}

type generator struct {
	out    strings.Builder
	env    *types.Env
	sigs   map[string]types.Type   // declared functions; nil means inferred result
	vars   []map[string]types.Type // innermost last
	tmp    int                     // counter for __tmpN and __retN
	nscope int                     // counter for __scopeN
}

func (g *generator) printf(format string, args ...interface{}) {
	fmt.Fprintf(&g.out, format, args...)
}

func (g *generator) push() { g.vars = append(g.vars, make(map[string]types.Type)) }
func (g *generator) pop()  { g.vars = g.vars[:len(g.vars)-1] }

func (g *generator) insert(name string, t types.Type) {
	g.vars[len(g.vars)-1][name] = t
}

func (g *generator) typeOf(name string) types.Type {
	for i := len(g.vars) - 1; i >= 0; i-- {
		if t, ok := g.vars[i][name]; ok {
			return t
		}
	}
	return nil
}

// resolve follows alias names to the underlying type, tolerating
// unknown names and cycles, and resolves through references.
func (g *generator) resolve(t types.Type) types.Type {
	if ref, ok := t.(*types.Ref); ok {
		return &types.Ref{Elem: g.resolve(ref.Elem)}
	}
	if r, err := g.env.Resolve(t); err == nil {
		return r
	}
	return t
}

func (g *generator) isNamed(t types.Type, name string) bool {
	n, ok := g.resolve(t).(*types.Named)
	return ok && n.Name == name
}

func (g *generator) isStr(t types.Type) bool   { return g.isNamed(t, "Str") }
func (g *generator) isBytes(t types.Type) bool { return g.isNamed(t, "Bytes") }
func (g *generator) isUnit(t types.Type) bool  { return g.isNamed(t, "Unit") }

func (g *generator) fieldType(t types.Type, name string) types.Type {
	switch t := g.resolve(t).(type) {
	case *types.Record:
		return t.Field(name)
	case *types.Ref:
		return g.fieldType(t.Elem, name)
	}
	return nil
}

func (g *generator) pathType(path *syntax.PathExpr) types.Type {
	t := g.typeOf(path.Names[0].Name)
	for _, field := range path.Names[1:] {
		if t == nil {
			return nil
		}
		t = g.fieldType(t, field.Name)
	}
	return t
}

// inferType computes the static type of an expression, or nil if it
// cannot be determined. Mismatched if branches degrade to Unit; the
// checker has already rejected them.
func (g *generator) inferType(e syntax.Expr) types.Type {
	switch e := e.(type) {
	case *syntax.Literal:
		switch e.Token {
		case syntax.INT:
			return types.I32
		case syntax.TRUE, syntax.FALSE:
			return types.Bool
		case syntax.STRING:
			return types.Str
		case syntax.UNIT:
			return types.Unit
		}
	case *syntax.PathExpr:
		return g.pathType(e)
	case *syntax.CopyExpr:
		return g.inferType(e.X)
	case *syntax.RefExpr:
		if t := g.inferType(e.X); t != nil {
			return &types.Ref{Elem: t}
		}
	case *syntax.CallExpr:
		ret, ok := g.sigs[e.Fn.PathString()]
		if !ok {
			return nil
		}
		if ret == nil {
			return types.Unit
		}
		return ret
	case *syntax.IfExpr:
		then := g.inferType(e.Then)
		els := g.inferType(e.Else)
		if then == nil || els == nil {
			return nil
		}
		if typeEq(then, els) {
			return then
		}
		return types.Unit
	case *syntax.BlockExpr:
		return g.inferBlockType(e)
	case *syntax.RecordExpr:
		rec := &types.Record{Fields: make([]types.Field, len(e.Fields))}
		for i, f := range e.Fields {
			t := g.inferType(f.Value)
			if t == nil {
				t = types.Unit
			}
			rec.Fields[i] = types.Field{Name: f.Name.Name, Type: t}
		}
		return rec
	case *syntax.UnaryExpr:
		if e.Op == syntax.MINUS {
			return types.I32
		}
		return types.Bool
	case *syntax.BinaryExpr:
		lhs := g.inferType(e.X)
		rhs := g.inferType(e.Y)
		if lhs == nil || rhs == nil {
			return nil
		}
		switch e.Op {
		case syntax.LT, syntax.EQL, syntax.AND, syntax.OR:
			return types.Bool
		case syntax.PLUS:
			if g.isStr(lhs) || g.isStr(rhs) {
				return types.Str
			}
		}
		return lhs
	}
	return nil
}

func (g *generator) inferBlockType(b *syntax.BlockExpr) types.Type {
	g.push()
	defer g.pop()
	for _, stmt := range b.Stmts {
		if let, ok := stmt.(*syntax.LetStmt); ok {
			g.insert(let.Name.Name, types.FromExpr(let.Type))
		}
	}
	if b.Tail == nil {
		return types.Unit
	}
	if t := g.inferType(b.Tail); t != nil {
		return t
	}
	return types.Unit
}

// typeEq reports syntactic equality, without alias resolution.
func typeEq(a, b types.Type) bool {
	switch a := a.(type) {
	case *types.Named:
		b, ok := b.(*types.Named)
		return ok && a.Name == b.Name
	case *types.Ref:
		b, ok := b.(*types.Ref)
		return ok && typeEq(a.Elem, b.Elem)
	case *types.Record:
		b, ok := b.(*types.Record)
		if !ok || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !typeEq(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	}
	return false
}

// emitShims defines C wrappers for the runtime builtins, unless the
// program declares its own function of the same name.
func (g *generator) emitShims(prog *syntax.Program) {
	declared := make(map[string]bool)
	for _, decl := range prog.Decls {
		if decl, ok := decl.(*syntax.FuncDecl); ok {
			declared[decl.Name.Name] = true
		}
	}
	if !declared["print"] {
		g.printf("char* print(char* msg) { gaut_print(msg); return msg; }\n")
	}
	if !declared["println"] {
		g.printf("char* println(char* msg) { gaut_println(msg); return msg; }\n")
	}
	if !declared["read_file"] {
		g.printf("char* read_file(char* path) { return gaut_read_file(path); }\n")
	}
	if !declared["write_file"] {
		g.printf("void write_file(char* path, char* data) { gaut_write_file(path, data); }\n")
	}
	if !declared["args"] {
		g.printf("gaut_bytes args() { return gaut_args(); }\n")
	}
	g.printf("\n")
}

func (g *generator) emitTypeDecl(decl *syntax.TypeDecl) {
	switch t := g.resolve(types.FromExpr(decl.Type)).(type) {
	case *types.Record:
		g.printf("typedef struct {\n")
		for _, f := range t.Fields {
			g.printf("  %s %s;\n", g.ctype(f.Type), f.Name)
		}
		g.printf("} %s;\n", decl.Name.Name)
	default:
		g.printf("typedef %s %s;\n", g.ctype(t), decl.Name.Name)
	}
	g.printf("\n")
}

func (g *generator) emitGlobal(decl *syntax.VarDecl) error {
	g.printf("%s %s = ", g.cvalueType(types.FromExpr(decl.Type)), decl.Name.Name)
	if _, err := g.emitExpr(decl.Value, ""); err != nil {
		return err
	}
	g.printf(";\n\n")
	return nil
}

func (g *generator) emitFunc(decl *syntax.FuncDecl) error {
	name := decl.Name.Name
	if isRuntimeBuiltin(name) {
		g.emitBuiltinOverride(decl)
		return nil
	}

	g.push()
	defer g.pop()
	for _, p := range decl.Params {
		g.insert(p.Name.Name, types.FromExpr(p.Type))
	}

	ret := g.inferType(decl.Body)
	if decl.Ret != nil {
		ret = types.FromExpr(decl.Ret)
	} else if ret == nil {
		ret = types.Unit
	}
	retC := g.ctype(ret)
	if name == "main" {
		retC = "int"
	}

	g.printf("%s %s(", retC, name)
	for i, p := range decl.Params {
		if i > 0 {
			g.printf(", ")
		}
		g.printf("%s %s", g.cvalueType(types.FromExpr(p.Type)), p.Name.Name)
	}
	g.printf(") {\n")

	g.printf("  uint8_t __arena_buf[GAUT_DEFAULT_ARENA_CAP];\n")
	g.printf("  gaut_arena __arena = gaut_arena_from_buffer(__arena_buf, GAUT_DEFAULT_ARENA_CAP);\n")
	g.printf("\n")

	body, ok := decl.Body.(*syntax.BlockExpr)
	if !ok {
		body = &syntax.BlockExpr{Tail: decl.Body}
	}
	if err := g.emitBlock(body, 1, ret, "__arena", name == "main"); err != nil {
		return err
	}
	g.printf("}\n\n")
	return nil
}

func isRuntimeBuiltin(name string) bool {
	switch name {
	case "print", "println", "read_file", "write_file", "args":
		return true
	}
	return false
}

// emitBuiltinOverride emits a user declaration of a runtime builtin
// with the runtime's fixed C signature, calling through to the
// runtime regardless of the declared body. Anything else would change
// the shim ABI the rest of the generated code expects.
func (g *generator) emitBuiltinOverride(decl *syntax.FuncDecl) {
	switch decl.Name.Name {
	case "print", "println":
		g.printf("char* %s(char* msg) {\n", decl.Name.Name)
		g.printf("  gaut_%s(msg);\n", decl.Name.Name)
		g.printf("  return msg;\n")
		g.printf("}\n\n")
	case "read_file":
		g.printf("char* read_file(char* path) {\n")
		g.printf("  return gaut_read_file(path);\n")
		g.printf("}\n\n")
	case "write_file":
		g.printf("void write_file(char* path, char* data) {\n")
		g.printf("  gaut_write_file(path, data);\n")
		g.printf("}\n\n")
	case "args":
		g.printf("gaut_bytes args() {\n")
		g.printf("  return gaut_args();\n")
		g.printf("}\n\n")
	}
}

// emitBlock emits a function-level block: statements, then the tail
// expression captured into a temporary so the arena scope can be
// released before returning.
func (g *generator) emitBlock(b *syntax.BlockExpr, indent int, ret types.Type, arena string, isMain bool) error {
	pad := strings.Repeat("  ", indent)
	g.push()
	defer g.pop()

	scope := ""
	if arena != "" {
		scope = fmt.Sprintf("__scope%d", g.nscope)
		g.nscope++
		g.printf("%sgaut_scope %s = gaut_scope_enter(&%s);\n", pad, scope, arena)
	}
	for _, stmt := range b.Stmts {
		if err := g.emitStmt(stmt, indent, arena); err != nil {
			return err
		}
	}

	leave := func() {
		if arena != "" {
			g.printf("%sgaut_scope_leave(&%s, %s);\n", pad, arena, scope)
		}
	}

	if b.Tail == nil {
		if !g.isUnit(ret) {
			return fmt.Errorf("unsupported construct: missing return expression")
		}
		leave()
		if isMain {
			g.printf("%sreturn 0;\n", pad)
		}
		return nil
	}

	// Returned strings and byte buffers must survive the arena.
	tailArena := arena
	if g.isStr(ret) || g.isBytes(ret) {
		tailArena = ""
	}
	if g.isUnit(ret) {
		g.printf("%s", pad)
		if _, err := g.emitExpr(b.Tail, tailArena); err != nil {
			return err
		}
		g.printf(";\n")
		leave()
		if isMain {
			g.printf("%sreturn 0;\n", pad)
		}
		return nil
	}

	tmp := fmt.Sprintf("__ret%d", g.tmp)
	g.tmp++
	g.printf("%s%s %s = ", pad, g.cvalueType(ret), tmp)
	if _, err := g.emitExpr(b.Tail, tailArena); err != nil {
		return err
	}
	g.printf(";\n")
	leave()
	g.printf("%sreturn %s;\n", pad, tmp)
	return nil
}

func (g *generator) emitStmt(stmt syntax.Stmt, indent int, arena string) error {
	pad := strings.Repeat("  ", indent)
	switch stmt := stmt.(type) {
	case *syntax.LetStmt:
		t := types.FromExpr(stmt.Type)
		g.printf("%s%s %s = ", pad, g.cvalueType(t), stmt.Name.Name)
		if _, err := g.emitExpr(stmt.Value, arena); err != nil {
			return err
		}
		g.printf(";\n")
		g.insert(stmt.Name.Name, t)
	case *syntax.AssignStmt:
		g.printf("%s", pad)
		g.emitPath(stmt.Target)
		g.printf(" = ")
		if _, err := g.emitExpr(stmt.Value, arena); err != nil {
			return err
		}
		g.printf(";\n")
	case *syntax.ExprStmt:
		g.printf("%s", pad)
		if _, err := g.emitExpr(stmt.X, arena); err != nil {
			return err
		}
		g.printf(";\n")
	}
	return nil
}

func (g *generator) emitExpr(e syntax.Expr, arena string) (types.Type, error) {
	switch e := e.(type) {
	case *syntax.Literal:
		switch e.Token {
		case syntax.INT:
			g.printf("%d", e.Value.(int64))
		case syntax.TRUE:
			g.printf("true")
		case syntax.FALSE:
			g.printf("false")
		case syntax.STRING:
			g.printf("%s", strconv.Quote(e.Value.(string)))
		case syntax.UNIT:
			g.printf("0")
		}
	case *syntax.PathExpr:
		g.emitPath(e)
	case *syntax.CopyExpr:
		// Moves and copies compile identically: C assignment copies.
		return g.emitExpr(e.X, arena)
	case *syntax.RefExpr:
		g.printf("&")
		return g.emitExpr(e.X, arena)
	case *syntax.CallExpr:
		g.printf("%s(", e.Fn.PathString())
		for i, arg := range e.Args {
			if i > 0 {
				g.printf(", ")
			}
			if _, err := g.emitExpr(arg, arena); err != nil {
				return nil, err
			}
		}
		g.printf(")")
	case *syntax.IfExpr:
		g.printf("(")
		if _, err := g.emitExpr(e.Cond, arena); err != nil {
			return nil, err
		}
		g.printf(" ? ")
		if _, err := g.emitExpr(e.Then, arena); err != nil {
			return nil, err
		}
		g.printf(" : ")
		if _, err := g.emitExpr(e.Else, arena); err != nil {
			return nil, err
		}
		g.printf(")")
	case *syntax.BlockExpr:
		return g.emitBlockExpr(e, arena)
	case *syntax.RecordExpr:
		t := g.inferType(e)
		if t == nil {
			t = &types.Record{}
		}
		cty, ok := g.recordAlias(t)
		if !ok {
			cty = g.cvalueType(t)
		}
		g.printf("(%s){ ", cty)
		for i, f := range e.Fields {
			if i > 0 {
				g.printf(", ")
			}
			g.printf(".%s = ", f.Name.Name)
			if _, err := g.emitExpr(f.Value, arena); err != nil {
				return nil, err
			}
		}
		g.printf(" }")
	case *syntax.UnaryExpr:
		if e.Op == syntax.MINUS {
			g.printf("-")
		} else {
			g.printf("!")
		}
		if _, err := g.emitExpr(e.X, arena); err != nil {
			return nil, err
		}
	case *syntax.BinaryExpr:
		return g.emitBinary(e, arena)
	}

	if t := g.inferType(e); t != nil {
		return t, nil
	}
	return types.Unit, nil
}

func (g *generator) emitBinary(e *syntax.BinaryExpr, arena string) (types.Type, error) {
	t := g.inferType(e)
	if e.Op == syntax.PLUS && t != nil && (g.isStr(t) || g.isBytes(t)) {
		kind := "str"
		if g.isBytes(t) {
			kind = "bytes"
		}
		if arena != "" {
			g.printf("gaut_%s_concat_arena(&%s, ", kind, arena)
		} else {
			g.printf("gaut_%s_concat_heap(", kind)
		}
		if _, err := g.emitExpr(e.X, arena); err != nil {
			return nil, err
		}
		g.printf(", ")
		if _, err := g.emitExpr(e.Y, arena); err != nil {
			return nil, err
		}
		g.printf(")")
		return t, nil
	}

	if _, err := g.emitExpr(e.X, arena); err != nil {
		return nil, err
	}
	g.printf(" %s ", e.Op)
	if _, err := g.emitExpr(e.Y, arena); err != nil {
		return nil, err
	}
	if t != nil {
		return t, nil
	}
	return types.Unit, nil
}

// emitBlockExpr emits a nested block as a GNU statement expression,
// opening and closing an arena scope around the statements.
func (g *generator) emitBlockExpr(b *syntax.BlockExpr, arena string) (types.Type, error) {
	t := g.inferBlockType(b)
	tmp := fmt.Sprintf("__tmp%d", g.tmp)
	g.tmp++

	g.printf("({ ")
	g.push()
	defer g.pop()
	scope := ""
	if arena != "" {
		scope = fmt.Sprintf("__scope%d", g.nscope)
		g.nscope++
		g.printf("gaut_scope %s = gaut_scope_enter(&%s); ", scope, arena)
	}
	for _, stmt := range b.Stmts {
		if err := g.emitStmt(stmt, 0, arena); err != nil {
			return nil, err
		}
	}
	if b.Tail != nil {
		g.printf("%s %s = ", g.cvalueType(t), tmp)
		if _, err := g.emitExpr(b.Tail, arena); err != nil {
			return nil, err
		}
		g.printf("; ")
	} else {
		g.printf("%s %s = 0; ", g.cvalueType(t), tmp)
	}
	if arena != "" {
		g.printf("gaut_scope_leave(&%s, %s); ", arena, scope)
	}
	g.printf("%s; })", tmp)
	return t, nil
}

// emitPath emits a dotted path, selecting fields with -> when the
// value reached so far is a reference.
func (g *generator) emitPath(path *syntax.PathExpr) {
	current := g.typeOf(path.Names[0].Name)
	g.printf("%s", path.Names[0].Name)
	for _, field := range path.Names[1:] {
		if current != nil {
			if ref, ok := g.resolve(current).(*types.Ref); ok {
				g.printf("->%s", field.Name)
				current = g.fieldType(ref.Elem, field.Name)
				continue
			}
			g.printf(".%s", field.Name)
			current = g.fieldType(current, field.Name)
			continue
		}
		g.printf(".%s", field.Name)
	}
}

// recordAlias finds a declared type alias whose definition is the
// given record type, so record literals can use the typedef name.
func (g *generator) recordAlias(t types.Type) (string, bool) {
	rec, ok := g.resolve(t).(*types.Record)
	if !ok {
		return "", false
	}
	for _, name := range g.env.Names() {
		def, _ := g.env.Lookup(name)
		alias, ok := g.resolve(def).(*types.Record)
		if !ok || len(alias.Fields) != len(rec.Fields) {
			continue
		}
		same := true
		for i := range rec.Fields {
			if rec.Fields[i].Name != alias.Fields[i].Name {
				same = false
				break
			}
			eq, err := g.env.Equal(rec.Fields[i].Type, alias.Fields[i].Type)
			if err != nil || !eq {
				same = false
				break
			}
		}
		if same {
			return name, true
		}
	}
	return "", false
}

// cvalueType maps a gaut type to the C type used for variables and
// parameters. Unit becomes int so unit-typed bindings remain legal C.
func (g *generator) cvalueType(t types.Type) string {
	switch t := t.(type) {
	case *types.Named:
		if g.isUnit(t) {
			return "int"
		}
		return cname(t.Name, "int")
	case *types.Ref:
		return g.cvalueType(t.Elem) + "*"
	case *types.Record:
		return g.cstruct(t)
	}
	return "int"
}

// ctype maps a gaut type to the C type used in typedefs and function
// return positions, where Unit becomes void.
func (g *generator) ctype(t types.Type) string {
	switch t := t.(type) {
	case *types.Named:
		return cname(t.Name, "void")
	case *types.Ref:
		return g.ctype(t.Elem) + "*"
	case *types.Record:
		return g.cstruct(t)
	}
	return "void"
}

func cname(name, unit string) string {
	switch name {
	case "i32":
		return "int32_t"
	case "i64":
		return "int64_t"
	case "u8":
		return "uint8_t"
	case "bool":
		return "bool"
	case "Str":
		return "char*"
	case "Bytes":
		return "gaut_bytes"
	case "Unit":
		return unit
	}
	return name
}

func (g *generator) cstruct(t *types.Record) string {
	var buf strings.Builder
	buf.WriteString("struct {\n")
	for _, f := range t.Fields {
		fmt.Fprintf(&buf, "  %s %s;\n", g.cvalueType(f.Type), f.Name)
	}
	buf.WriteString("}")
	return buf.String()
}
