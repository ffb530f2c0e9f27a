// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package check implements the static checker of the gaut language.
//
// The checker validates types and enforces the ownership discipline: a
// bare mention of a binding moves its value, copy and & leave it in
// place, a moved binding may not be used again, assignment requires a
// mutable binding, and no value containing a reference may outlive the
// block that produced it.
//
// A program that passes the checker evaluates without ownership faults,
// so the interpreter and the generated C may take the discipline for
// granted.
package check // import "go.gaut.net/check"

import (
	"fmt"
	"sort"

	"go.gaut.net/syntax"
	"go.gaut.net/types"
)

// A Kind classifies a checker error.
type Kind int8

const (
	UnknownIdent Kind = iota
	UnknownType
	UnknownFunc
	UnknownReturn
	TypeMismatch
	ArityMismatch
	Moved
	NotMutable
	Escape
	MainParams
)

// An Error describes a failure of static checking.
type Error struct {
	Pos  syntax.Position
	Kind Kind
	Msg  string
}

func (e Error) Error() string { return e.Pos.String() + ": " + e.Msg }

// A valueMode says how an expression consumes the bindings it mentions.
type valueMode int8

const (
	modeMove   valueMode = iota // bare mention: takes ownership
	modeCopy                    // copy x: duplicates the value
	modeBorrow                  // &x: non-owning view
)

// A binding records what the checker knows about one name in scope.
type binding struct {
	typ         types.Type
	mutable     bool
	moved       bool
	originDepth int
}

type scope map[string]*binding

// A tyInfo is the checker's result for an expression: its type, the
// scope depth the value originates from, and whether it may legally
// outlive that scope (when no references are involved).
type tyInfo struct {
	typ         types.Type
	originDepth int
	escapable   bool
}

type checker struct {
	env    *types.Env
	funcs  map[string]*funcSig
	scopes []scope
}

// Program checks a whole program and returns the first error found,
// if any. Function return types left unannotated are inferred from the
// bodies; calls ahead of a not-yet-inferred function are retried until
// inference reaches a fixed point.
func Program(prog *syntax.Program) error {
	c := &checker{env: types.NewEnv(), funcs: newFuncTable()}

	// Pass 1: collect type aliases and function signatures so that
	// declarations may refer to one another in any order.
	for _, decl := range prog.Decls {
		switch decl := decl.(type) {
		case *syntax.TypeDecl:
			c.env.Define(decl.Name.Name, types.FromExpr(decl.Type))
		case *syntax.FuncDecl:
			sig := &funcSig{}
			for _, p := range decl.Params {
				sig.params = append(sig.params, paramSig{
					name:    p.Name.Name,
					typ:     types.FromExpr(p.Type),
					mutable: p.Mut,
				})
			}
			if decl.Ret != nil {
				sig.ret = types.FromExpr(decl.Ret)
			}
			c.funcs[decl.Name.Name] = sig
		}
	}

	// Pass 2: check globals in order, then function bodies.
	c.push()
	var pending []*syntax.FuncDecl
	for _, decl := range prog.Decls {
		switch decl := decl.(type) {
		case *syntax.VarDecl:
			if err := c.checkBinding(&decl.Binding, 0); err != nil {
				return err
			}
		case *syntax.FuncDecl:
			pending = append(pending, decl)
		}
	}

	// Worklist: a body whose check fails only because a callee's
	// return type is still unknown is deferred to a later round.
	// A round with no progress means a cycle of unannotated functions.
	for len(pending) > 0 {
		var deferred []*syntax.FuncDecl
		progressed := false
		for _, fn := range pending {
			err := c.checkFunc(fn)
			if err == nil {
				progressed = true
				continue
			}
			if e, ok := err.(Error); ok && e.Kind == UnknownReturn {
				deferred = append(deferred, fn)
				continue
			}
			return err
		}
		if !progressed {
			first := deferred[0]
			return Error{
				Pos:  first.Name.NamePos,
				Kind: UnknownReturn,
				Msg:  fmt.Sprintf("cannot infer return type for function %s yet", first.Name.Name),
			}
		}
		pending = deferred
	}
	return nil
}

func (c *checker) checkFunc(fn *syntax.FuncDecl) error {
	if fn.Name.Name == "main" && len(fn.Params) > 0 {
		return Error{Pos: fn.Params[0].Name.NamePos, Kind: MainParams, Msg: "main must not take parameters"}
	}
	sig := c.funcs[fn.Name.Name]

	c.push()
	defer c.pop()
	depth := c.depth()
	for i, p := range sig.params {
		if err := c.validateType(p.typ, syntax.Start(fn.Params[i].Type)); err != nil {
			return err
		}
		c.insert(p.name, p.typ, p.mutable, depth)
	}

	var body tyInfo
	var err error
	if b, ok := fn.Body.(*syntax.BlockExpr); ok {
		// The function body boundary is the one place a block's
		// value may escape the block that produced it.
		body, err = c.checkBlock(b, true)
	} else {
		body, err = c.checkExpr(fn.Body, modeMove)
	}
	if err != nil {
		return err
	}
	if err := c.ensureNotEscape(body, depth, syntax.Start(fn.Body)); err != nil {
		return err
	}

	if sig.ret != nil {
		return c.ensureType(sig.ret, body.typ, syntax.Start(fn.Body))
	}
	// Record the inferred return type for downstream calls.
	sig.ret = body.typ
	return nil
}

func (c *checker) checkBinding(b *syntax.Binding, depth int) error {
	ann := types.FromExpr(b.Type)
	if err := c.validateType(ann, syntax.Start(b.Type)); err != nil {
		return err
	}
	value, err := c.checkExpr(b.Value, modeMove)
	if err != nil {
		return err
	}
	if err := c.ensureNotEscape(value, depth, syntax.Start(b.Value)); err != nil {
		return err
	}
	if err := c.ensureType(ann, value.typ, syntax.Start(b.Value)); err != nil {
		return err
	}
	// Re-declaration in the same scope replaces the old binding.
	c.insert(b.Name.Name, ann, b.Mut, depth)
	return nil
}

func (c *checker) checkStmt(stmt syntax.Stmt) error {
	switch stmt := stmt.(type) {
	case *syntax.LetStmt:
		return c.checkBinding(&stmt.Binding, c.depth())
	case *syntax.AssignStmt:
		return c.checkAssign(stmt)
	case *syntax.ExprStmt:
		_, err := c.checkExpr(stmt.X, modeMove)
		return err
	}
	panic(fmt.Sprintf("unexpected statement %T", stmt))
}

func (c *checker) checkAssign(a *syntax.AssignStmt) error {
	bindingDepth, info, err := c.lookup(a.Target)
	if err != nil {
		return err
	}
	if !info.mutable {
		return Error{
			Pos:  syntax.Start(a.Target),
			Kind: NotMutable,
			Msg:  "assignment to immutable binding: " + a.Target.PathString(),
		}
	}
	value, err := c.checkExpr(a.Value, modeMove)
	if err != nil {
		return err
	}
	if err := c.ensureNotEscape(value, bindingDepth, syntax.Start(a.Value)); err != nil {
		return err
	}
	if err := c.ensureType(info.typ, value.typ, syntax.Start(a.Value)); err != nil {
		return err
	}
	// Assignment refreshes the binding: a moved-out binding becomes
	// usable again.
	c.setMoved(a.Target, false)
	return nil
}

// checkBlock checks a block expression. allowEscape is true only for a
// function body, where the tail value may outlive the block; everywhere
// else a block's value is pinned to the scope it was produced in.
func (c *checker) checkBlock(b *syntax.BlockExpr, allowEscape bool) (tyInfo, error) {
	c.push()
	defer c.pop()
	depth := c.depth()
	for _, stmt := range b.Stmts {
		if err := c.checkStmt(stmt); err != nil {
			return tyInfo{}, err
		}
	}
	if b.Tail == nil {
		return tyInfo{typ: types.Unit, originDepth: depth, escapable: true}, nil
	}

	info, err := c.checkExpr(b.Tail, modeMove)
	if err != nil {
		return tyInfo{}, err
	}
	pos := syntax.Start(b.Tail)
	if info.originDepth > depth {
		hasRef, err := c.containsRef(info.typ, pos)
		if err != nil {
			return tyInfo{}, err
		}
		if !allowEscape || hasRef || !info.escapable {
			return tyInfo{}, Error{Pos: pos, Kind: Escape, Msg: "value escapes its defining block"}
		}
	} else if err := c.ensureNotEscape(info, depth, pos); err != nil {
		return tyInfo{}, err
	}

	if allowEscape {
		// Normalize the origin to the body's depth; the value is
		// escapable only if it carries no references.
		hasRef, err := c.containsRef(info.typ, pos)
		if err != nil {
			return tyInfo{}, err
		}
		return tyInfo{typ: info.typ, originDepth: depth, escapable: !hasRef}, nil
	}
	return tyInfo{typ: info.typ, originDepth: info.originDepth, escapable: false}, nil
}

func (c *checker) checkExpr(e syntax.Expr, mode valueMode) (tyInfo, error) {
	switch e := e.(type) {
	case *syntax.Literal:
		return tyInfo{typ: literalType(e), originDepth: c.depth(), escapable: true}, nil

	case *syntax.PathExpr:
		return c.evalPath(e, mode)

	case *syntax.CopyExpr:
		return c.checkExpr(e.X, modeCopy)

	case *syntax.RefExpr:
		info, err := c.checkExpr(e.X, modeBorrow)
		if err != nil {
			return tyInfo{}, err
		}
		return tyInfo{
			typ:         &types.Ref{Elem: info.typ},
			originDepth: info.originDepth,
			escapable:   info.escapable,
		}, nil

	case *syntax.CallExpr:
		return c.evalCall(e)

	case *syntax.IfExpr:
		cond, err := c.checkExpr(e.Cond, modeMove)
		if err != nil {
			return tyInfo{}, err
		}
		if err := c.ensureType(types.Bool, cond.typ, syntax.Start(e.Cond)); err != nil {
			return tyInfo{}, err
		}
		t, err := c.checkExpr(e.Then, modeMove)
		if err != nil {
			return tyInfo{}, err
		}
		el, err := c.checkExpr(e.Else, modeMove)
		if err != nil {
			return tyInfo{}, err
		}
		if err := c.ensureType(t.typ, el.typ, syntax.Start(e.Else)); err != nil {
			return tyInfo{}, err
		}
		return tyInfo{
			typ:         t.typ,
			originDepth: maxInt(t.originDepth, el.originDepth),
			escapable:   t.escapable && el.escapable,
		}, nil

	case *syntax.BlockExpr:
		return c.checkBlock(e, false)

	case *syntax.RecordExpr:
		fields := make([]types.Field, 0, len(e.Fields))
		maxDepth := c.depth()
		escapable := true
		for _, f := range e.Fields {
			val, err := c.checkExpr(f.Value, modeMove)
			if err != nil {
				return tyInfo{}, err
			}
			maxDepth = maxInt(maxDepth, val.originDepth)
			escapable = escapable && val.escapable
			fields = append(fields, types.Field{Name: f.Name.Name, Type: val.typ})
		}
		return tyInfo{
			typ:         &types.Record{Fields: fields},
			originDepth: maxDepth,
			escapable:   escapable,
		}, nil

	case *syntax.UnaryExpr:
		val, err := c.checkExpr(e.X, modeMove)
		if err != nil {
			return tyInfo{}, err
		}
		want := types.I32
		if e.Op == syntax.BANG {
			want = types.Bool
		}
		if err := c.ensureType(want, val.typ, syntax.Start(e.X)); err != nil {
			return tyInfo{}, err
		}
		return val, nil

	case *syntax.BinaryExpr:
		return c.checkBinary(e)
	}
	panic(fmt.Sprintf("unexpected expression %T", e))
}

func (c *checker) checkBinary(e *syntax.BinaryExpr) (tyInfo, error) {
	l, err := c.checkExpr(e.X, modeMove)
	if err != nil {
		return tyInfo{}, err
	}
	r, err := c.checkExpr(e.Y, modeMove)
	if err != nil {
		return tyInfo{}, err
	}
	origin := maxInt(l.originDepth, r.originDepth)
	escapable := l.escapable && r.escapable

	switch e.Op {
	case syntax.PLUS:
		// i32 arithmetic, or Str + Str concatenation.
		li, err := c.isType(l.typ, types.I32, e.OpPos)
		if err != nil {
			return tyInfo{}, err
		}
		ri, err := c.isType(r.typ, types.I32, e.OpPos)
		if err != nil {
			return tyInfo{}, err
		}
		if li && ri {
			return tyInfo{typ: types.I32, originDepth: origin, escapable: escapable}, nil
		}
		ls, err := c.isType(l.typ, types.Str, e.OpPos)
		if err != nil {
			return tyInfo{}, err
		}
		rs, err := c.isType(r.typ, types.Str, e.OpPos)
		if err != nil {
			return tyInfo{}, err
		}
		if ls && rs {
			return tyInfo{typ: types.Str, originDepth: origin, escapable: escapable}, nil
		}
		return tyInfo{}, Error{
			Pos:  e.OpPos,
			Kind: TypeMismatch,
			Msg:  fmt.Sprintf("type mismatch: expected %s, found %s", l.typ, r.typ),
		}

	case syntax.MINUS, syntax.STAR, syntax.SLASH:
		if err := c.ensureType(types.I32, l.typ, syntax.Start(e.X)); err != nil {
			return tyInfo{}, err
		}
		if err := c.ensureType(types.I32, r.typ, syntax.Start(e.Y)); err != nil {
			return tyInfo{}, err
		}
		return tyInfo{typ: types.I32, originDepth: origin, escapable: escapable}, nil

	case syntax.LT, syntax.EQL:
		if err := c.ensureType(l.typ, r.typ, syntax.Start(e.Y)); err != nil {
			return tyInfo{}, err
		}
		return tyInfo{typ: types.Bool, originDepth: origin, escapable: escapable}, nil

	case syntax.AND, syntax.OR:
		if err := c.ensureType(types.Bool, l.typ, syntax.Start(e.X)); err != nil {
			return tyInfo{}, err
		}
		if err := c.ensureType(types.Bool, r.typ, syntax.Start(e.Y)); err != nil {
			return tyInfo{}, err
		}
		return tyInfo{typ: types.Bool, originDepth: origin, escapable: escapable}, nil
	}
	panic(fmt.Sprintf("unexpected binary operator %s", e.Op))
}

func (c *checker) evalPath(p *syntax.PathExpr, mode valueMode) (tyInfo, error) {
	_, info, err := c.lookup(p)
	if err != nil {
		return tyInfo{}, err
	}
	if info.moved {
		return tyInfo{}, Error{Pos: syntax.Start(p), Kind: Moved, Msg: "value moved: " + p.PathString()}
	}
	if mode == modeMove {
		c.setMoved(p, true)
	}
	// A binding's value is never escapable in place; copy it or let a
	// function boundary launder it.
	return tyInfo{typ: info.typ, originDepth: info.originDepth, escapable: false}, nil
}

func (c *checker) evalCall(call *syntax.CallExpr) (tyInfo, error) {
	pos := syntax.Start(call.Fn)
	if len(call.Fn.Names) != 1 {
		return tyInfo{}, Error{Pos: pos, Kind: UnknownFunc, Msg: "unknown function " + call.Fn.PathString()}
	}
	name := call.Fn.Names[0].Name
	sig, ok := c.funcs[name]
	if !ok {
		msg := "unknown function " + name
		if alt := nearest(name, c.funcNames()); alt != "" {
			msg += fmt.Sprintf(" (did you mean %s?)", alt)
		}
		return tyInfo{}, Error{Pos: pos, Kind: UnknownFunc, Msg: msg}
	}
	if len(sig.params) != len(call.Args) {
		return tyInfo{}, Error{
			Pos:  pos,
			Kind: ArityMismatch,
			Msg:  fmt.Sprintf("function arity mismatch: expected %d, found %d", len(sig.params), len(call.Args)),
		}
	}
	for i, argExpr := range call.Args {
		arg, err := c.checkExpr(argExpr, modeMove)
		if err != nil {
			return tyInfo{}, err
		}
		p := sig.params[i]
		if err := c.validateType(p.typ, syntax.Start(argExpr)); err != nil {
			return tyInfo{}, err
		}
		if err := c.ensureType(p.typ, arg.typ, syntax.Start(argExpr)); err != nil {
			return tyInfo{}, err
		}
	}
	if sig.ret == nil {
		return tyInfo{}, Error{
			Pos:  pos,
			Kind: UnknownReturn,
			Msg:  fmt.Sprintf("cannot infer return type for function %s yet", name),
		}
	}
	hasRef, err := c.containsRef(sig.ret, pos)
	if err != nil {
		return tyInfo{}, err
	}
	return tyInfo{typ: sig.ret, originDepth: c.depth(), escapable: !hasRef}, nil
}

// lookup finds the binding named by the path's head and then resolves
// any field selections, dereferencing references transparently. It
// returns the index of the declaring scope and a view of the binding
// whose type is that of the selected field.
func (c *checker) lookup(p *syntax.PathExpr) (int, binding, error) {
	head := p.Names[0]
	for i := len(c.scopes) - 1; i >= 0; i-- {
		info, ok := c.scopes[i][head.Name]
		if !ok {
			continue
		}
		typ := info.typ
		for _, field := range p.Names[1:] {
			for {
				rt, err := c.env.Resolve(typ)
				if err != nil {
					return 0, binding{}, c.typeErr(err, field.NamePos)
				}
				ref, ok := rt.(*types.Ref)
				if !ok {
					typ = rt
					break
				}
				typ = ref.Elem
			}
			rec, ok := typ.(*types.Record)
			if !ok {
				return 0, binding{}, Error{
					Pos:  field.NamePos,
					Kind: UnknownIdent,
					Msg:  "unknown identifier " + field.Name,
				}
			}
			ft := rec.Field(field.Name)
			if ft == nil {
				msg := "unknown identifier " + field.Name
				var names []string
				for _, f := range rec.Fields {
					names = append(names, f.Name)
				}
				if alt := nearest(field.Name, names); alt != "" {
					msg += fmt.Sprintf(" (did you mean %s?)", alt)
				}
				return 0, binding{}, Error{Pos: field.NamePos, Kind: UnknownIdent, Msg: msg}
			}
			typ = ft
		}
		return i, binding{
			typ:         typ,
			mutable:     info.mutable,
			moved:       info.moved,
			originDepth: info.originDepth,
		}, nil
	}
	msg := "unknown identifier " + head.Name
	if alt := nearest(head.Name, c.varNames()); alt != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", alt)
	}
	return 0, binding{}, Error{Pos: head.NamePos, Kind: UnknownIdent, Msg: msg}
}

// setMoved marks the binding at the path's head. Moving through a
// field selection consumes the whole binding.
func (c *checker) setMoved(p *syntax.PathExpr, moved bool) {
	name := p.Names[0].Name
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if info, ok := c.scopes[i][name]; ok {
			info.moved = moved
			return
		}
	}
}

func (c *checker) ensureType(expected, found types.Type, pos syntax.Position) error {
	eq, err := c.env.Equal(expected, found)
	if err != nil {
		return c.typeErr(err, pos)
	}
	if !eq {
		return Error{
			Pos:  pos,
			Kind: TypeMismatch,
			Msg:  fmt.Sprintf("type mismatch: expected %s, found %s", expected, found),
		}
	}
	return nil
}

func (c *checker) isType(t, want types.Type, pos syntax.Position) (bool, error) {
	eq, err := c.env.Equal(t, want)
	if err != nil {
		return false, c.typeErr(err, pos)
	}
	return eq, nil
}

func (c *checker) ensureNotEscape(info tyInfo, targetDepth int, pos syntax.Position) error {
	if info.originDepth <= targetDepth {
		return nil
	}
	hasRef, err := c.containsRef(info.typ, pos)
	if err != nil {
		return err
	}
	if !info.escapable || hasRef {
		return Error{Pos: pos, Kind: Escape, Msg: "value escapes its defining block"}
	}
	return nil
}

func (c *checker) containsRef(t types.Type, pos syntax.Position) (bool, error) {
	has, err := c.env.ContainsRef(t)
	if err != nil {
		return false, c.typeErr(err, pos)
	}
	return has, nil
}

// validateType checks that every type name mentioned in t is a builtin
// or a declared alias, following alias definitions.
func (c *checker) validateType(t types.Type, pos syntax.Position) error {
	return c.validate(t, pos, nil)
}

func (c *checker) validate(t types.Type, pos syntax.Position, visited map[string]bool) error {
	switch t := t.(type) {
	case *types.Named:
		if types.IsBuiltin(t.Name) {
			return nil
		}
		def, ok := c.env.Lookup(t.Name)
		if !ok {
			msg := "unknown type " + t.Name
			if alt := nearest(t.Name, c.typeNames()); alt != "" {
				msg += fmt.Sprintf(" (did you mean %s?)", alt)
			}
			return Error{Pos: pos, Kind: UnknownType, Msg: msg}
		}
		if visited[t.Name] {
			return nil
		}
		if visited == nil {
			visited = make(map[string]bool)
		}
		visited[t.Name] = true
		return c.validate(def, pos, visited)
	case *types.Ref:
		return c.validate(t.Elem, pos, visited)
	case *types.Record:
		for _, f := range t.Fields {
			if err := c.validate(f.Type, pos, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

// typeErr converts a types package error into a checker error.
func (c *checker) typeErr(err error, pos syntax.Position) error {
	switch err := err.(type) {
	case *types.UnknownTypeError:
		return Error{Pos: pos, Kind: UnknownType, Msg: "unknown type " + err.Name}
	case *types.CycleError:
		return Error{Pos: pos, Kind: UnknownType, Msg: err.Error()}
	}
	return err
}

func (c *checker) push() { c.scopes = append(c.scopes, make(scope)) }
func (c *checker) pop()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *checker) depth() int { return len(c.scopes) - 1 }

func (c *checker) insert(name string, typ types.Type, mutable bool, originDepth int) {
	c.scopes[len(c.scopes)-1][name] = &binding{
		typ:         typ,
		mutable:     mutable,
		originDepth: originDepth,
	}
}

// funcNames returns the names of all known functions, sorted,
// for use as spelling candidates.
func (c *checker) funcNames() []string {
	names := make([]string, 0, len(c.funcs))
	for name := range c.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *checker) varNames() []string {
	var names []string
	for _, s := range c.scopes {
		for name := range s {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *checker) typeNames() []string {
	names := append([]string(nil), "i32", "i64", "u8", "bool", "Str", "Bytes", "Unit")
	names = append(names, c.env.Names()...)
	return names
}

func literalType(l *syntax.Literal) types.Type {
	switch l.Token {
	case syntax.INT:
		return types.I32
	case syntax.STRING:
		return types.Str
	case syntax.TRUE, syntax.FALSE:
		return types.Bool
	case syntax.UNIT:
		return types.Unit
	}
	panic(fmt.Sprintf("unexpected literal token %s", l.Token))
}

func maxInt(x, y int) int {
	if x > y {
		return x
	}
	return y
}
