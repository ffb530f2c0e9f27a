// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package interp provides a tree-walking evaluator for gaut programs.
//
// The evaluator enforces the same linear-ownership discipline as the
// static checker: a bare mention of a binding moves its value out, and
// a moved binding yields an error when used again. Programs are meant
// to be checked first (see go.gaut.net/check); the evaluator reports
// any fault it still encounters as an *EvalError rather than
// panicking.
//
// Scratch bytes for string and buffer assembly are staged in a bump
// arena whose space is reclaimed as each scope is left; exhausting
// the arena is an evaluation error, not a silent spill to the heap.
package interp // import "go.gaut.net/interp"

import (
	"fmt"
	"os"
	"strings"

	"go.gaut.net/internal/arena"
	"go.gaut.net/syntax"
)

// DefaultArenaCap is the scratch arena capacity used when the caller
// does not choose one.
const DefaultArenaCap = 1 << 16

// A Frame records one active function during evaluation.
type Frame struct {
	Name string // function name, or "<toplevel>"
	Pos  syntax.Position
}

// An EvalError is an error during evaluation, with the stack of active
// calls at the moment of failure.
type EvalError struct {
	Msg       string
	CallStack []Frame // outermost call first
}

func (e *EvalError) Error() string { return e.Msg }

// Backtrace returns a user-friendly error message describing the stack
// of calls that led to this error.
func (e *EvalError) Backtrace() string {
	var buf strings.Builder
	buf.WriteString("Traceback (most recent call last):\n")
	for _, fr := range e.CallStack {
		fmt.Fprintf(&buf, "  %s: in %s\n", fr.Pos, fr.Name)
	}
	buf.WriteString("Error: " + e.Msg)
	return buf.String()
}

// An Interpreter evaluates gaut programs.
//
// Load functions and globals with Load, then invoke RunMain.
// An Interpreter is not safe for concurrent use.
type Interpreter struct {
	// Print is invoked by the print and println builtins with the
	// text to emit, newline included for println. If nil, the text
	// is written to standard output.
	Print func(text string)

	// Args supplies the argument vector reported by the args
	// builtin. If nil, os.Args is used.
	Args []string

	arenaCap int
	globals  map[string]*binding
	funcs    map[string]*syntax.FuncDecl
	frames   []*Frame
}

// A binding is one named slot. A nil value marks a moved-out binding.
type binding struct {
	mutable bool
	value   Value
}

type evalMode int8

const (
	modeMove evalMode = iota
	modeCopy
	modeBorrow
)

// New returns an interpreter whose scratch arena has the given
// capacity in bytes; zero or negative means DefaultArenaCap.
func New(arenaCap int) *Interpreter {
	if arenaCap <= 0 {
		arenaCap = DefaultArenaCap
	}
	return &Interpreter{
		arenaCap: arenaCap,
		globals:  make(map[string]*binding),
		funcs:    make(map[string]*syntax.FuncDecl),
	}
}

// Load registers the program's functions and evaluates its global
// bindings, in declaration order. It may be called more than once;
// later declarations shadow earlier ones of the same name.
func (in *Interpreter) Load(prog *syntax.Program) error {
	for _, decl := range prog.Decls {
		if fn, ok := decl.(*syntax.FuncDecl); ok {
			in.funcs[fn.Name.Name] = fn
		}
	}
	for _, decl := range prog.Decls {
		vd, ok := decl.(*syntax.VarDecl)
		if !ok {
			continue
		}
		env := newEnv(in.arenaCap)
		in.frames = append(in.frames, &Frame{Name: "<toplevel>", Pos: syntax.Start(vd)})
		val, err := in.evalExpr(vd.Value, env, modeMove)
		in.frames = in.frames[:len(in.frames)-1]
		if err != nil {
			return err
		}
		in.globals[vd.Name.Name] = &binding{mutable: vd.Mut, value: val}
	}
	return nil
}

// RunMain evaluates a call of the program's main function and returns
// its result. Each run sees a fresh copy of the globals.
func (in *Interpreter) RunMain() (Value, error) {
	fn, ok := in.funcs["main"]
	if !ok {
		return nil, &EvalError{Msg: "unknown identifier main"}
	}
	env := newEnv(in.arenaCap)
	env.push()
	for name, g := range in.globals {
		env.insert(name, &binding{mutable: g.mutable, value: copyValue(g.value)})
	}
	return in.call(fn, nil, env)
}

func (in *Interpreter) call(fn *syntax.FuncDecl, args []Value, env *env) (Value, error) {
	if len(fn.Params) != len(args) {
		return nil, in.errorf(syntax.Start(fn), "arity mismatch calling %s", fn.Name.Name)
	}
	in.frames = append(in.frames, &Frame{Name: fn.Name.Name, Pos: syntax.Start(fn)})
	defer func() { in.frames = in.frames[:len(in.frames)-1] }()

	env.push()
	defer env.pop()
	for i, p := range fn.Params {
		env.insert(p.Name.Name, &binding{mutable: p.Mut, value: args[i]})
	}
	if b, ok := fn.Body.(*syntax.BlockExpr); ok {
		return in.evalBlock(b, env)
	}
	return in.evalExpr(fn.Body, env, modeMove)
}

func (in *Interpreter) evalBlock(b *syntax.BlockExpr, env *env) (Value, error) {
	env.push()
	defer env.pop()
	for _, stmt := range b.Stmts {
		if err := in.evalStmt(stmt, env); err != nil {
			return nil, err
		}
	}
	if b.Tail == nil {
		return Unit{}, nil
	}
	return in.evalExpr(b.Tail, env, modeMove)
}

func (in *Interpreter) evalStmt(stmt syntax.Stmt, env *env) error {
	if len(in.frames) > 0 {
		in.frames[len(in.frames)-1].Pos = syntax.Start(stmt)
	}
	switch stmt := stmt.(type) {
	case *syntax.LetStmt:
		val, err := in.evalExpr(stmt.Value, env, modeMove)
		if err != nil {
			return err
		}
		env.insert(stmt.Name.Name, &binding{mutable: stmt.Mut, value: val})
		return nil
	case *syntax.AssignStmt:
		val, err := in.evalExpr(stmt.Value, env, modeMove)
		if err != nil {
			return err
		}
		return in.assignPath(stmt.Target, val, env)
	case *syntax.ExprStmt:
		_, err := in.evalExpr(stmt.X, env, modeMove)
		return err
	}
	panic(fmt.Sprintf("unexpected statement %T", stmt))
}

func (in *Interpreter) evalExpr(e syntax.Expr, env *env, mode evalMode) (Value, error) {
	switch e := e.(type) {
	case *syntax.Literal:
		switch e.Token {
		case syntax.INT:
			return Int(e.Value.(int64)), nil
		case syntax.STRING:
			return Str(e.Value.(string)), nil
		case syntax.TRUE, syntax.FALSE:
			return Bool(e.Value.(bool)), nil
		case syntax.UNIT:
			return Unit{}, nil
		}

	case *syntax.PathExpr:
		return in.resolvePath(e, env, mode)

	case *syntax.CopyExpr:
		return in.evalExpr(e.X, env, modeCopy)

	case *syntax.RefExpr:
		// A reference evaluates as a borrow of the referent; the
		// checker guarantees it never outlives the binding.
		return in.evalExpr(e.X, env, modeBorrow)

	case *syntax.CallExpr:
		return in.evalCall(e, env)

	case *syntax.IfExpr:
		cond, err := in.evalExpr(e.Cond, env, modeMove)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(Bool)
		if !ok {
			return nil, in.errorf(syntax.Start(e.Cond), "if condition must be bool, not %s", cond.Type())
		}
		if b {
			return in.evalExpr(e.Then, env, modeMove)
		}
		return in.evalExpr(e.Else, env, modeMove)

	case *syntax.BlockExpr:
		return in.evalBlock(e, env)

	case *syntax.RecordExpr:
		rec := NewRecord()
		for _, f := range e.Fields {
			v, err := in.evalExpr(f.Value, env, modeMove)
			if err != nil {
				return nil, err
			}
			rec.Set(f.Name.Name, v)
		}
		return rec, nil

	case *syntax.UnaryExpr:
		v, err := in.evalExpr(e.X, env, modeMove)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case syntax.MINUS:
			if i, ok := v.(Int); ok {
				return -i, nil
			}
		case syntax.BANG:
			if b, ok := v.(Bool); ok {
				return !b, nil
			}
		}
		return nil, in.errorf(e.OpPos, "invalid operand for %s: %s", e.Op, v.Type())

	case *syntax.BinaryExpr:
		l, err := in.evalExpr(e.X, env, modeMove)
		if err != nil {
			return nil, err
		}
		r, err := in.evalExpr(e.Y, env, modeMove)
		if err != nil {
			return nil, err
		}
		return in.evalBinary(e, l, r, env)
	}
	panic(fmt.Sprintf("unexpected expression %T", e))
}

func (in *Interpreter) evalBinary(e *syntax.BinaryExpr, l, r Value, env *env) (Value, error) {
	switch e.Op {
	case syntax.PLUS:
		if a, ok := l.(Int); ok {
			if b, ok := r.(Int); ok {
				return a + b, nil
			}
		}
		if a, ok := l.(Str); ok {
			if b, ok := r.(Str); ok {
				s, err := env.concatStr(a, b)
				if err != nil {
					return nil, in.errorf(e.OpPos, "%v", err)
				}
				return s, nil
			}
		}

	case syntax.MINUS:
		if a, ok := l.(Int); ok {
			if b, ok := r.(Int); ok {
				return a - b, nil
			}
		}

	case syntax.STAR:
		if a, ok := l.(Int); ok {
			if b, ok := r.(Int); ok {
				return a * b, nil
			}
		}

	case syntax.SLASH:
		if a, ok := l.(Int); ok {
			if b, ok := r.(Int); ok {
				if b == 0 {
					return nil, in.errorf(e.OpPos, "division by zero")
				}
				return a / b, nil
			}
		}

	case syntax.LT:
		if a, ok := l.(Int); ok {
			if b, ok := r.(Int); ok {
				return Bool(a < b), nil
			}
		}

	case syntax.EQL:
		return Bool(Equal(l, r)), nil

	case syntax.AND:
		if a, ok := l.(Bool); ok {
			if b, ok := r.(Bool); ok {
				return a && b, nil
			}
		}

	case syntax.OR:
		if a, ok := l.(Bool); ok {
			if b, ok := r.(Bool); ok {
				return a || b, nil
			}
		}
	}
	return nil, in.errorf(e.OpPos, "invalid operands for %s: %s and %s", e.Op, l.Type(), r.Type())
}

func (in *Interpreter) evalCall(call *syntax.CallExpr, env *env) (Value, error) {
	name := call.Fn.PathString()
	if fn, ok := in.funcs[name]; ok {
		args := make([]Value, len(call.Args))
		for i, a := range call.Args {
			v, err := in.evalExpr(a, env, modeMove)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return in.call(fn, args, env)
	}
	if v, ok, err := in.evalBuiltin(name, call, env); err != nil || ok {
		return v, err
	}
	return nil, in.errorf(syntax.Start(call.Fn), "unknown identifier %s", name)
}

func (in *Interpreter) resolvePath(p *syntax.PathExpr, env *env, mode evalMode) (Value, error) {
	head := p.Names[0]
	b := env.find(head.Name)
	if b == nil {
		return nil, in.errorf(head.NamePos, "unknown identifier %s", head.Name)
	}
	if b.value == nil {
		return nil, in.errorf(head.NamePos, "value moved: %s", head.Name)
	}

	var val Value
	if mode == modeMove {
		// Moving through a field selection consumes the whole
		// binding; the selected field is extracted destructively.
		val = b.value
		b.value = nil
	} else {
		val = copyValue(b.value)
	}
	for _, field := range p.Names[1:] {
		rec, ok := val.(*Record)
		if !ok {
			return nil, in.errorf(field.NamePos, "field access on non-record value")
		}
		v, ok := rec.Take(field.Name)
		if !ok {
			return nil, in.errorf(field.NamePos, "field not found: %s", field.Name)
		}
		val = v
	}
	return val, nil
}

func (in *Interpreter) assignPath(p *syntax.PathExpr, value Value, env *env) error {
	head := p.Names[0]
	b := env.find(head.Name)
	if b == nil {
		return in.errorf(head.NamePos, "unknown identifier %s", head.Name)
	}
	if !b.mutable {
		return in.errorf(head.NamePos, "not mutable: %s", head.Name)
	}
	if len(p.Names) == 1 {
		// Assignment refreshes a moved-out binding.
		b.value = value
		return nil
	}
	if b.value == nil {
		return in.errorf(head.NamePos, "value moved: %s", head.Name)
	}
	target := b.value
	for i, field := range p.Names[1:] {
		rec, ok := target.(*Record)
		if !ok {
			return in.errorf(field.NamePos, "assignment into non-record field")
		}
		if i == len(p.Names)-2 {
			if _, ok := rec.Get(field.Name); !ok {
				return in.errorf(field.NamePos, "field not found: %s", field.Name)
			}
			rec.Set(field.Name, value)
			return nil
		}
		next, ok := rec.Get(field.Name)
		if !ok {
			return in.errorf(field.NamePos, "field not found: %s", field.Name)
		}
		target = next
	}
	return nil
}

func (in *Interpreter) print(text string) {
	if in.Print != nil {
		in.Print(text)
		return
	}
	os.Stdout.WriteString(text)
}

func (in *Interpreter) errorf(pos syntax.Position, format string, args ...interface{}) *EvalError {
	stack := make([]Frame, len(in.frames))
	for i, fr := range in.frames {
		stack[i] = *fr
	}
	if len(stack) > 0 {
		stack[len(stack)-1].Pos = pos
	}
	return &EvalError{Msg: fmt.Sprintf(format, args...), CallStack: stack}
}

// An env is a stack of scopes over one scratch arena. Leaving a scope
// releases the scratch bytes staged while it was active.
type env struct {
	scopes []map[string]*binding
	arena  *arena.Arena
	marks  []int
}

func newEnv(arenaCap int) *env {
	return &env{arena: arena.New(arenaCap)}
}

func (e *env) push() {
	e.scopes = append(e.scopes, make(map[string]*binding))
	e.marks = append(e.marks, e.arena.Mark())
}

func (e *env) pop() {
	e.scopes = e.scopes[:len(e.scopes)-1]
	mark := e.marks[len(e.marks)-1]
	e.marks = e.marks[:len(e.marks)-1]
	e.arena.ReleaseTo(mark)
}

func (e *env) insert(name string, b *binding) {
	if len(e.scopes) == 0 {
		e.push()
	}
	e.scopes[len(e.scopes)-1][name] = b
}

func (e *env) find(name string) *binding {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if b, ok := e.scopes[i][name]; ok {
			return b
		}
	}
	return nil
}

// scratch returns n bytes of scope-lifetime scratch space.
// Exhausting the arena is an error, as in the C runtime.
func (e *env) scratch(n int) ([]byte, error) {
	return e.arena.Alloc(n)
}

// concatStr assembles a+b in scratch space and returns the result.
func (e *env) concatStr(a, b Str) (Str, error) {
	buf, err := e.scratch(len(a) + len(b))
	if err != nil {
		return "", err
	}
	copy(buf, a)
	copy(buf[len(a):], b)
	return Str(buf), nil
}
