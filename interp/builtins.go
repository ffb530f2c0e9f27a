// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interp

import (
	"os"

	"go.gaut.net/syntax"
)

// evalBuiltin evaluates a call to a builtin function, reporting
// whether the name is a builtin at all. It is consulted only after
// user-declared functions, so a program may shadow any builtin with
// its own definition.
func (in *Interpreter) evalBuiltin(name string, call *syntax.CallExpr, env *env) (Value, bool, error) {
	pos := syntax.Start(call.Fn)

	arg := func(i int) (Value, error) {
		return in.evalExpr(call.Args[i], env, modeMove)
	}
	strArg := func(i int) (Str, error) {
		v, err := arg(i)
		if err != nil {
			return "", err
		}
		s, ok := v.(Str)
		if !ok {
			return "", in.errorf(syntax.Start(call.Args[i]), "%s expects a Str argument, not %s", name, v.Type())
		}
		return s, nil
	}
	intArg := func(i int) (Int, error) {
		v, err := arg(i)
		if err != nil {
			return 0, err
		}
		n, ok := v.(Int)
		if !ok {
			return 0, in.errorf(syntax.Start(call.Args[i]), "%s expects an i32 argument, not %s", name, v.Type())
		}
		return n, nil
	}
	arity := func(n int) error {
		if len(call.Args) != n {
			return in.errorf(pos, "%s expects %d arguments, found %d", name, n, len(call.Args))
		}
		return nil
	}

	switch name {
	case "print", "println":
		if len(call.Args) != 1 {
			return nil, true, in.errorf(pos, "%s expects one argument", name)
		}
		v, err := arg(0)
		if err != nil {
			return nil, true, err
		}
		s, ok := v.(Str)
		if !ok {
			s = Str(v.String())
		}
		text := string(s)
		if name == "println" {
			text += "\n"
		}
		in.print(text)
		// print and println evaluate to their argument,
		// so calls can be chained into Str bindings.
		return s, true, nil

	case "read_file":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		path, err := strArg(0)
		if err != nil {
			return nil, true, err
		}
		data, err := os.ReadFile(string(path))
		if err != nil {
			return nil, true, in.errorf(pos, "read_file: %v", err)
		}
		return Str(data), true, nil

	case "write_file":
		if err := arity(2); err != nil {
			return nil, true, err
		}
		path, err := strArg(0)
		if err != nil {
			return nil, true, err
		}
		data, err := strArg(1)
		if err != nil {
			return nil, true, err
		}
		if err := os.WriteFile(string(path), []byte(data), 0666); err != nil {
			return nil, true, in.errorf(pos, "write_file: %v", err)
		}
		return Unit{}, true, nil

	case "try_read_file":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		path, err := strArg(0)
		if err != nil {
			return nil, true, err
		}
		rec := NewRecord()
		data, err := os.ReadFile(string(path))
		rec.Set("ok", Bool(err == nil))
		rec.Set("data", Str(data))
		return rec, true, nil

	case "try_write_file":
		if err := arity(2); err != nil {
			return nil, true, err
		}
		path, err := strArg(0)
		if err != nil {
			return nil, true, err
		}
		data, err := strArg(1)
		if err != nil {
			return nil, true, err
		}
		err = os.WriteFile(string(path), []byte(data), 0666)
		return Bool(err == nil), true, nil

	case "args":
		if err := arity(0); err != nil {
			return nil, true, err
		}
		argv := in.Args
		if argv == nil {
			argv = os.Args
		}
		// Encode argv as bytes joined by '\n', including argv[0].
		total := 0
		for i, s := range argv {
			total += len(s)
			if i+1 < len(argv) {
				total++
			}
		}
		buf, err := env.scratch(total)
		if err != nil {
			return nil, true, in.errorf(pos, "%v", err)
		}
		off := 0
		for i, s := range argv {
			off += copy(buf[off:], s)
			if i+1 < len(argv) {
				buf[off] = '\n'
				off++
			}
		}
		return Bytes(append([]byte(nil), buf[:off]...)), true, nil

	case "bytes_to_str":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		v, err := arg(0)
		if err != nil {
			return nil, true, err
		}
		b, ok := v.(Bytes)
		if !ok {
			return nil, true, in.errorf(syntax.Start(call.Args[0]), "bytes_to_str expects a Bytes argument, not %s", v.Type())
		}
		return Str(b), true, nil

	case "str_len":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		s, err := strArg(0)
		if err != nil {
			return nil, true, err
		}
		return Int(len(s)), true, nil

	case "str_byte_at":
		if err := arity(2); err != nil {
			return nil, true, err
		}
		s, err := strArg(0)
		if err != nil {
			return nil, true, err
		}
		i, err := intArg(1)
		if err != nil {
			return nil, true, err
		}
		if i < 0 || int(i) >= len(s) {
			return Int(0), true, nil
		}
		return Int(s[i]), true, nil

	case "str_slice":
		if err := arity(3); err != nil {
			return nil, true, err
		}
		s, err := strArg(0)
		if err != nil {
			return nil, true, err
		}
		start, err := intArg(1)
		if err != nil {
			return nil, true, err
		}
		n, err := intArg(2)
		if err != nil {
			return nil, true, err
		}
		// Clamp the window to the string's bounds.
		lo := int(start)
		if lo < 0 {
			lo = 0
		}
		if lo > len(s) {
			lo = len(s)
		}
		hi := lo + int(n)
		if n < 0 || hi < lo {
			hi = lo
		}
		if hi > len(s) {
			hi = len(s)
		}
		return s[lo:hi], true, nil
	}
	return nil, false, nil
}
