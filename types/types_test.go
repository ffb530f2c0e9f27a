// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types_test

import (
	"testing"

	"go.gaut.net/syntax"
	"go.gaut.net/types"
)

func mustType(t *testing.T, src string) types.Type {
	t.Helper()
	// Parse the annotation as the parameter type of a dummy function.
	prog, err := syntax.Parse("test.gaut", "f(x: "+src+") = 1")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return types.FromExpr(prog.Decls[0].(*syntax.FuncDecl).Params[0].Type)
}

func TestString(t *testing.T) {
	for _, test := range []struct {
		src, want string
	}{
		{`i32`, `i32`},
		{`&Point`, `&Point`},
		{`{ x: i32, y: i32 }`, `{ x: i32, y: i32 }`},
		{`&{ s: Str }`, `&{ s: Str }`},
	} {
		if got := mustType(t, test.src).String(); got != test.want {
			t.Errorf("String(%s) = %s, want %s", test.src, got, test.want)
		}
	}
}

func TestResolve(t *testing.T) {
	env := types.NewEnv()
	env.Define("Point", mustType(t, `{ x: i32, y: i32 }`))
	env.Define("P2", &types.Named{Name: "Point"})

	got, err := env.Resolve(&types.Named{Name: "P2"})
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := got.(*types.Record)
	if !ok || len(rec.Fields) != 2 {
		t.Fatalf("Resolve(P2) = %v, want Point's record", got)
	}

	// Builtins resolve to themselves.
	got, err = env.Resolve(types.I32)
	if err != nil || got != types.I32 {
		t.Errorf("Resolve(i32) = %v, %v", got, err)
	}

	// Predeclared alias.
	if _, err := env.Resolve(&types.Named{Name: "ReadFileResult"}); err != nil {
		t.Errorf("Resolve(ReadFileResult): %v", err)
	}

	if _, err := env.Resolve(&types.Named{Name: "Bogus"}); err == nil {
		t.Error("Resolve(Bogus): unexpected success")
	} else if _, ok := err.(*types.UnknownTypeError); !ok {
		t.Errorf("Resolve(Bogus): got %T, want UnknownTypeError", err)
	}
}

func TestResolveCycle(t *testing.T) {
	env := types.NewEnv()
	env.Define("A", &types.Named{Name: "B"})
	env.Define("B", &types.Named{Name: "A"})
	_, err := env.Resolve(&types.Named{Name: "A"})
	if _, ok := err.(*types.CycleError); !ok {
		t.Fatalf("got %v, want CycleError", err)
	}
}

func TestEqual(t *testing.T) {
	env := types.NewEnv()
	env.Define("Point", mustType(t, `{ x: i32, y: i32 }`))
	env.Define("Pair", mustType(t, `{ x: i32, y: i32 }`))
	env.Define("Flipped", mustType(t, `{ y: i32, x: i32 }`))

	for _, test := range []struct {
		a, b types.Type
		want bool
	}{
		{types.I32, types.I32, true},
		{types.I32, types.I64, false},
		{&types.Named{Name: "Point"}, mustType(t, `{ x: i32, y: i32 }`), true},
		// Structural: two aliases with the same shape are the same type.
		{&types.Named{Name: "Point"}, &types.Named{Name: "Pair"}, true},
		// Field order is significant.
		{&types.Named{Name: "Point"}, &types.Named{Name: "Flipped"}, false},
		{mustType(t, `&Point`), mustType(t, `&Pair`), true},
		{mustType(t, `&Point`), &types.Named{Name: "Point"}, false},
		{types.Unit, types.Unit, true},
	} {
		got, err := env.Equal(test.a, test.b)
		if err != nil {
			t.Errorf("Equal(%s, %s): %v", test.a, test.b, err)
			continue
		}
		if got != test.want {
			t.Errorf("Equal(%s, %s) = %v, want %v", test.a, test.b, got, test.want)
		}
	}
}

func TestContainsRef(t *testing.T) {
	env := types.NewEnv()
	env.Define("Point", mustType(t, `{ x: i32, y: i32 }`))
	env.Define("View", mustType(t, `{ p: &Point }`))
	env.Define("Nested", mustType(t, `{ v: View }`))

	for _, test := range []struct {
		t    types.Type
		want bool
	}{
		{types.I32, false},
		{mustType(t, `&i32`), true},
		{&types.Named{Name: "Point"}, false},
		{&types.Named{Name: "View"}, true},
		{&types.Named{Name: "Nested"}, true},
		{mustType(t, `{ a: i32, b: &Str }`), true},
	} {
		got, err := env.ContainsRef(test.t)
		if err != nil {
			t.Errorf("ContainsRef(%s): %v", test.t, err)
			continue
		}
		if got != test.want {
			t.Errorf("ContainsRef(%s) = %v, want %v", test.t, got, test.want)
		}
	}
}
