// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package types defines the data types of the gaut language and an
// environment of type aliases, shared by the checker, the interpreter
// and the C code generator.
package types // import "go.gaut.net/types"

import (
	"fmt"
	"sort"
	"strings"

	"go.gaut.net/syntax"
)

// A Type is the type of a gaut value.
type Type interface {
	String() string
	typ()
}

func (*Named) typ()  {}
func (*Ref) typ()    {}
func (*Record) typ() {}

// A Named type is a builtin scalar or a declared alias, by name.
type Named struct {
	Name string
}

func (t *Named) String() string { return t.Name }

// A Ref is a non-owning reference to a value of the element type.
type Ref struct {
	Elem Type
}

func (t *Ref) String() string { return "&" + t.Elem.String() }

// A Record is a structural record type. Field order is significant.
type Record struct {
	Fields []Field
}

// A Field is a single record field.
type Field struct {
	Name string
	Type Type
}

func (t *Record) String() string {
	var buf strings.Builder
	buf.WriteString("{ ")
	for i, f := range t.Fields {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Type.String())
	}
	buf.WriteString(" }")
	return buf.String()
}

// Field returns the named field's type, or nil if absent.
func (t *Record) Field(name string) Type {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return nil
}

// The builtin scalar types.
var (
	I32   = &Named{"i32"}
	I64   = &Named{"i64"}
	U8    = &Named{"u8"}
	Bool  = &Named{"bool"}
	Str   = &Named{"Str"}
	Bytes = &Named{"Bytes"}
	Unit  = &Named{"Unit"}
)

var builtins = map[string]Type{
	"i32":   I32,
	"i64":   I64,
	"u8":    U8,
	"bool":  Bool,
	"Str":   Str,
	"Bytes": Bytes,
	"Unit":  Unit,
}

// IsBuiltin reports whether name is a builtin scalar type name.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// ReadFileResult is the record type returned by try_read_file
// and try_write_file. Every environment predeclares it.
var ReadFileResult = &Record{Fields: []Field{
	{"ok", Bool},
	{"data", Str},
}}

// FromExpr converts a syntactic type annotation to a Type.
func FromExpr(e syntax.TypeExpr) Type {
	switch e := e.(type) {
	case *syntax.NamedType:
		if t, ok := builtins[e.Name.Name]; ok {
			return t
		}
		return &Named{Name: e.Name.Name}
	case *syntax.RefType:
		return &Ref{Elem: FromExpr(e.Elem)}
	case *syntax.RecordType:
		rec := &Record{Fields: make([]Field, len(e.Fields))}
		for i, f := range e.Fields {
			rec.Fields[i] = Field{Name: f.Name.Name, Type: FromExpr(f.Type)}
		}
		return rec
	}
	panic(fmt.Sprintf("unexpected type expression %T", e))
}

// An Env maps type alias names to their definitions.
type Env struct {
	aliases map[string]Type
}

// NewEnv returns an environment holding only the predeclared aliases.
func NewEnv() *Env {
	return &Env{aliases: map[string]Type{
		"ReadFileResult": ReadFileResult,
	}}
}

// Define adds or replaces a type alias.
func (env *Env) Define(name string, t Type) {
	env.aliases[name] = t
}

// Names returns the declared alias names in sorted order.
func (env *Env) Names() []string {
	names := make([]string, 0, len(env.aliases))
	for name := range env.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the definition of an alias, if any.
func (env *Env) Lookup(name string) (Type, bool) {
	t, ok := env.aliases[name]
	return t, ok
}

// An UnknownTypeError is returned by Resolve for a name that is
// neither a builtin nor a declared alias.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string { return "unknown type: " + e.Name }

// A CycleError is returned by Resolve for a self-referential
// chain of aliases.
type CycleError struct {
	Name string
}

func (e *CycleError) Error() string { return "type alias cycle through " + e.Name }

// Resolve follows top-level alias names to the underlying type.
// The result is a builtin Named, a Ref, or a Record; its components
// may still contain unresolved names.
func (env *Env) Resolve(t Type) (Type, error) {
	var visited map[string]bool
	for {
		name, ok := t.(*Named)
		if !ok {
			return t, nil
		}
		if _, ok := builtins[name.Name]; ok {
			return name, nil
		}
		def, ok := env.aliases[name.Name]
		if !ok {
			return nil, &UnknownTypeError{Name: name.Name}
		}
		if visited[name.Name] {
			return nil, &CycleError{Name: name.Name}
		}
		if visited == nil {
			visited = make(map[string]bool)
		}
		visited[name.Name] = true
		t = def
	}
}

// Equal reports whether two types are equal after alias resolution.
// Records are compared structurally: same field names in the same
// order, with equal field types.
func (env *Env) Equal(a, b Type) (bool, error) {
	// Identical names are equal without resolution. This also
	// terminates the comparison of recursive aliases.
	if an, ok := a.(*Named); ok {
		if bn, ok := b.(*Named); ok && an.Name == bn.Name {
			return true, nil
		}
	}
	ra, err := env.Resolve(a)
	if err != nil {
		return false, err
	}
	rb, err := env.Resolve(b)
	if err != nil {
		return false, err
	}
	switch ra := ra.(type) {
	case *Named:
		rb, ok := rb.(*Named)
		return ok && ra.Name == rb.Name, nil
	case *Ref:
		rb, ok := rb.(*Ref)
		if !ok {
			return false, nil
		}
		return env.Equal(ra.Elem, rb.Elem)
	case *Record:
		rb, ok := rb.(*Record)
		if !ok || len(ra.Fields) != len(rb.Fields) {
			return false, nil
		}
		for i := range ra.Fields {
			if ra.Fields[i].Name != rb.Fields[i].Name {
				return false, nil
			}
			eq, err := env.Equal(ra.Fields[i].Type, rb.Fields[i].Type)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	}
	return false, nil
}

// ContainsRef reports whether the type contains a reference anywhere,
// following aliases. Values of such types may not escape their scope.
func (env *Env) ContainsRef(t Type) (bool, error) {
	return env.containsRef(t, nil)
}

func (env *Env) containsRef(t Type, visited map[string]bool) (bool, error) {
	switch t := t.(type) {
	case *Ref:
		return true, nil
	case *Record:
		for _, f := range t.Fields {
			has, err := env.containsRef(f.Type, visited)
			if err != nil || has {
				return has, err
			}
		}
		return false, nil
	case *Named:
		if _, ok := builtins[t.Name]; ok {
			return false, nil
		}
		if visited[t.Name] {
			return false, nil
		}
		def, ok := env.aliases[t.Name]
		if !ok {
			return false, &UnknownTypeError{Name: t.Name}
		}
		if visited == nil {
			visited = make(map[string]bool)
		}
		visited[t.Name] = true
		return env.containsRef(def, visited)
	}
	return false, nil
}
