// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interp

import (
	"bytes"
	"strconv"
	"strings"
)

// A Value is a gaut runtime value.
type Value interface {
	// Type returns the name of the value's gaut type.
	Type() string
	// String returns a source-like rendering of the value.
	String() string
}

// Int is the runtime representation of both i32 and i64 values.
type Int int64

func (i Int) Type() string   { return "i32" }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Bool is a gaut bool.
type Bool bool

func (b Bool) Type() string { return "bool" }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Str is a gaut string.
type Str string

func (s Str) Type() string   { return "Str" }
func (s Str) String() string { return strconv.Quote(string(s)) }

// Bytes is a gaut byte buffer.
type Bytes []byte

func (b Bytes) Type() string   { return "Bytes" }
func (b Bytes) String() string { return "b" + strconv.Quote(string(b)) }

// Unit is the unit value ().
type Unit struct{}

func (Unit) Type() string   { return "Unit" }
func (Unit) String() string { return "()" }

// A Record is an ordered collection of named fields.
// Field order is the order of construction and is significant
// for equality and rendering.
type Record struct {
	fields []recordField
}

type recordField struct {
	name  string
	value Value
}

// NewRecord returns an empty record.
func NewRecord() *Record { return new(Record) }

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.fields) }

// Index returns the i'th field.
func (r *Record) Index(i int) (name string, value Value) {
	f := r.fields[i]
	return f.name, f.value
}

// Get returns the named field's value.
func (r *Record) Get(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return nil, false
}

// Set replaces the named field's value, or appends a new field.
func (r *Record) Set(name string, v Value) {
	for i, f := range r.fields {
		if f.name == name {
			r.fields[i].value = v
			return
		}
	}
	r.fields = append(r.fields, recordField{name, v})
}

// Take removes the named field and returns its value,
// preserving the order of the remaining fields.
func (r *Record) Take(name string) (Value, bool) {
	for i, f := range r.fields {
		if f.name == name {
			r.fields = append(r.fields[:i], r.fields[i+1:]...)
			return f.value, true
		}
	}
	return nil, false
}

func (r *Record) Type() string { return "record" }

func (r *Record) String() string {
	var buf strings.Builder
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(f.name)
		buf.WriteString(": ")
		buf.WriteString(f.value.String())
	}
	buf.WriteByte('}')
	return buf.String()
}

// Equal reports structural equality of two values. Records are equal
// if they have the same field names in the same order with equal
// values.
func Equal(x, y Value) bool {
	switch x := x.(type) {
	case Int:
		y, ok := y.(Int)
		return ok && x == y
	case Bool:
		y, ok := y.(Bool)
		return ok && x == y
	case Str:
		y, ok := y.(Str)
		return ok && x == y
	case Bytes:
		y, ok := y.(Bytes)
		return ok && bytes.Equal(x, y)
	case Unit:
		_, ok := y.(Unit)
		return ok
	case *Record:
		y, ok := y.(*Record)
		if !ok || len(x.fields) != len(y.fields) {
			return false
		}
		for i, f := range x.fields {
			if f.name != y.fields[i].name || !Equal(f.value, y.fields[i].value) {
				return false
			}
		}
		return true
	}
	return false
}

// copyValue returns a value that shares no mutable state with v.
func copyValue(v Value) Value {
	switch v := v.(type) {
	case Bytes:
		return Bytes(append([]byte(nil), v...))
	case *Record:
		out := &Record{fields: make([]recordField, len(v.fields))}
		for i, f := range v.fields {
			out.fields[i] = recordField{f.name, copyValue(f.value)}
		}
		return out
	}
	return v
}
