// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package check

import "go.gaut.net/types"

// A funcSig is the checked signature of a declared or builtin function.
// Ret is nil until the return type has been inferred from the body.
type funcSig struct {
	params []paramSig
	ret    types.Type
}

type paramSig struct {
	name    string
	typ     types.Type
	mutable bool
}

// Builtins reports the names of the builtin functions,
// for tools that must avoid shadowing them unintentionally.
func Builtins() []string {
	names := make([]string, 0, len(builtinSigs))
	for name := range builtinSigs {
		names = append(names, name)
	}
	return names
}

// IsBuiltinFunc reports whether name is a builtin function.
func IsBuiltinFunc(name string) bool {
	_, ok := builtinSigs[name]
	return ok
}

var builtinSigs = map[string]*funcSig{
	"print": {
		params: []paramSig{{name: "msg", typ: types.Str}},
		ret:    types.Str,
	},
	"println": {
		params: []paramSig{{name: "msg", typ: types.Str}},
		ret:    types.Str,
	},
	"read_file": {
		params: []paramSig{{name: "path", typ: types.Str}},
		ret:    types.Str,
	},
	"write_file": {
		params: []paramSig{{name: "path", typ: types.Str}, {name: "data", typ: types.Str}},
		ret:    types.Unit,
	},
	"args": {
		ret: types.Bytes,
	},
	"bytes_to_str": {
		params: []paramSig{{name: "buf", typ: types.Bytes}},
		ret:    types.Str,
	},
	"try_read_file": {
		params: []paramSig{{name: "path", typ: types.Str}},
		ret:    &types.Named{Name: "ReadFileResult"},
	},
	"try_write_file": {
		params: []paramSig{{name: "path", typ: types.Str}, {name: "data", typ: types.Str}},
		ret:    types.Bool,
	},
	"str_len": {
		params: []paramSig{{name: "s", typ: types.Str}},
		ret:    types.I32,
	},
	"str_byte_at": {
		params: []paramSig{{name: "s", typ: types.Str}, {name: "i", typ: types.I32}},
		ret:    types.I32,
	},
	"str_slice": {
		params: []paramSig{{name: "s", typ: types.Str}, {name: "start", typ: types.I32}, {name: "len", typ: types.I32}},
		ret:    types.Str,
	},
}

// newFuncTable returns a fresh function table seeded with the builtins.
func newFuncTable() map[string]*funcSig {
	funcs := make(map[string]*funcSig, len(builtinSigs)+8)
	for name, sig := range builtinSigs {
		copy := *sig
		funcs[name] = &copy
	}
	return funcs
}
