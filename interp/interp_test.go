// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interp_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.gaut.net/check"
	"go.gaut.net/interp"
	"go.gaut.net/syntax"
)

// run parses, checks, and evaluates main, failing the test on any error.
func run(t *testing.T, src string) interp.Value {
	t.Helper()
	prog, err := syntax.Parse("test.gaut", src)
	if err != nil {
		t.Fatal(err)
	}
	if err := check.Program(prog); err != nil {
		t.Fatalf("check: %v", err)
	}
	in := interp.New(0)
	if err := in.Load(prog); err != nil {
		t.Fatalf("load: %v", err)
	}
	v, err := in.RunMain()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return v
}

// runError evaluates main without static checking and returns the
// evaluation error.
func runError(t *testing.T, src string) *interp.EvalError {
	t.Helper()
	prog, err := syntax.Parse("test.gaut", src)
	if err != nil {
		t.Fatal(err)
	}
	in := interp.New(0)
	if err := in.Load(prog); err != nil {
		t.Fatal(err)
	}
	_, err = in.RunMain()
	if err == nil {
		t.Fatal("run: unexpected success")
	}
	ee, ok := err.(*interp.EvalError)
	if !ok {
		t.Fatalf("run returned %T (%v), want *EvalError", err, err)
	}
	return ee
}

func TestCalc(t *testing.T) {
	v := run(t, `
add(a: i32, b: i32) -> i32 = a + b

main() = {
  x: i32 = 10
  y: i32 = 20
  add(x, y)
}
`)
	if !interp.Equal(v, interp.Int(30)) {
		t.Errorf("main() = %s, want 30", v)
	}
}

func TestRecordRef(t *testing.T) {
	v := run(t, `
type Point = { x: i32, y: i32 }

length_x(p: &Point) -> i32 = p.x

main() = {
  origin: Point = { x: 0, y: 0 }
  px: i32 = length_x(&origin)
  py: i32 = copy origin.y
  px + py
}
`)
	if !interp.Equal(v, interp.Int(0)) {
		t.Errorf("main() = %s, want 0", v)
	}
}

func TestIfChoosesBranch(t *testing.T) {
	v := run(t, `
main() = {
  x: i32 = 1
  y: i32 = if x < 0 then 10 else 5
  copy y
}
`)
	if !interp.Equal(v, interp.Int(5)) {
		t.Errorf("main() = %s, want 5", v)
	}
}

func TestIfEvaluatesOneBranch(t *testing.T) {
	prog, err := syntax.Parse("test.gaut", `
main() = {
  b: bool = true
  s: Str = if b then println("yes") else println("no")
  ()
}
`)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	in := interp.New(0)
	in.Print = func(text string) { got = append(got, text) }
	if err := in.Load(prog); err != nil {
		t.Fatal(err)
	}
	if _, err := in.RunMain(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"yes\n"}, got); diff != "" {
		t.Errorf("printed output mismatch (-want +got):\n%s", diff)
	}
}

func TestStrConcat(t *testing.T) {
	v := run(t, `
global greeting: Str = "hello"

main() = {
  msg: Str = greeting + " world"
  msg
}
`)
	if !interp.Equal(v, interp.Str("hello world")) {
		t.Errorf("main() = %s, want \"hello world\"", v)
	}
}

func TestArenaExhaustion(t *testing.T) {
	long := strings.Repeat("x", 64)
	prog, err := syntax.Parse("test.gaut", `
main() = {
  a: Str = "`+long+`"
  b: Str = "`+long+`"
  a + b
}
`)
	if err != nil {
		t.Fatal(err)
	}
	if err := check.Program(prog); err != nil {
		t.Fatalf("check: %v", err)
	}
	in := interp.New(16)
	if err := in.Load(prog); err != nil {
		t.Fatal(err)
	}
	_, err = in.RunMain()
	if err == nil {
		t.Fatal("run: unexpected success with a 16-byte arena")
	}
	ee, ok := err.(*interp.EvalError)
	if !ok {
		t.Fatalf("run returned %T (%v), want *EvalError", err, err)
	}
	if !strings.Contains(ee.Msg, "arena out of capacity") {
		t.Errorf("got %q, want an arena-out-of-capacity error", ee.Msg)
	}
}

func TestUserPrintShadowsBuiltin(t *testing.T) {
	prog, err := syntax.Parse("test.gaut", `
print(msg: Str) = msg

main() = print("quiet")
`)
	if err != nil {
		t.Fatal(err)
	}
	in := interp.New(0)
	in.Print = func(text string) { t.Errorf("builtin print called with %q", text) }
	if err := in.Load(prog); err != nil {
		t.Fatal(err)
	}
	v, err := in.RunMain()
	if err != nil {
		t.Fatal(err)
	}
	if !interp.Equal(v, interp.Str("quiet")) {
		t.Errorf("main() = %s, want \"quiet\"", v)
	}
}

func TestMoveTwice(t *testing.T) {
	ee := runError(t, `
main() = {
  x: i32 = 1
  y: i32 = x
  x
}
`)
	if ee.Msg != "value moved: x" {
		t.Errorf("got %q, want %q", ee.Msg, "value moved: x")
	}
}

func TestDivisionByZero(t *testing.T) {
	ee := runError(t, `
main() = {
  x: i32 = 1
  y: i32 = 0
  x / y
}
`)
	if ee.Msg != "division by zero" {
		t.Errorf("got %q, want %q", ee.Msg, "division by zero")
	}
	if len(ee.CallStack) == 0 || ee.CallStack[len(ee.CallStack)-1].Name != "main" {
		t.Errorf("call stack %v does not end in main", ee.CallStack)
	}
	if !strings.Contains(ee.Backtrace(), "Error: division by zero") {
		t.Errorf("Backtrace() = %q", ee.Backtrace())
	}
}

func TestAssignmentRefreshesBinding(t *testing.T) {
	v := run(t, `
main() = {
  mut x: i32 = 1
  y: i32 = x
  x = y + 4
  copy x
}
`)
	if !interp.Equal(v, interp.Int(5)) {
		t.Errorf("main() = %s, want 5", v)
	}
}

func TestFieldAssignment(t *testing.T) {
	v := run(t, `
type Point = { x: i32, y: i32 }

main() = {
  mut p: Point = { x: 1, y: 2 }
  p.x = copy p.y + 10
  copy p.x
}
`)
	if !interp.Equal(v, interp.Int(12)) {
		t.Errorf("main() = %s, want 12", v)
	}
}

func TestGlobalsFreshPerRun(t *testing.T) {
	prog, err := syntax.Parse("test.gaut", `
global base: i32 = 40

main() = {
  n: i32 = base
  n + 2
}
`)
	if err != nil {
		t.Fatal(err)
	}
	in := interp.New(0)
	if err := in.Load(prog); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		v, err := in.RunMain()
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !interp.Equal(v, interp.Int(42)) {
			t.Errorf("run %d: main() = %s, want 42", i, v)
		}
	}
}

func TestStringBuiltins(t *testing.T) {
	v := run(t, `
main() = {
  s: Str = "hello world"
  a: i32 = str_len(copy s)
  b: i32 = str_byte_at(copy s, 0)
  c: i32 = str_byte_at(copy s, 99)
  head: Str = str_slice(s, 0, 5)
  n: i32 = str_len(head)
  a + b + c + n
}
`)
	// 11 + 'h' (104) + 0 + 5
	if !interp.Equal(v, interp.Int(120)) {
		t.Errorf("main() = %s, want 120", v)
	}
}

func TestArgsAndBytes(t *testing.T) {
	prog, err := syntax.Parse("test.gaut", `
main() = {
  buf: Bytes = args()
  bytes_to_str(buf)
}
`)
	if err != nil {
		t.Fatal(err)
	}
	in := interp.New(0)
	in.Args = []string{"gaut", "alpha", "beta"}
	if err := in.Load(prog); err != nil {
		t.Fatal(err)
	}
	v, err := in.RunMain()
	if err != nil {
		t.Fatal(err)
	}
	if !interp.Equal(v, interp.Str("gaut\nalpha\nbeta")) {
		t.Errorf("main() = %s, want %q", v, "gaut\nalpha\nbeta")
	}
}

func TestFileBuiltins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")

	prog, err := syntax.Parse("test.gaut", `
main() = {
  path: Str = file_path()
  u: Unit = write_file(copy path, "stored")
  back: Str = read_file(copy path)
  r: ReadFileResult = try_read_file(path)
  ok: Str = if copy r.ok then "yes" else "no"
  back + ":" + ok
}

file_path() -> Str = file_path_impl()
`)
	if err != nil {
		t.Fatal(err)
	}
	// Inject the temp path as a global via a second loaded chunk.
	impl, err := syntax.Parse("inject.gaut", `file_path_impl() -> Str = "`+path+`"`)
	if err != nil {
		t.Fatal(err)
	}
	in := interp.New(0)
	if err := in.Load(prog); err != nil {
		t.Fatal(err)
	}
	if err := in.Load(impl); err != nil {
		t.Fatal(err)
	}
	v, err := in.RunMain()
	if err != nil {
		t.Fatal(err)
	}
	if !interp.Equal(v, interp.Str("stored:yes")) {
		t.Errorf("main() = %s, want %q", v, "stored:yes")
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "stored" {
		t.Errorf("file contents %q, %v", data, err)
	}
}

func TestValueStrings(t *testing.T) {
	rec := interp.NewRecord()
	rec.Set("x", interp.Int(0))
	rec.Set("y", interp.Int(0))
	for _, test := range []struct {
		v    interp.Value
		want string
	}{
		{interp.Int(30), "30"},
		{interp.Bool(true), "true"},
		{interp.Str("s"), `"s"`},
		{interp.Unit{}, "()"},
		{rec, "{x: 0, y: 0}"},
		{interp.Bytes("ab"), `b"ab"`},
	} {
		if got := test.v.String(); got != test.want {
			t.Errorf("String(%s value) = %q, want %q", test.v.Type(), got, test.want)
		}
	}
}

func TestRecordTake(t *testing.T) {
	rec := interp.NewRecord()
	rec.Set("a", interp.Int(1))
	rec.Set("b", interp.Int(2))
	rec.Set("c", interp.Int(3))
	v, ok := rec.Take("b")
	if !ok || !interp.Equal(v, interp.Int(2)) {
		t.Fatalf("Take(b) = %v, %v", v, ok)
	}
	if rec.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rec.Len())
	}
	name, _ := rec.Index(1)
	if name != "c" {
		t.Errorf("remaining order broken: field 1 is %q, want c", name)
	}
}
