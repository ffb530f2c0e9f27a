package repl_test

import (
	"fmt"
	"strings"
	"testing"

	"go.gaut.net/interp"
	"go.gaut.net/repl"
	"go.gaut.net/syntax"
)

func declare(t *testing.T, sess *repl.Session, src string) {
	t.Helper()
	prog, err := syntax.Parse("<stdin>", src)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Declare(prog); err != nil {
		t.Fatal(err)
	}
}

func eval(t *testing.T, sess *repl.Session, src string) interp.Value {
	t.Helper()
	expr, err := syntax.ParseExpr("<stdin>", src)
	if err != nil {
		t.Fatal(err)
	}
	v, err := sess.Eval(expr)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestSessionEval(t *testing.T) {
	sess := repl.NewSession(interp.New(0))
	declare(t, sess, `add(a: i32, b: i32) -> i32 = a + b`)
	v := eval(t, sess, `add(1, 2)`)
	if !interp.Equal(v, interp.Int(3)) {
		t.Errorf("add(1, 2) = %s, want 3", v)
	}
}

func TestSessionAccumulates(t *testing.T) {
	sess := repl.NewSession(interp.New(0))
	declare(t, sess, `global base: i32 = 40`)
	declare(t, sess, `bump(n: i32) -> i32 = n + 2`)
	v := eval(t, sess, `bump(base)`)
	if !interp.Equal(v, interp.Int(42)) {
		t.Errorf("bump(base) = %s, want 42", v)
	}
}

func TestSessionCheckError(t *testing.T) {
	sess := repl.NewSession(interp.New(0))
	expr, err := syntax.ParseExpr("<stdin>", `missing`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = sess.Eval(expr)
	if err == nil || !strings.Contains(err.Error(), "unknown identifier missing") {
		t.Errorf("Eval(missing) = %v, want unknown identifier error", err)
	}
}

func TestSessionRejectedDeclLeavesSessionIntact(t *testing.T) {
	sess := repl.NewSession(interp.New(0))
	declare(t, sess, `double(n: i32) -> i32 = n * 2`)

	bad, err := syntax.Parse("<stdin>", `broken() -> i32 = "no"`)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Declare(bad); err == nil {
		t.Fatal("Declare of ill-typed function unexpectedly succeeded")
	}

	v := eval(t, sess, `double(21)`)
	if !interp.Equal(v, interp.Int(42)) {
		t.Errorf("double(21) = %s, want 42", v)
	}
}

func TestSessionImport(t *testing.T) {
	loads := 0
	sess := repl.NewSession(interp.New(0))
	sess.Load = func(module string) (*syntax.Program, error) {
		if module != "mathutil" {
			return nil, fmt.Errorf("no such module: %s", module)
		}
		loads++
		return syntax.Parse(module+".gaut", `square(n: i32) -> i32 = n * n`)
	}

	declare(t, sess, "import mathutil")
	declare(t, sess, "import mathutil") // second import is a no-op

	v := eval(t, sess, `square(6)`)
	if !interp.Equal(v, interp.Int(36)) {
		t.Errorf("square(6) = %s, want 36", v)
	}
	if loads != 1 {
		t.Errorf("module loaded %d times, want 1", loads)
	}
}

func TestSessionImportWithoutLoader(t *testing.T) {
	sess := repl.NewSession(interp.New(0))
	prog, err := syntax.Parse("<stdin>", "import io")
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Declare(prog); err == nil {
		t.Error("Declare(import) without a loader unexpectedly succeeded")
	}
}
