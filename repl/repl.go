// Package repl provides a read/eval/print loop for gaut.
//
// It supports readline-style command editing,
// and interrupts through Control-C.
//
// If an input chunk can be parsed as an expression, the REPL wraps it
// in a synthetic main function, checks it against the declarations
// accumulated so far, evaluates it, and prints its result. Otherwise
// the chunk is parsed as a list of declarations, checked, and added
// to the session. Lines are joined until braces and parentheses
// balance, so multi-line function bodies work as they do in a file.
package repl // import "go.gaut.net/repl"

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
	"go.gaut.net/check"
	"go.gaut.net/interp"
	"go.gaut.net/syntax"
)

var interrupted = make(chan os.Signal, 1)

// A Session holds the declarations and interpreter state accumulated
// across REPL inputs.
type Session struct {
	// Interp evaluates expressions. Its globals are extended as the
	// session declares more of them.
	Interp *interp.Interpreter

	// Load resolves an import to the module's declarations.
	// If nil, imports are rejected.
	Load func(module string) (*syntax.Program, error)

	decls  []syntax.Decl
	loaded map[string]bool
}

// NewSession returns a session evaluating with the given interpreter.
func NewSession(in *interp.Interpreter) *Session {
	return &Session{Interp: in, loaded: make(map[string]bool)}
}

// REPL executes a read, eval, print loop over the session.
func REPL(sess *Session) {
	signal.Notify(interrupted, os.Interrupt)
	defer signal.Stop(interrupted)

	rl, err := readline.New(">>> ")
	if err != nil {
		PrintError(err)
		return
	}
	defer rl.Close()
	for {
		if err := rep(rl, sess); err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println(err)
				continue
			}
			break
		}
	}
	fmt.Println()
}

// rep reads, evaluates, and prints one item.
//
// It returns an error (possibly readline.ErrInterrupt) only if
// readline failed. gaut errors are printed.
func rep(rl *readline.Instance, sess *Session) error {
	rl.SetPrompt(">>> ")
	src, err := readChunk(rl)
	if err != nil {
		return err
	}
	if strings.TrimSpace(src) == "" {
		return nil
	}

	if expr, err := syntax.ParseExpr("<stdin>", src); err == nil {
		v, err := sess.Eval(expr)
		if err != nil {
			PrintError(err)
			return nil
		}
		if _, ok := v.(interp.Unit); !ok {
			fmt.Println(v)
		}
		return nil
	}

	prog, err := syntax.Parse("<stdin>", src)
	if err != nil {
		PrintError(err)
		return nil
	}
	if err := sess.Declare(prog); err != nil {
		PrintError(err)
	}
	return nil
}

// readChunk reads a logical input: one line, plus continuation lines
// while braces or parentheses remain open.
func readChunk(rl *readline.Instance) (string, error) {
	var buf strings.Builder
	depth := 0
	for {
		line, err := rl.Readline()
		rl.SetPrompt("... ")
		if err != nil {
			if err == io.EOF && buf.Len() > 0 {
				break
			}
			return "", err
		}
		buf.WriteString(line)
		buf.WriteString("\n")
		for _, c := range line {
			switch c {
			case '{', '(':
				depth++
			case '}', ')':
				if depth > 0 {
					depth--
				}
			}
		}
		if depth == 0 {
			break
		}
	}
	return buf.String(), nil
}

// Eval checks and evaluates an expression against the session's
// declarations, as the body of a synthetic main function.
func (sess *Session) Eval(expr syntax.Expr) (interp.Value, error) {
	pos := syntax.Start(expr)
	main := &syntax.FuncDecl{
		Name: &syntax.Ident{NamePos: pos, Name: "main"},
		Body: expr,
	}
	whole := &syntax.Program{
		Path:  "<stdin>",
		Decls: append(append([]syntax.Decl(nil), sess.decls...), main),
	}
	if err := check.Program(whole); err != nil {
		return nil, err
	}
	if err := sess.Interp.Load(&syntax.Program{Path: "<stdin>", Decls: []syntax.Decl{main}}); err != nil {
		return nil, err
	}
	return sess.Interp.RunMain()
}

// Declare checks the program's declarations against the session and,
// on success, adds them to it. Imports are resolved first.
func (sess *Session) Declare(prog *syntax.Program) error {
	decls, err := sess.expand(prog)
	if err != nil {
		return err
	}
	whole := append(append([]syntax.Decl(nil), sess.decls...), decls...)
	if err := check.Program(&syntax.Program{Path: "<stdin>", Decls: whole}); err != nil {
		return err
	}
	if err := sess.Interp.Load(&syntax.Program{Path: prog.Path, Decls: decls}); err != nil {
		return err
	}
	sess.decls = whole
	return nil
}

// expand splices imported modules' declarations in place of import
// declarations, each module at most once per session.
func (sess *Session) expand(prog *syntax.Program) ([]syntax.Decl, error) {
	var decls []syntax.Decl
	for _, decl := range prog.Decls {
		imp, ok := decl.(*syntax.ImportDecl)
		if !ok {
			decls = append(decls, decl)
			continue
		}
		if sess.Load == nil {
			return nil, fmt.Errorf("%s: import is not available in this session", syntax.Start(imp))
		}
		if sess.loaded[imp.Module.Name] {
			continue
		}
		sess.loaded[imp.Module.Name] = true
		mod, err := sess.Load(imp.Module.Name)
		if err != nil {
			return nil, err
		}
		sub, err := sess.expand(mod)
		if err != nil {
			return nil, err
		}
		decls = append(decls, sub...)
	}
	return decls, nil
}

// PrintError prints the error to stderr,
// or its backtrace if it is a gaut evaluation error.
func PrintError(err error) {
	if evalErr, ok := err.(*interp.EvalError); ok {
		fmt.Fprintln(os.Stderr, evalErr.Backtrace())
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
}
