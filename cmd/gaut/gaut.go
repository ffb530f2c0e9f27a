// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The gaut command checks and interprets a gaut program,
// or translates it to C and optionally compiles the result.
// With no arguments, it starts a read-eval-print loop (REPL).
package main // import "go.gaut.net/cmd/gaut"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"go.gaut.net/cgen"
	"go.gaut.net/check"
	"go.gaut.net/interp"
	"go.gaut.net/repl"
	"go.gaut.net/syntax"
)

// flags
var (
	execprog = flag.String("c", "", "execute program `prog`")
	emitC    = flag.String("emit-c", "", "write generated C to `file` instead of interpreting")
	buildOut = flag.String("build", "", "compile generated C into binary `file` (implies -emit-c)")
	arenaCap = flag.Int("arena", 1<<20, "interpreter arena capacity in bytes")
)

func main() {
	os.Exit(doMain())
}

func doMain() int {
	log.SetPrefix("gaut: ")
	log.SetFlags(0)
	flag.Parse()

	switch {
	case flag.NArg() == 1 || *execprog != "":
		var (
			prog *syntax.Program
			m    *manifest
			err  error
		)
		if *execprog != "" {
			// Execute provided program.
			m, err = loadManifest(".")
			if err == nil {
				prog, err = syntax.Parse("cmdline", *execprog)
			}
			if err == nil {
				prog, err = expandImports(prog, ".", m.stdDir())
			}
		} else {
			// Execute specified file.
			filename := flag.Arg(0)
			m, err = loadManifest(filepath.Dir(filename))
			if err == nil {
				prog, err = loadFile(filename, m.stdDir())
			}
		}
		if err != nil {
			log.Print(err)
			return 1
		}
		return runProgram(prog, m)

	case flag.NArg() == 0:
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			// Piped input: run it as a program.
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				log.Print(err)
				return 1
			}
			m, err := loadManifest(".")
			if err != nil {
				log.Print(err)
				return 1
			}
			prog, err := syntax.Parse("<stdin>", string(data))
			if err == nil {
				prog, err = expandImports(prog, ".", m.stdDir())
			}
			if err != nil {
				log.Print(err)
				return 1
			}
			return runProgram(prog, m)
		}

		fmt.Println("Welcome to gaut (go.gaut.net)")
		m, err := loadManifest(".")
		if err != nil {
			log.Print(err)
			return 1
		}
		sess := repl.NewSession(interp.New(*arenaCap))
		sess.Load = func(module string) (*syntax.Program, error) {
			target, err := findModule(module, ".", m.stdDir())
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(target)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %v", target, err)
			}
			return syntax.Parse(target, string(data))
		}
		repl.REPL(sess)
		return 0

	default:
		log.Print("want at most one gaut file name")
		return 1
	}
}

// runProgram checks the program, then either emits C (and optionally
// compiles it) or interprets main.
func runProgram(prog *syntax.Program, m *manifest) int {
	if err := check.Program(prog); err != nil {
		log.Printf("type error: %v", err)
		return 1
	}

	if *emitC != "" || *buildOut != "" {
		cOut := *emitC
		if cOut == "" {
			cOut = filepath.Join("target", "gaut_out.c")
		}
		csrc, err := cgen.Program(prog)
		if err != nil {
			log.Printf("cgen error: %v", err)
			return 1
		}
		if dir := filepath.Dir(cOut); dir != "." {
			if err := os.MkdirAll(dir, 0777); err != nil {
				log.Print(err)
				return 1
			}
		}
		if err := os.WriteFile(cOut, []byte(csrc), 0666); err != nil {
			log.Print(err)
			return 1
		}
		if *buildOut != "" {
			if err := buildBinary(m, cOut, *buildOut); err != nil {
				log.Print(err)
				return 1
			}
		}
		return 0
	}

	in := interp.New(*arenaCap)
	if err := in.Load(prog); err != nil {
		repl.PrintError(err)
		return 1
	}
	v, err := in.RunMain()
	if err != nil {
		repl.PrintError(err)
		return 1
	}
	if _, ok := v.(interp.Unit); !ok {
		fmt.Println(v)
	}
	return 0
}
