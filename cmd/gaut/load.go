// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"go.gaut.net/syntax"
)

// A manifest is an optional gaut.yaml file next to the program,
// configuring where modules and the C runtime are found and how
// generated C is compiled.
type manifest struct {
	dir string // directory the manifest was loaded from

	Std     string   `yaml:"std"`     // module search directory
	Runtime string   `yaml:"runtime"` // C runtime directory (runtime.h, runtime.c)
	CC      string   `yaml:"cc"`      // C compiler, default clang
	CFlags  []string `yaml:"cflags"`  // extra C compiler flags
}

// loadManifest reads dir/gaut.yaml. A missing file is not an error;
// it yields a manifest of defaults.
func loadManifest(dir string) (*manifest, error) {
	m := &manifest{dir: dir}
	data, err := os.ReadFile(filepath.Join(dir, "gaut.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("gaut.yaml: %v", err)
	}
	return m, nil
}

// resolve interprets a manifest path relative to the manifest's
// directory.
func (m *manifest) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.dir, path)
}

// stdDir returns the module search directory: $GAUT_STD_DIR,
// the manifest's std entry, or ./std.
func (m *manifest) stdDir() string {
	if dir := os.Getenv("GAUT_STD_DIR"); dir != "" {
		return dir
	}
	if m.Std != "" {
		return m.resolve(m.Std)
	}
	return "std"
}

// runtimeDir returns the C runtime directory: $GAUT_RUNTIME_C_DIR,
// the manifest's runtime entry, or ./runtime/c.
func (m *manifest) runtimeDir() string {
	if dir := os.Getenv("GAUT_RUNTIME_C_DIR"); dir != "" {
		return dir
	}
	if m.Runtime != "" {
		return m.resolve(m.Runtime)
	}
	return filepath.Join("runtime", "c")
}

// buildBinary compiles the generated C file together with the gaut C
// runtime into an executable.
func buildBinary(m *manifest, cPath, bin string) error {
	runtimeDir := m.runtimeDir()
	cc := m.CC
	if cc == "" {
		cc = "clang"
	}
	args := []string{"-std=gnu11", "-O2", "-I", runtimeDir}
	args = append(args, m.CFlags...)
	args = append(args, cPath, filepath.Join(runtimeDir, "runtime.c"), "-o", bin)

	cmd := exec.Command(cc, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %v", cc, err)
	}
	return nil
}

// loadFile parses the file and splices in the declarations of every
// module it imports, directly or indirectly, each at most once.
// Imported declarations precede the importing file's own.
func loadFile(filename, stdDir string) (*syntax.Program, error) {
	visited := make(map[string]bool)
	var decls []syntax.Decl
	if err := loadRecursive(filename, stdDir, visited, &decls); err != nil {
		return nil, err
	}
	return &syntax.Program{Path: filename, Decls: decls}, nil
}

// expandImports is loadFile for a program already parsed from a
// non-file source, resolving its imports relative to baseDir.
func expandImports(prog *syntax.Program, baseDir, stdDir string) (*syntax.Program, error) {
	visited := make(map[string]bool)
	var decls []syntax.Decl
	if err := spliceDecls(prog, baseDir, stdDir, visited, &decls); err != nil {
		return nil, err
	}
	return &syntax.Program{Path: prog.Path, Decls: decls}, nil
}

func loadRecursive(filename, stdDir string, visited map[string]bool, out *[]syntax.Decl) error {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return err
	}
	if visited[abs] {
		return nil
	}
	visited[abs] = true

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v", filename, err)
	}
	prog, err := syntax.Parse(filename, string(data))
	if err != nil {
		return fmt.Errorf("parse error in %s: %v", filename, err)
	}
	return spliceDecls(prog, filepath.Dir(filename), stdDir, visited, out)
}

func spliceDecls(prog *syntax.Program, baseDir, stdDir string, visited map[string]bool, out *[]syntax.Decl) error {
	// Imports first, so callees precede callers in the output.
	for _, decl := range prog.Decls {
		imp, ok := decl.(*syntax.ImportDecl)
		if !ok {
			continue
		}
		target, err := findModule(imp.Module.Name, baseDir, stdDir)
		if err != nil {
			return err
		}
		if err := loadRecursive(target, stdDir, visited, out); err != nil {
			return err
		}
	}
	for _, decl := range prog.Decls {
		if _, ok := decl.(*syntax.ImportDecl); !ok {
			*out = append(*out, decl)
		}
	}
	return nil
}

// findModule resolves a module name to a file, looking in baseDir
// first, then the std directory.
func findModule(module, baseDir, stdDir string) (string, error) {
	local := filepath.Join(baseDir, module+".gaut")
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}
	std := filepath.Join(stdDir, module+".gaut")
	if _, err := os.Stat(std); err == nil {
		return std, nil
	}
	return "", fmt.Errorf("module %q not found in %s or %s", module, baseDir, stdDir)
}
