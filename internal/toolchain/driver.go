// Package toolchain drives the host C++ compiler for probe builds.
//
// The Driver only knows how to turn one source file into an object and one
// set of objects into a shared library. Deciding what those results mean is
// the caller's job.
package toolchain

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes an external program and returns its combined stdout and
// stderr. A non-nil error means the program could not be started or exited
// non-zero; the output is returned in both cases.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec in the current environment.
type ExecRunner struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
}

// Run implements Runner. No timeout is applied; a hung compiler hangs the run.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	return cmd.CombinedOutput()
}

// Macro is a preprocessor definition. An empty Value defines the name without
// a value.
type Macro struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Value string `json:"value" yaml:"value" toml:"value"`
}

// Flag renders the macro as a -D compiler flag.
func (m Macro) Flag() string {
	if m.Value == "" {
		return "-D" + m.Name
	}
	return "-D" + m.Name + "=" + m.Value
}

// CompileArgs describes one compile step.
type CompileArgs struct {
	Source      string
	Object      string
	IncludeDirs []string
	Macros      []Macro
}

// LinkArgs describes one shared-object link step.
type LinkArgs struct {
	Objects     []string
	Output      string
	LibraryDirs []string
	Libraries   []string
}

// Driver invokes a gcc-compatible C++ compiler driver.
type Driver struct {
	CXX    string
	Std    string
	Runner Runner
}

// NewDriver returns a Driver for the given compiler and language standard.
func NewDriver(cxx, std string, runner Runner) *Driver {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Driver{CXX: cxx, Std: std, Runner: runner}
}

// ObjectFile returns the object path the driver produces for src.
func (d *Driver) ObjectFile(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".o"
}

// SharedObjectFile returns the shared library path for name inside dir.
func (d *Driver) SharedObjectFile(name, dir string) string {
	return filepath.Join(dir, name+".so")
}

// CompileCommand returns the argument vector for a compile step.
func (d *Driver) CompileCommand(a CompileArgs) []string {
	args := []string{"-std=" + d.Std, "-fPIC"}
	for _, dir := range a.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	for _, m := range a.Macros {
		args = append(args, m.Flag())
	}
	return append(args, "-c", a.Source, "-o", a.Object)
}

// LinkCommand returns the argument vector for a shared-object link step.
// Libraries follow the objects so that single-pass linkers resolve them.
func (d *Driver) LinkCommand(a LinkArgs) []string {
	args := []string{"-shared"}
	args = append(args, a.Objects...)
	args = append(args, "-o", a.Output)
	for _, dir := range a.LibraryDirs {
		args = append(args, "-L"+dir)
	}
	for _, lib := range a.Libraries {
		args = append(args, "-l"+lib)
	}
	return args
}

// Compile runs the compile step and returns the compiler's output.
func (d *Driver) Compile(ctx context.Context, a CompileArgs) ([]byte, error) {
	return d.Runner.Run(ctx, d.CXX, d.CompileCommand(a)...)
}

// LinkShared runs the link step and returns the linker's output.
func (d *Driver) LinkShared(ctx context.Context, a LinkArgs) ([]byte, error) {
	return d.Runner.Run(ctx, d.CXX, d.LinkCommand(a)...)
}
