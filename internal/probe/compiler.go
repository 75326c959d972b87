package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bcube-dev/bcube-setup/internal/log"
	"github.com/bcube-dev/bcube-setup/internal/toolchain"
)

// ScratchSubdir is the directory under the build temp root that receives
// probe sources and artifacts.
const ScratchSubdir = "test_compile"

// Toolchain is the subset of toolchain.Driver a Compiler needs.
type Toolchain interface {
	ObjectFile(src string) string
	SharedObjectFile(name, dir string) string
	Compile(ctx context.Context, a toolchain.CompileArgs) ([]byte, error)
	LinkShared(ctx context.Context, a toolchain.LinkArgs) ([]byte, error)
}

// Compiler runs probes by compiling and linking into a scratch directory.
// Artifacts are left in place after the run.
type Compiler struct {
	tc      Toolchain
	dir     string
	newID   func() string
	logger  log.Logger
	attempt int
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for per-probe debug output.
func WithLogger(l log.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithIDFunc replaces the unique artifact suffix generator.
func WithIDFunc(fn func() string) Option {
	return func(c *Compiler) { c.newID = fn }
}

// NewCompiler returns a Compiler writing into <buildTemp>/test_compile.
func NewCompiler(tc Toolchain, buildTemp string, opts ...Option) *Compiler {
	c := &Compiler{
		tc:     tc,
		dir:    filepath.Join(buildTemp, ScratchSubdir),
		newID:  func() string { return uuid.NewString()[:8] },
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the scratch directory.
func (c *Compiler) Dir() string {
	return c.dir
}

// Attempts returns how many probes this Compiler has run.
func (c *Compiler) Attempts() int {
	return c.attempt
}

// Run writes spec.Source to the scratch directory, compiles it and links it
// into a shared object.
func (c *Compiler) Run(ctx context.Context, spec Spec) (Result, error) {
	spec = spec.clone()
	c.attempt++

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create probe directory: %w", err)
	}

	name := spec.Name + "_" + c.newID()
	source := filepath.Join(c.dir, name+".cc")
	if err := os.WriteFile(source, []byte(spec.Source), 0o644); err != nil {
		return Result{}, fmt.Errorf("failed to write probe source: %w", err)
	}

	logger := c.logger.With("probe", spec.Name, "artifact", name)
	object := c.tc.ObjectFile(source)

	out, err := c.tc.Compile(ctx, toolchain.CompileArgs{
		Source:      source,
		Object:      object,
		IncludeDirs: spec.IncludeDirs,
		Macros:      spec.Macros,
	})
	if err != nil {
		f := &Failure{Kind: KindCompile, Probe: spec.Name, Diagnostic: diagnostic(out, err)}
		logger.Debug("probe failed", "kind", f.Kind, "diagnostic", f.Diagnostic)
		return Result{Failure: f}, nil
	}

	shared := c.tc.SharedObjectFile(name, c.dir)
	out, err = c.tc.LinkShared(ctx, toolchain.LinkArgs{
		Objects:     []string{object},
		Output:      shared,
		LibraryDirs: spec.LibraryDirs,
		Libraries:   spec.Libraries,
	})
	if err != nil {
		f := &Failure{Kind: KindLink, Probe: spec.Name, Diagnostic: diagnostic(out, err)}
		logger.Debug("probe failed", "kind", f.Kind, "diagnostic", f.Diagnostic)
		return Result{Failure: f}, nil
	}

	logger.Debug("probe succeeded", "output", shared)
	return Result{Artifact: shared}, nil
}

// diagnostic prefers the tool's own output over the exit status.
func diagnostic(out []byte, err error) string {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return err.Error()
	}
	return text + "\n(" + err.Error() + ")"
}
