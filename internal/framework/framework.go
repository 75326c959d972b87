// Package framework queries the installed TensorFlow for what the extension
// needs to build against it: its version, its own compile and link flags, and
// a loader that accepts or rejects a freshly linked op library.
package framework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bcube-dev/bcube-setup/internal/toolchain"
)

// Name is how the framework is referred to in messages.
const Name = "TensorFlow"

var (
	// ErrNotInstalled means the framework could not be imported.
	ErrNotInstalled = errors.New("tensorflow is not importable")

	// ErrFlagsUnsupported means the framework predates sysconfig flag helpers.
	ErrFlagsUnsupported = errors.New("tensorflow does not report compile and link flags")
)

// Framework is the facade the descriptor builder uses.
type Framework interface {
	// Version returns the framework's version string, or "" when the
	// framework does not expose one.
	Version(ctx context.Context) (string, error)

	// IncludeDir and LibDir return the framework's header and library roots.
	IncludeDir(ctx context.Context) (string, error)
	LibDir(ctx context.Context) (string, error)

	// Flags returns the framework's own compile and link flags, or
	// ErrFlagsUnsupported.
	Flags(ctx context.Context) (compile, link []string, err error)

	// Load loads a linked op library the way the framework does at runtime.
	Load(ctx context.Context, artifact string) error
}

// QueryError is a failed interpreter invocation.
type QueryError struct {
	What   string
	Output string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v\n\n%s", e.What, e.Err, e.Output)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Python implements Framework by running a Python interpreter that has
// TensorFlow installed.
type Python struct {
	Interpreter string
	Runner      toolchain.Runner
}

// NewPython returns a Python facade. A nil runner uses os/exec.
func NewPython(interpreter string, runner toolchain.Runner) *Python {
	if runner == nil {
		runner = toolchain.ExecRunner{}
	}
	return &Python{Interpreter: interpreter, Runner: runner}
}

const (
	versionScript = `import tensorflow as tf
print(getattr(tf, "__version__", ""))`

	includeScript = `import tensorflow as tf
print(tf.sysconfig.get_include())`

	libScript = `import tensorflow as tf
print(tf.sysconfig.get_lib())`

	flagsScript = `import json
import tensorflow as tf
try:
    flags = {"compile": tf.sysconfig.get_compile_flags(), "link": tf.sysconfig.get_link_flags()}
except AttributeError:
    flags = None
print(json.dumps(flags))`

	loadScript = `import sys
from tensorflow.python.framework import load_library
load_library.load_op_library(sys.argv[1])`
)

func (p *Python) run(ctx context.Context, what, script string, args ...string) (string, error) {
	argv := append([]string{"-c", script}, args...)
	out, err := p.Runner.Run(ctx, p.Interpreter, argv...)
	text := strings.TrimSpace(string(out))
	if err != nil {
		if strings.Contains(text, "ModuleNotFoundError") || strings.Contains(text, "ImportError") {
			err = fmt.Errorf("%w: %v", ErrNotInstalled, err)
		}
		return "", &QueryError{What: what, Output: text, Err: err}
	}
	return lastLine(text), nil
}

// lastLine skips any warnings TensorFlow prints while importing.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func (p *Python) Version(ctx context.Context) (string, error) {
	return p.run(ctx, "import tensorflow failed", versionScript)
}

func (p *Python) IncludeDir(ctx context.Context) (string, error) {
	return p.run(ctx, "tf.sysconfig.get_include failed", includeScript)
}

func (p *Python) LibDir(ctx context.Context) (string, error) {
	return p.run(ctx, "tf.sysconfig.get_lib failed", libScript)
}

func (p *Python) Flags(ctx context.Context) ([]string, []string, error) {
	out, err := p.run(ctx, "tf.sysconfig flag query failed", flagsScript)
	if err != nil {
		return nil, nil, err
	}

	var flags *struct {
		Compile []string `json:"compile"`
		Link    []string `json:"link"`
	}
	if err := json.Unmarshal([]byte(out), &flags); err != nil {
		return nil, nil, fmt.Errorf("failed to parse TensorFlow flags %q: %w", out, err)
	}
	if flags == nil {
		return nil, nil, ErrFlagsUnsupported
	}
	return flags.Compile, flags.Link, nil
}

func (p *Python) Load(ctx context.Context, artifact string) error {
	_, err := p.run(ctx, "load_op_library("+artifact+") failed", loadScript, artifact)
	return err
}
