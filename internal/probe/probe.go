// Package probe discovers what the host toolchain can actually build.
//
// A probe compiles and links a tiny synthetic source file with a candidate
// configuration. Probe failures are ordinary values: resolvers consume them
// to move on to the next candidate and only turn them into a PlatformError
// once every candidate has failed.
package probe

import (
	"context"
	"fmt"
	"slices"

	"github.com/bcube-dev/bcube-setup/internal/toolchain"
)

// Kind classifies a failed probe.
type Kind int

const (
	// KindCompile means the compile step exited non-zero.
	KindCompile Kind = iota + 1

	// KindLink means compilation succeeded but the link step exited non-zero.
	KindLink

	// KindLoad means compile and link succeeded but the artifact could not be
	// loaded by the dependency's own loader.
	KindLoad
)

func (k Kind) String() string {
	switch k {
	case KindCompile:
		return "compile"
	case KindLink:
		return "link"
	case KindLoad:
		return "load"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Failure is the recoverable outcome of one probe.
type Failure struct {
	Kind       Kind
	Probe      string // probe name, e.g. "test_cuda"
	Diagnostic string // captured toolchain or loader output
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s probe %s failed: %s", f.Probe, f.Kind, f.Diagnostic)
}

// Spec is one probe request. Treat a Spec as immutable once built; the
// Compiler copies every slice before use.
type Spec struct {
	// Name is the artifact base name. The Compiler appends a unique suffix.
	Name        string
	Source      string
	IncludeDirs []string
	LibraryDirs []string
	Libraries   []string
	Macros      []toolchain.Macro
}

func (s Spec) clone() Spec {
	s.IncludeDirs = slices.Clone(s.IncludeDirs)
	s.LibraryDirs = slices.Clone(s.LibraryDirs)
	s.Libraries = slices.Clone(s.Libraries)
	s.Macros = slices.Clone(s.Macros)
	return s
}

// Result is the outcome of a probe. Exactly one of Artifact and Failure is set.
type Result struct {
	// Artifact is the linked shared object on success.
	Artifact string
	Failure  *Failure
}

// OK reports whether the probe compiled and linked.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Prober runs probes. The returned error is reserved for conditions that
// make further probing pointless, such as an unwritable scratch directory.
type Prober interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// Loader loads a linked artifact through a dependency's own loading facility.
type Loader interface {
	Load(ctx context.Context, artifact string) error
}

// Dirs is a pair of include and library search directories.
type Dirs struct {
	Include []string `json:"include" yaml:"include" toml:"include"`
	Lib     []string `json:"lib" yaml:"lib" toml:"lib"`
}

// Empty reports whether no directory is set.
func (d Dirs) Empty() bool {
	return len(d.Include) == 0 && len(d.Lib) == 0
}

// runAndLoad runs spec and, when it links and loader is non-nil, loads the
// artifact. A load error becomes a KindLoad failure.
func runAndLoad(ctx context.Context, p Prober, spec Spec, loader Loader) (*Failure, error) {
	res, err := p.Run(ctx, spec)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return res.Failure, nil
	}
	if loader == nil {
		return nil, nil
	}
	if err := loader.Load(ctx, res.Artifact); err != nil {
		return &Failure{Kind: KindLoad, Probe: spec.Name, Diagnostic: err.Error()}, nil
	}
	return nil, nil
}
