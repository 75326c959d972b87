package framework

import (
	"context"
	"errors"

	"github.com/bcube-dev/bcube-setup/internal/log"
	"github.com/bcube-dev/bcube-setup/internal/probe"
)

// ABIMacro controls libstdc++'s std::string and std::list layout.
const ABIMacro = "_GLIBCXX_USE_CXX11_ABI"

// Candidate orders used when the framework cannot report its own flags.
var (
	LibraryCandidates = probe.NewCandidateSet([]string{"tensorflow_framework"}, []string{})
	ABICandidates     = probe.NewCandidateSet("0", "1")
)

const (
	libsProbeSource = `void test() {
}
`
	abiProbeSource = `#include <string>
#include "tensorflow/core/framework/op.h"
#include "tensorflow/core/framework/op_kernel.h"
#include "tensorflow/core/framework/shape_inference.h"
void test() {
    auto ignore = tensorflow::strings::StrCat("a", "b");
}
`
)

// FlagSource records where compile and link flags came from.
type FlagSource string

const (
	FlagsFromSysconfig FlagSource = "sysconfig"
	FlagsFromProbes    FlagSource = "probes"
)

// Flags are the framework's compile and link flags.
type Flags struct {
	Compile []string
	Link    []string
	Source  FlagSource
}

// ResolveFlags asks the framework for its flags and, on versions that cannot
// report them, derives equivalent flags by probing.
func ResolveFlags(ctx context.Context, fw Framework, p probe.Prober, logger log.Logger) (Flags, error) {
	logger = log.OrDefault(logger).With("dependency", Name)

	compile, link, err := fw.Flags(ctx)
	if err == nil {
		logger.Info("using TensorFlow sysconfig flags", "compile", compile, "link", link)
		return Flags{Compile: compile, Link: link, Source: FlagsFromSysconfig}, nil
	}
	if !errors.Is(err, ErrFlagsUnsupported) {
		return Flags{}, &probe.PlatformError{
			Dependency: Name,
			Message:    "Unable to query TensorFlow compile and link flags.",
			Diagnostic: err.Error(),
			Err:        err,
		}
	}

	logger.Info("TensorFlow does not report its flags, probing")
	return probeFlags(ctx, fw, p, logger)
}

func probeFlags(ctx context.Context, fw Framework, p probe.Prober, logger log.Logger) (Flags, error) {
	dirs, err := Dirs(ctx, fw)
	if err != nil {
		return Flags{}, err
	}

	libs, err := probe.LibraryResolver{
		Dependency:  Name,
		Probe:       "test_tensorflow_libs",
		Source:      libsProbeSource,
		LibraryDirs: dirs.Lib,
		Candidates:  LibraryCandidates,
		Verify:      fw,
	}.Resolve(ctx, p, logger)
	if err != nil {
		return Flags{}, err
	}

	abi, err := probe.ABIDetector{
		Dependency:  Name,
		Probe:       "test_tensorflow_abi",
		Source:      abiProbeSource,
		Macro:       ABIMacro,
		Candidates:  ABICandidates,
		IncludeDirs: dirs.Include,
		LibraryDirs: dirs.Lib,
		Libraries:   libs,
		Loader:      fw,
	}.Detect(ctx, p, logger)
	if err != nil {
		return Flags{}, err
	}

	flags := Flags{Source: FlagsFromProbes}
	for _, dir := range dirs.Include {
		flags.Compile = append(flags.Compile, "-I"+dir)
	}
	flags.Compile = append(flags.Compile, abi.Flag())
	for _, dir := range dirs.Lib {
		flags.Link = append(flags.Link, "-L"+dir)
	}
	for _, lib := range libs {
		flags.Link = append(flags.Link, "-l"+lib)
	}
	return flags, nil
}

// Dirs returns the framework's include and library directories. The nsync
// headers live in a separate tree that TensorFlow's own headers include.
func Dirs(ctx context.Context, fw Framework) (probe.Dirs, error) {
	inc, err := fw.IncludeDir(ctx)
	if err != nil {
		return probe.Dirs{}, &probe.PlatformError{Dependency: Name, Message: "Unable to locate TensorFlow headers.", Diagnostic: err.Error(), Err: err}
	}
	lib, err := fw.LibDir(ctx)
	if err != nil {
		return probe.Dirs{}, &probe.PlatformError{Dependency: Name, Message: "Unable to locate TensorFlow libraries.", Diagnostic: err.Error(), Err: err}
	}
	return probe.Dirs{
		Include: []string{inc, inc + "/external/nsync/public"},
		Lib:     []string{lib},
	}, nil
}
