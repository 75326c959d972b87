package probe

import (
	"context"
	"errors"

	"github.com/bcube-dev/bcube-setup/internal/log"
	"github.com/bcube-dev/bcube-setup/internal/toolchain"
)

// ABIDetector finds the value of an object-layout macro that produces
// artifacts the dependency's runtime can load.
//
// Compiling and linking is not enough: a mismatched C++ ABI usually only
// shows up when the artifact is loaded against the real runtime library, so
// every candidate that links is also loaded through Loader.
type ABIDetector struct {
	Dependency string
	Probe      string
	Source     string

	// Macro is the ABI macro name, e.g. _GLIBCXX_USE_CXX11_ABI.
	Macro      string
	Candidates CandidateSet[string]

	IncludeDirs []string
	LibraryDirs []string
	Libraries   []string

	Loader Loader
}

// Detect returns the first working macro definition.
func (d ABIDetector) Detect(ctx context.Context, p Prober, logger log.Logger) (toolchain.Macro, error) {
	logger = log.OrDefault(logger).With("dependency", d.Dependency)
	if d.Loader == nil {
		return toolchain.Macro{}, &PlatformError{
			Dependency: d.Dependency,
			Message:    "ABI detection for " + d.Dependency + " requires a loader",
			Err:        errors.New("nil loader"),
		}
	}

	value, err := d.Candidates.Resolve(ctx, func(ctx context.Context, value string) (*Failure, error) {
		logger.Debug("trying ABI candidate", "macro", d.Macro, "value", value)
		return runAndLoad(ctx, p, Spec{
			Name:        d.Probe,
			Source:      d.Source,
			IncludeDirs: d.IncludeDirs,
			LibraryDirs: d.LibraryDirs,
			Libraries:   d.Libraries,
			Macros:      []toolchain.Macro{{Name: d.Macro, Value: value}},
		}, d.Loader)
	})
	if err != nil {
		return toolchain.Macro{}, exhausted(d.Dependency,
			"Unable to determine "+d.Macro+" to use with "+d.Dependency+".", err)
	}

	logger.Info("resolved ABI", "macro", d.Macro, "value", value)
	return toolchain.Macro{Name: d.Macro, Value: value}, nil
}
