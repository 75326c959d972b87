package probe

import (
	"context"
	"strings"

	"github.com/bcube-dev/bcube-setup/internal/log"
)

// LibraryResolver finds which set of library names a dependency exports its
// runtime under on this host.
type LibraryResolver struct {
	// Dependency is used in errors and logs.
	Dependency string

	// Probe is the artifact base name.
	Probe string

	// Source is compiled for every candidate.
	Source string

	IncludeDirs []string
	LibraryDirs []string
	Candidates  CandidateSet[[]string]

	// Verify, when set, must also load each linked candidate.
	Verify Loader
}

// Resolve returns the first candidate library set that links (and loads,
// when Verify is set).
func (r LibraryResolver) Resolve(ctx context.Context, p Prober, logger log.Logger) ([]string, error) {
	logger = log.OrDefault(logger).With("dependency", r.Dependency)

	libs, err := r.Candidates.Resolve(ctx, func(ctx context.Context, libs []string) (*Failure, error) {
		logger.Debug("trying library candidate", "libraries", strings.Join(libs, ","))
		return runAndLoad(ctx, p, Spec{
			Name:        r.Probe,
			Source:      r.Source,
			IncludeDirs: r.IncludeDirs,
			LibraryDirs: r.LibraryDirs,
			Libraries:   libs,
		}, r.Verify)
	})
	if err != nil {
		return nil, exhausted(r.Dependency,
			"Unable to determine -l link flags to use with "+r.Dependency+".", err)
	}

	logger.Info("resolved link libraries", "libraries", libs)
	return libs, nil
}
