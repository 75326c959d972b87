package framework

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/bcube-dev/bcube-setup/internal/probe"
)

// MinimumVersion is the oldest TensorFlow the extension builds against.
const MinimumVersion = "1.1.0"

var minimum = semver.MustParse(MinimumVersion)

// CheckVersion fails with a *probe.PlatformError when the framework is
// missing, does not report a version, or is older than MinimumVersion.
func CheckVersion(ctx context.Context, fw Framework) (*semver.Version, error) {
	raw, err := fw.Version(ctx)
	if err != nil {
		pe := &probe.PlatformError{
			Dependency: Name,
			Message:    "import tensorflow failed, is it installed?",
			Diagnostic: err.Error(),
			Err:        err,
		}
		var qe *QueryError
		if errors.As(err, &qe) {
			pe.Diagnostic = qe.Output
		}
		return nil, pe
	}

	if raw == "" {
		return nil, &probe.PlatformError{
			Dependency: Name,
			Message:    "Your TensorFlow version is outdated. Bcube requires tensorflow>=" + MinimumVersion,
		}
	}

	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, &probe.PlatformError{
			Dependency: Name,
			Message:    fmt.Sprintf("Unable to parse TensorFlow version %q", raw),
			Err:        err,
		}
	}
	if v.LessThan(minimum) {
		return nil, &probe.PlatformError{
			Dependency: Name,
			Message: fmt.Sprintf("Your TensorFlow version %s is outdated. Bcube requires tensorflow>=%s",
				raw, MinimumVersion),
		}
	}
	return v, nil
}
