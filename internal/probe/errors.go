package probe

import (
	"context"
	"errors"
	"strings"
)

// PlatformError reports a dependency that is missing, cannot be probed, or
// for which every candidate configuration failed. It is fatal to the run.
type PlatformError struct {
	// Dependency names what could not be configured, e.g. "CUDA".
	Dependency string

	// Message is the one-line summary.
	Message string

	// Diagnostic is the last probe's captured output, if any.
	Diagnostic string

	// Remediation lists steps the user can take, shown verbatim.
	Remediation []string

	// Err is the underlying cause, if any.
	Err error
}

func (e *PlatformError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Diagnostic != "" {
		sb.WriteString("\n\nLast error:\n\n")
		sb.WriteString(e.Diagnostic)
	}
	return sb.String()
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// exhausted converts a resolution error into a PlatformError. Errors other
// than ExhaustedError are wrapped with the dependency name. Cancellation is
// returned unchanged.
func exhausted(dependency, message string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pe := &PlatformError{Dependency: dependency, Message: message, Err: err}
	var ex *ExhaustedError
	if errors.As(err, &ex) {
		if ex.Last != nil {
			pe.Diagnostic = ex.Last.Diagnostic
		}
	} else {
		pe.Diagnostic = err.Error()
	}
	return pe
}
