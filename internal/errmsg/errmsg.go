// Package errmsg provides enhanced error message formatting with actionable suggestions.
package errmsg

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bcube-dev/bcube-setup/internal/config"
	"github.com/bcube-dev/bcube-setup/internal/feature"
	"github.com/bcube-dev/bcube-setup/internal/probe"
)

// ErrorContext provides additional context for error formatting
type ErrorContext struct {
	Command string // The subcommand that failed (for suggestions)
}

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}

	var cfgErr *feature.ConfigError
	if errors.As(err, &cfgErr) {
		return formatConfigError(cfgErr)
	}

	var platErr *probe.PlatformError
	if errors.As(err, &platErr) {
		return formatPlatformError(platErr, ctx)
	}

	errMsg := err.Error()

	if isMissingToolError(errMsg) {
		return formatMissingToolError(errMsg)
	}

	if isPermissionError(errMsg) {
		return formatPermissionError(errMsg)
	}

	// Return original error for unrecognized types
	return errMsg
}

// Fprint writes the formatted error to w.
func Fprint(w io.Writer, err error, ctx *ErrorContext) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %s\n", strings.TrimRight(Format(err, ctx), "\n"))
}

func formatConfigError(err *feature.ConfigError) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Transport names are case-sensitive\n")
	sb.WriteString(fmt.Sprintf("  - %s is exported by a stale build script\n", err.Variable))

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString(fmt.Sprintf("  - Unset %s to build without offloading this operation\n", err.Variable))
	sb.WriteString(fmt.Sprintf("  - Set %s=TCP or %s=RDMA\n", err.Variable, err.Variable))

	return sb.String()
}

func formatPlatformError(err *probe.PlatformError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	if len(err.Remediation) > 0 {
		sb.WriteString("\nThe following environment variables may be used:\n")
		for _, r := range err.Remediation {
			sb.WriteString(fmt.Sprintf("  - %s\n", r))
		}
	}

	sb.WriteString("\nSuggestions:\n")
	switch err.Dependency {
	case "CUDA":
		sb.WriteString("  - Check that the CUDA toolkit is installed, not only the driver\n")
	case "TensorFlow":
		sb.WriteString(fmt.Sprintf("  - Set %s to the interpreter TensorFlow is installed for\n", config.EnvPython))
	}
	sb.WriteString(fmt.Sprintf("  - Check that %s (or %s) names a working C++ compiler\n", config.EnvCXX, config.EnvCXXFallback))
	if ctx != nil && ctx.Command != "" {
		sb.WriteString(fmt.Sprintf("  - Re-run 'bcube-setup %s --debug' to see every probe command\n", ctx.Command))
	}

	return sb.String()
}

func formatMissingToolError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Install a C++ compiler and Python with TensorFlow\n")
	sb.WriteString(fmt.Sprintf("  - Point %s and %s at non-default installs\n", config.EnvCXX, config.EnvPython))
	sb.WriteString("  - Run 'bcube-setup check-tools' to see what was found\n")

	return sb.String()
}

func formatPermissionError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The build directory is owned by a different user\n")
	sb.WriteString("  - A previous run as root left files behind\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString(fmt.Sprintf("  - Set %s to a writable directory\n", config.EnvBuildTemp))

	return sb.String()
}

// isMissingToolError checks if the error message comes from the tool check
func isMissingToolError(msg string) bool {
	return strings.Contains(msg, "not found in PATH") ||
		strings.HasPrefix(msg, "missing required tools:")
}

// isPermissionError checks if the error message indicates a permission issue
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "read-only file system") ||
		strings.Contains(lower, "operation not permitted")
}
