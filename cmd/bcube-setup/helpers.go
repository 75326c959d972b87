package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bcube-dev/bcube-setup/internal/config"
	"github.com/bcube-dev/bcube-setup/internal/errmsg"
	"github.com/bcube-dev/bcube-setup/internal/feature"
	"github.com/bcube-dev/bcube-setup/internal/probe"
)

// usageError marks errors caused by how the tool was invoked or configured.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// toolsError marks a missing compiler or interpreter.
type toolsError struct{ err error }

func (e *toolsError) Error() string { return e.err.Error() }
func (e *toolsError) Unwrap() error { return e.err }

// outputError marks a failure to write the descriptor.
type outputError struct{ err error }

func (e *outputError) Error() string { return e.err.Error() }
func (e *outputError) Unwrap() error { return e.err }

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		cfgErr   *feature.ConfigError
		useErr   *usageError
		platErr  *probe.PlatformError
		toolsErr *toolsError
		outErr   *outputError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &useErr):
		return ExitUsage
	case errors.As(err, &platErr), errors.As(err, &toolsErr):
		return ExitPlatform
	case errors.As(err, &outErr):
		return ExitOutput
	}
	return ExitGeneral
}

// loadConfig reads the configuration record for this run.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: configFlag,
		EnvFile:    envFileFlag,
	})
	if err != nil {
		return config.Config{}, &usageError{err}
	}
	return cfg, nil
}

// printInfo prints an informational message unless quiet mode is enabled
func printInfo(a ...interface{}) {
	if !quietFlag {
		fmt.Fprintln(os.Stderr, a...)
	}
}

// printInfof prints a formatted informational message unless quiet mode is enabled
func printInfof(format string, a ...interface{}) {
	if !quietFlag {
		fmt.Fprintf(os.Stderr, format, a...)
	}
}

// printJSON marshals the given value to JSON and prints it to stdout
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		exitWithCode(ExitGeneral)
	}
}

// printError prints an error to stderr with suggestions if available.
// This uses the errmsg package to format errors with actionable suggestions.
func printError(err error, command string) {
	errmsg.Fprint(os.Stderr, err, &errmsg.ErrorContext{Command: command})
}

// fail reports err and exits with its exit code.
func fail(err error, command string) {
	printError(err, command)
	exitWithCode(exitCodeFor(err))
}
