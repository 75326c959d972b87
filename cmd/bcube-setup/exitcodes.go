package main

import "os"

// Exit codes for different error types.
// These enable scripts to distinguish between failure modes.
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0

	// ExitGeneral indicates a general error
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments, an unreadable configuration file,
	// or an invalid transport selection
	ExitUsage = 2

	// ExitPlatform indicates a required tool or dependency is missing or
	// could not be configured
	ExitPlatform = 3

	// ExitOutput indicates the descriptor could not be handed off
	ExitOutput = 4
)

// exitWithCode exits with the specified exit code
func exitWithCode(code int) {
	os.Exit(code)
}
