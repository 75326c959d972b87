package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcube-dev/bcube-setup/internal/buildinfo"
	"github.com/bcube-dev/bcube-setup/internal/config"
	"github.com/bcube-dev/bcube-setup/internal/log"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool

	configFlag  string
	envFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "bcube-setup",
	Short: "Configure the build of the bcube TensorFlow extension",
	Long: `bcube-setup probes the host for TensorFlow, CUDA and RDMA, then emits the
descriptor a compiler driver needs to build the bcube op library.

Settings are read once per run from, lowest precedence first: built-in
defaults, bcube.toml (or --config), a dotenv file (--env-file), and the
process environment. Run 'bcube-setup env' to see the variables.`,
	Version:      buildinfo.Version(),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetDefault(log.NewCLI(os.Stderr, determineLogLevel()))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Only show errors")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show each step and its result")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Show every probe command and its output")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Configuration file (default "+config.DefaultConfigFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "dotenv file merged beneath the process environment")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(checkToolsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		exitWithCode(ExitUsage)
	}
}

// determineLogLevel resolves verbosity from flags first, then environment
// variables. Within each source debug wins over verbose, verbose over quiet.
func determineLogLevel() slog.Level {
	switch {
	case debugFlag:
		return slog.LevelDebug
	case verboseFlag:
		return slog.LevelInfo
	case quietFlag:
		return slog.LevelError
	}

	switch {
	case isTruthy(os.Getenv("BCUBE_DEBUG")):
		return slog.LevelDebug
	case isTruthy(os.Getenv("BCUBE_VERBOSE")):
		return slog.LevelInfo
	case isTruthy(os.Getenv("BCUBE_QUIET")):
		return slog.LevelError
	}
	return slog.LevelWarn
}

// isTruthy reports whether an environment value turns a switch on.
func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
