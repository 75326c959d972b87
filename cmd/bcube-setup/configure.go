package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bcube-dev/bcube-setup/internal/extension"
	"github.com/bcube-dev/bcube-setup/internal/feature"
	"github.com/bcube-dev/bcube-setup/internal/framework"
	"github.com/bcube-dev/bcube-setup/internal/log"
	"github.com/bcube-dev/bcube-setup/internal/probe"
	"github.com/bcube-dev/bcube-setup/internal/progress"
	"github.com/bcube-dev/bcube-setup/internal/toolchain"
)

var (
	configureFormat string
	configureOutput string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Probe the host and emit the extension build descriptor",
	Long: `Probe the host for TensorFlow and, when a GPU transport is selected, CUDA
and RDMA. On success the build descriptor is written to stdout or --output.
Nothing is written when any step fails.

Examples:
  bcube-setup configure
  BCUBE_GPU_ALLREDUCE=RDMA bcube-setup configure --format yaml
  bcube-setup configure --env-file gpu.env --output build/descriptor.json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runConfigure(cmd.Context(), os.Stdout); err != nil {
			fail(err, "configure")
		}
	},
}

func init() {
	configureCmd.Flags().StringVarP(&configureFormat, "format", "f", string(extension.FormatJSON), "Descriptor format: json, yaml or toml")
	configureCmd.Flags().StringVarP(&configureOutput, "output", "o", "", "Write the descriptor to this file instead of stdout")
}

func runConfigure(ctx context.Context, stdout io.Writer) error {
	format, err := extension.ParseFormat(configureFormat)
	if err != nil {
		return &usageError{err}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Reject bad transport names before any external program runs.
	if _, err := feature.Select(cfg.Env); err != nil {
		return err
	}
	if err := toolchain.CheckTools(toolchain.Requirements(cfg.Toolchain.CXX, cfg.Toolchain.Python)); err != nil {
		return &toolsError{err}
	}

	logger := log.Default()
	runner := toolchain.ExecRunner{}
	compiler := probe.NewCompiler(
		toolchain.NewDriver(cfg.Toolchain.CXX, cfg.Toolchain.Std, runner),
		cfg.Toolchain.BuildTemp,
		probe.WithLogger(logger),
	)
	unlock, err := compiler.LockScratch()
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	opts := []extension.Option{extension.WithLogger(logger)}
	if !quietFlag {
		opts = append(opts, extension.WithReporter(progress.NewSteps(os.Stderr)))
	}
	b := extension.NewBuilder(cfg, framework.NewPython(cfg.Toolchain.Python, runner), compiler, opts...)

	inv := &outputInvoker{path: configureOutput, stdout: stdout, format: format}
	d, err := extension.Configure(ctx, b, inv)
	if err != nil {
		return err
	}

	logger.Info("configure finished", "probes", compiler.Attempts(), "macros", len(d.Macros))
	if configureOutput != "" {
		printInfof("Wrote %s descriptor for %s to %s\n", format, d.Name, configureOutput)
	}
	return nil
}

// outputInvoker writes the descriptor to stdout, or atomically to a file so
// that a failed run never leaves a truncated descriptor behind.
type outputInvoker struct {
	path   string
	stdout io.Writer
	format extension.Format
}

func (o *outputInvoker) Invoke(_ context.Context, d extension.Descriptor) error {
	if o.path == "" {
		if err := extension.Encode(o.stdout, d, o.format); err != nil {
			return &outputError{err}
		}
		return nil
	}
	if err := writeAtomic(o.path, d, o.format); err != nil {
		return &outputError{err}
	}
	return nil
}

func writeAtomic(path string, d extension.Descriptor, format extension.Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := extension.Encode(tmp, d, format); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	// CreateTemp uses 0600; the build driver may run as another user.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	return nil
}
