package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcube-dev/bcube-setup/internal/config"
	"github.com/bcube-dev/bcube-setup/internal/extension"
	"github.com/bcube-dev/bcube-setup/internal/feature"
	"github.com/bcube-dev/bcube-setup/internal/probe"
	"github.com/bcube-dev/bcube-setup/internal/toolchain"
)

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"On", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"off", false},
		{"random", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := isTruthy(tt.input)
			if got != tt.want {
				t.Errorf("isTruthy(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetermineLogLevel(t *testing.T) {
	origQuiet := quietFlag
	origVerbose := verboseFlag
	origDebug := debugFlag
	defer func() {
		quietFlag = origQuiet
		verboseFlag = origVerbose
		debugFlag = origDebug
	}()

	tests := []struct {
		name       string
		quietF     bool
		verboseF   bool
		debugF     bool
		envQuiet   string
		envVerbose string
		envDebug   string
		want       slog.Level
	}{
		{name: "default is WARN", want: slog.LevelWarn},
		{name: "debug flag", debugF: true, want: slog.LevelDebug},
		{name: "verbose flag", verboseF: true, want: slog.LevelInfo},
		{name: "quiet flag", quietF: true, want: slog.LevelError},
		{name: "debug env var", envDebug: "1", want: slog.LevelDebug},
		{name: "verbose env var", envVerbose: "true", want: slog.LevelInfo},
		{name: "quiet env var", envQuiet: "yes", want: slog.LevelError},
		{name: "flag takes precedence over env var", quietF: true, envDebug: "1", want: slog.LevelError},
		{name: "debug flag overrides verbose flag", debugF: true, verboseF: true, want: slog.LevelDebug},
		{name: "verbose flag overrides quiet flag", verboseF: true, quietF: true, want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quietFlag = tt.quietF
			verboseFlag = tt.verboseF
			debugFlag = tt.debugF

			// Empty string acts as "unset" for isTruthy checks
			t.Setenv("BCUBE_QUIET", tt.envQuiet)
			t.Setenv("BCUBE_VERBOSE", tt.envVerbose)
			t.Setenv("BCUBE_DEBUG", tt.envDebug)

			got := determineLogLevel()
			if got != tt.want {
				t.Errorf("determineLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	_, cfgErr := feature.Parse(config.EnvGPUAllreduce, "ib")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitGeneral},
		{"transport", cfgErr, ExitUsage},
		{"wrapped transport", fmt.Errorf("configure: %w", cfgErr), ExitUsage},
		{"config file", &usageError{errors.New("unknown key(s)")}, ExitUsage},
		{"platform", &probe.PlatformError{Dependency: "CUDA", Message: "not found"}, ExitPlatform},
		{"missing tool", &toolsError{errors.New("c++ not found in PATH")}, ExitPlatform},
		{"output", fmt.Errorf("failed to hand off descriptor: %w", &outputError{errors.New("disk full")}), ExitOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}

// isolate runs the test in an empty directory with default flags.
func isolate(t *testing.T) {
	t.Helper()
	chdir(t, t.TempDir())

	origConfig, origEnvFile := configFlag, envFileFlag
	origFormat, origOutput := configureFormat, configureOutput
	origQuiet := quietFlag
	t.Cleanup(func() {
		configFlag, envFileFlag = origConfig, origEnvFile
		configureFormat, configureOutput = origFormat, origOutput
		quietFlag = origQuiet
	})
	configFlag, envFileFlag = "", ""
	configureFormat, configureOutput = "json", ""
	quietFlag = true

	for _, v := range config.Variables {
		t.Setenv(v.Name, "")
		os.Unsetenv(v.Name)
	}
}

func TestRunConfigureRejectsTransportBeforeTools(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvGPUAllgather, "Tcp")

	origLookPath := toolchain.LookPath
	t.Cleanup(func() { toolchain.LookPath = origLookPath })
	looked := false
	toolchain.LookPath = func(string) (string, error) {
		looked = true
		return "", exec.ErrNotFound
	}

	var stdout bytes.Buffer
	err := runConfigure(context.Background(), &stdout)

	var ce *feature.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, config.EnvGPUAllgather, ce.Variable)
	assert.Equal(t, ExitUsage, exitCodeFor(err))
	assert.False(t, looked, "tools are not checked")
	assert.Zero(t, stdout.Len())
}

func TestRunConfigureMissingTools(t *testing.T) {
	isolate(t)

	origLookPath := toolchain.LookPath
	t.Cleanup(func() { toolchain.LookPath = origLookPath })
	toolchain.LookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	err := runConfigure(context.Background(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, ExitPlatform, exitCodeFor(err))
	_, statErr := os.Stat(config.DefaultBuildTemp)
	assert.True(t, os.IsNotExist(statErr), "no scratch directory is created")
}

func TestRunConfigureBadFormat(t *testing.T) {
	isolate(t)
	configureFormat = "xml"

	err := runConfigure(context.Background(), &bytes.Buffer{})
	assert.Equal(t, ExitUsage, exitCodeFor(err))
}

func TestRunConfigureBadConfigFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(config.DefaultConfigFile, []byte("[toolchain]\ncompiler = \"g++\"\n"), 0o644))

	err := runConfigure(context.Background(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
	assert.Equal(t, ExitUsage, exitCodeFor(err))
}

func TestOutputInvoker(t *testing.T) {
	d := extension.Descriptor{Name: config.DefaultExtensionName, Libraries: []string{"cudart"}}

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		inv := &outputInvoker{stdout: &buf, format: extension.FormatJSON}
		require.NoError(t, inv.Invoke(context.Background(), d))

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, config.DefaultExtensionName, got["name"])
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "descriptor.yaml")
		inv := &outputInvoker{path: path, format: extension.FormatYAML}
		require.NoError(t, inv.Invoke(context.Background(), d))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "name: "+config.DefaultExtensionName)

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temporary file is renamed into place")

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm(), "descriptor is readable by other users")
	})

	t.Run("unwritable", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		inv := &outputInvoker{path: filepath.Join(blocker, "descriptor.json"), format: extension.FormatJSON}

		err := inv.Invoke(context.Background(), d)
		assert.Equal(t, ExitOutput, exitCodeFor(err))
	})
}

func TestRunEnv(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvGPUAllreduce, "RDMA")
	t.Setenv(config.EnvCUDAHome, "/opt/cuda")

	var buf bytes.Buffer
	require.NoError(t, runEnv(&buf, false))
	out := buf.String()
	assert.Contains(t, out, "BCUBE_GPU_ALLREDUCE")
	assert.Contains(t, out, "BCBUE_GPU_BROADCAST")
	assert.Contains(t, out, "(unset)")
	assert.Contains(t, out, "/opt/cuda/include")

	buf.Reset()
	require.NoError(t, runEnv(&buf, true))
	var r envReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &r))
	assert.Equal(t, map[string]string{"allreduce": "RDMA"}, r.Transports)
	require.NotNil(t, r.CUDA)
	assert.Equal(t, []string{"/opt/cuda/include"}, r.CUDA.Include)
	assert.Len(t, r.Variables, len(config.Variables))
}

func TestRunEnvReportsInvalidTransport(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvGPUBroadcast, "UDP")

	var buf bytes.Buffer
	require.NoError(t, runEnv(&buf, true))
	var r envReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &r))
	assert.Contains(t, r.Error, "BCBUE_GPU_BROADCAST=UDP is invalid")
	assert.Nil(t, r.CUDA)
}

func TestRunCheckTools(t *testing.T) {
	isolate(t)

	origLookPath := toolchain.LookPath
	t.Cleanup(func() { toolchain.LookPath = origLookPath })
	toolchain.LookPath = func(name string) (string, error) {
		if name == config.DefaultCXX {
			return "/usr/bin/c++", nil
		}
		return "", exec.ErrNotFound
	}

	var buf bytes.Buffer
	err := runCheckTools(&buf, false)
	assert.Equal(t, ExitPlatform, exitCodeFor(err))
	assert.Contains(t, buf.String(), "ok       c++")
	assert.Contains(t, buf.String(), "missing  python3")

	buf.Reset()
	_ = runCheckTools(&buf, true)
	var reports []toolReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &reports))
	require.Len(t, reports, 2)
	assert.True(t, reports[0].Found)
	assert.False(t, reports[1].Found)
}
