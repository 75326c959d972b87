package functional

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
)

// bcubeVariables are cleared from the inherited environment so that the
// developer's shell does not leak into scenarios.
var bcubeVariables = []string{
	"BCUBE_GPU_ALLREDUCE", "BCUBE_GPU_ALLGATHER", "BCBUE_GPU_BROADCAST",
	"BCUBE_CUDA_HOME", "BCUBE_CUDA_INCLUDE", "BCUBE_CUDA_LIB",
	"BCUBE_CXX", "CXX", "BCUBE_PYTHON", "BCUBE_BUILD_TEMP",
	"BCUBE_QUIET", "BCUBE_VERBOSE", "BCUBE_DEBUG",
}

// aCleanWorkingDirectory is a no-op because the Before hook already creates
// one. This step exists so feature files read naturally.
func aCleanWorkingDirectory(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

func theEnvironmentVariableIs(ctx context.Context, name, value string) (context.Context, error) {
	state := getState(ctx)
	state.env[name] = value
	return ctx, nil
}

func aFileContaining(ctx context.Context, path string, content *godog.DocString) (context.Context, error) {
	state := getState(ctx)
	fullPath := filepath.Join(state.workDir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return ctx, err
	}
	return ctx, os.WriteFile(fullPath, []byte(content.Content+"\n"), 0o644)
}

// iRun executes a command string, replacing "bcube-setup" with the test binary path.
func iRun(ctx context.Context, command string) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}

	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "bcube-setup" {
		args[0] = state.binPath
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = state.workDir
	cmd.Env = scenarioEnv(state.env)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	state.stdout = stdout.String()
	state.stderr = stderr.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			state.exitCode = exitErr.ExitCode()
		} else {
			return ctx, fmt.Errorf("command execution failed: %w", err)
		}
	} else {
		state.exitCode = 0
	}

	return ctx, nil
}

func scenarioEnv(overrides map[string]string) []string {
	var env []string
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if isBcubeVariable(name) {
			continue
		}
		env = append(env, kv)
	}
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}

func isBcubeVariable(name string) bool {
	for _, v := range bcubeVariables {
		if v == name {
			return true
		}
	}
	return false
}

func theExitCodeIs(ctx context.Context, expected int) error {
	state := getState(ctx)
	if state.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			expected, state.exitCode, state.stdout, state.stderr)
	}
	return nil
}

func theExitCodeIsNot(ctx context.Context, notExpected int) error {
	state := getState(ctx)
	if state.exitCode == notExpected {
		return fmt.Errorf("expected exit code to not be %d\nstdout: %s\nstderr: %s",
			notExpected, state.stdout, state.stderr)
	}
	return nil
}

func theOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout not to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theOutputIsEmpty(ctx context.Context) error {
	state := getState(ctx)
	if state.stdout != "" {
		return fmt.Errorf("expected empty stdout, got:\n%s", state.stdout)
	}
	return nil
}

func theErrorOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

func theErrorOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr not to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

func theFileExists(ctx context.Context, path string) error {
	state := getState(ctx)
	fullPath := filepath.Join(state.workDir, path)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("expected file %q to exist", fullPath)
	}
	return nil
}

func theFileDoesNotExist(ctx context.Context, path string) error {
	state := getState(ctx)
	fullPath := filepath.Join(state.workDir, path)
	if _, err := os.Stat(fullPath); err == nil {
		return fmt.Errorf("expected file %q not to exist", fullPath)
	}
	return nil
}
