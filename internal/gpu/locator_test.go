package gpu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcube-dev/bcube-setup/internal/config"
	"github.com/bcube-dev/bcube-setup/internal/log"
	"github.com/bcube-dev/bcube-setup/internal/probe"
)

type stubProber struct {
	result probe.Result
	err    error
	specs  []probe.Spec
}

func (s *stubProber) Run(_ context.Context, spec probe.Spec) (probe.Result, error) {
	s.specs = append(s.specs, spec)
	return s.result, s.err
}

func TestDirs(t *testing.T) {
	tests := []struct {
		name        string
		env         config.Env
		wantInclude []string
		wantLib     []string
	}{
		{
			name:        "home only",
			env:         config.Env{config.EnvCUDAHome: "/opt/cuda"},
			wantInclude: []string{"/opt/cuda/include"},
			wantLib:     []string{"/opt/cuda/lib", "/opt/cuda/lib64"},
		},
		{
			name:        "nothing set falls back to default",
			env:         config.Env{},
			wantInclude: []string{"/usr/local/cuda/include"},
			wantLib:     []string{"/usr/local/cuda/lib", "/usr/local/cuda/lib64"},
		},
		{
			name: "home plus explicit dirs are additive",
			env: config.Env{
				config.EnvCUDAHome:    "/opt/cuda",
				config.EnvCUDAInclude: "/extra/include",
				config.EnvCUDALib:     "/extra/lib",
			},
			wantInclude: []string{"/opt/cuda/include", "/extra/include"},
			wantLib:     []string{"/opt/cuda/lib", "/opt/cuda/lib64", "/extra/lib"},
		},
		{
			name:        "include only suppresses default",
			env:         config.Env{config.EnvCUDAInclude: "/cuda/include"},
			wantInclude: []string{"/cuda/include"},
		},
		{
			name:    "lib only suppresses default",
			env:     config.Env{config.EnvCUDALib: "/cuda/lib64"},
			wantLib: []string{"/cuda/lib64"},
		},
		{
			name:        "empty values count as unset",
			env:         config.Env{config.EnvCUDAHome: ""},
			wantInclude: []string{"/usr/local/cuda/include"},
			wantLib:     []string{"/usr/local/cuda/lib", "/usr/local/cuda/lib64"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dirs := Dirs(tt.env)
			assert.Equal(t, tt.wantInclude, dirs.Include)
			assert.Equal(t, tt.wantLib, dirs.Lib)
		})
	}
}

func TestLocateSuccess(t *testing.T) {
	p := &stubProber{result: probe.Result{Artifact: "/tmp/test_cuda.so"}}

	dirs, err := Locate(context.Background(), config.Env{config.EnvCUDAHome: "/opt/cuda"}, p, log.NewNoop())
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/cuda/include"}, dirs.Include)

	require.Len(t, p.specs, 1)
	assert.Equal(t, []string{"cudart"}, p.specs[0].Libraries)
	assert.Contains(t, p.specs[0].Source, "cudaSetDevice(0)")
	assert.Equal(t, dirs.Lib, p.specs[0].LibraryDirs)
}

func TestLocateProbeFailure(t *testing.T) {
	p := &stubProber{result: probe.Result{Failure: &probe.Failure{
		Kind:       probe.KindCompile,
		Probe:      "test_cuda",
		Diagnostic: "cuda_runtime.h: No such file or directory",
	}}}

	_, err := Locate(context.Background(), config.Env{}, p, log.NewNoop())

	var pe *probe.PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "CUDA", pe.Dependency)
	assert.Contains(t, pe.Message, "CUDA library was not found")
	assert.Equal(t, "cuda_runtime.h: No such file or directory", pe.Diagnostic)
	require.Len(t, pe.Remediation, 3)
	assert.Contains(t, pe.Remediation[0], "BCUBE_CUDA_HOME")
	assert.Contains(t, pe.Remediation[1], "BCUBE_CUDA_INCLUDE")
	assert.Contains(t, pe.Remediation[2], "BCUBE_CUDA_LIB")
}

func TestLocateFatalProbeError(t *testing.T) {
	boom := errors.New("read-only file system")
	_, err := Locate(context.Background(), config.Env{}, &stubProber{err: boom}, log.NewNoop())

	var pe *probe.PlatformError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, boom)
}

func TestLocateInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &stubProber{result: probe.Result{Failure: &probe.Failure{Kind: probe.KindCompile, Diagnostic: "signal: killed"}}}

	_, err := Locate(ctx, config.Env{}, p, log.NewNoop())

	assert.ErrorIs(t, err, context.Canceled)
	var pe *probe.PlatformError
	assert.False(t, errors.As(err, &pe))
}
