// Package gpu locates the CUDA runtime the extension links against when any
// collective operation is offloaded to the GPU.
package gpu

import (
	"context"
	"fmt"
	"strings"

	"github.com/bcube-dev/bcube-setup/internal/config"
	"github.com/bcube-dev/bcube-setup/internal/log"
	"github.com/bcube-dev/bcube-setup/internal/probe"
)

const (
	// DefaultHome is used when no CUDA variable is set.
	DefaultHome = "/usr/local/cuda"

	// RuntimeLibrary is the CUDA runtime library name.
	RuntimeLibrary = "cudart"

	probeName = "test_cuda"

	probeSource = `#include <cuda_runtime.h>
void test() {
    cudaSetDevice(0);
}
`
)

// Dirs resolves the CUDA search directories from env. A home prefix and the
// explicit include/lib variables are additive; the platform default is used
// only when none of them is set.
func Dirs(env config.Env) probe.Dirs {
	var dirs probe.Dirs

	if home := env.Get(config.EnvCUDAHome); home != "" {
		dirs.Include = append(dirs.Include, home+"/include")
		dirs.Lib = append(dirs.Lib, home+"/lib", home+"/lib64")
	}
	if inc := env.Get(config.EnvCUDAInclude); inc != "" {
		dirs.Include = append(dirs.Include, inc)
	}
	if lib := env.Get(config.EnvCUDALib); lib != "" {
		dirs.Lib = append(dirs.Lib, lib)
	}

	if dirs.Empty() {
		dirs.Include = []string{DefaultHome + "/include"}
		dirs.Lib = []string{DefaultHome + "/lib", DefaultHome + "/lib64"}
	}
	return dirs
}

// Locate resolves the CUDA directories and confirms with one probe that
// cudaSetDevice compiles and links against them.
func Locate(ctx context.Context, env config.Env, p probe.Prober, logger log.Logger) (probe.Dirs, error) {
	logger = log.OrDefault(logger).With("dependency", "CUDA")
	dirs := Dirs(env)
	logger.Debug("probing CUDA", "include", dirs.Include, "lib", dirs.Lib)

	res, err := p.Run(ctx, probe.Spec{
		Name:        probeName,
		Source:      probeSource,
		IncludeDirs: dirs.Include,
		LibraryDirs: dirs.Lib,
		Libraries:   []string{RuntimeLibrary},
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return probe.Dirs{}, ctxErr
	}
	if err != nil {
		return probe.Dirs{}, &probe.PlatformError{
			Dependency:  "CUDA",
			Message:     "CUDA probe could not be run.",
			Diagnostic:  err.Error(),
			Remediation: remediation(),
			Err:         err,
		}
	}
	if !res.OK() {
		return probe.Dirs{}, &probe.PlatformError{
			Dependency: "CUDA",
			Message: fmt.Sprintf("CUDA library was not found (%s probe failed).\n"+
				"Please specify correct CUDA location with the %s environment variable "+
				"or combination of %s and %s environment variables.",
				res.Failure.Kind, config.EnvCUDAHome, config.EnvCUDAInclude, config.EnvCUDALib),
			Diagnostic:  res.Failure.Diagnostic,
			Remediation: remediation(),
			Err:         res.Failure,
		}
	}

	logger.Info("located CUDA", "include", strings.Join(dirs.Include, ":"), "lib", strings.Join(dirs.Lib, ":"))
	return dirs, nil
}

func remediation() []string {
	return []string{
		config.EnvCUDAHome + " - path where CUDA include and lib directories can be found",
		config.EnvCUDAInclude + " - path to CUDA include directory",
		config.EnvCUDALib + " - path to CUDA lib directory",
	}
}
