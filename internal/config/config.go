// Package config collects every setting a bcube-setup run depends on into one
// record. The record is read once at the start of a run and passed by value to
// the components that need it; nothing below the command layer reads the
// process environment directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// EnvGPUAllreduce selects the allreduce transport and enables GPU support.
	EnvGPUAllreduce = "BCUBE_GPU_ALLREDUCE"

	// EnvGPUAllgather selects the allgather transport.
	EnvGPUAllgather = "BCUBE_GPU_ALLGATHER"

	// EnvGPUBroadcast selects the broadcast transport. The transposed spelling
	// is what existing build scripts export, so it is kept as-is.
	EnvGPUBroadcast = "BCBUE_GPU_BROADCAST"

	// EnvCUDAHome is the CUDA installation prefix.
	EnvCUDAHome = "BCUBE_CUDA_HOME"

	// EnvCUDAInclude is an additional CUDA include directory.
	EnvCUDAInclude = "BCUBE_CUDA_INCLUDE"

	// EnvCUDALib is an additional CUDA library directory.
	EnvCUDALib = "BCUBE_CUDA_LIB"

	// EnvCXX overrides the C++ compiler driver used for probes.
	EnvCXX = "BCUBE_CXX"

	// EnvCXXFallback is the conventional compiler variable, consulted after EnvCXX.
	EnvCXXFallback = "CXX"

	// EnvPython overrides the interpreter used to query the framework.
	EnvPython = "BCUBE_PYTHON"

	// EnvBuildTemp overrides the build scratch root.
	EnvBuildTemp = "BCUBE_BUILD_TEMP"

	// DefaultConfigFile is read when present and no --config flag is given.
	DefaultConfigFile = "bcube.toml"

	DefaultCXX           = "c++"
	DefaultPython        = "python3"
	DefaultBuildTemp     = "build/temp"
	DefaultStd           = "c++11"
	DefaultExtensionName = "bcube.tensorflow.bcube_lib"
)

// DefaultSources is the fixed list of translation units of the extension.
var DefaultSources = []string{
	"bcube/tensorflow/bcube_message.cpp",
	"bcube/tensorflow/bcube_utils.cpp",
	"bcube/tensorflow/bcube_ops.cpp",
	"bcube/tensorflow/bcube_comm.cpp",
}

// Variable describes one recognized environment variable.
type Variable struct {
	Name        string
	Description string
}

// Variables lists every environment variable bcube-setup reads, in the order
// they are documented.
var Variables = []Variable{
	{EnvGPUAllreduce, `allreduce transport: "", "TCP" or "RDMA"; non-empty enables CUDA`},
	{EnvGPUAllgather, `allgather transport: "", "TCP" or "RDMA"`},
	{EnvGPUBroadcast, `broadcast transport: "", "TCP" or "RDMA"`},
	{EnvCUDAHome, "path where CUDA include and lib directories can be found"},
	{EnvCUDAInclude, "path to CUDA include directory"},
	{EnvCUDALib, "path to CUDA lib directory"},
	{EnvCXX, "C++ compiler driver used for probes (falls back to CXX)"},
	{EnvCXXFallback, "C++ compiler driver used when BCUBE_CXX is unset"},
	{EnvPython, "Python interpreter with TensorFlow installed"},
	{EnvBuildTemp, "scratch root for probe artifacts"},
}

// Env is a snapshot of the recognized environment variables. It is never
// written to after Load returns.
type Env map[string]string

// Lookup returns the value of key and whether it was set.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// Get returns the value of key, or "" when unset.
func (e Env) Get(key string) string {
	return e[key]
}

// Toolchain configures the programs used to probe the host.
type Toolchain struct {
	CXX       string `toml:"cxx" validate:"required"`
	Python    string `toml:"python" validate:"required"`
	BuildTemp string `toml:"build_temp" validate:"required"`
	Std       string `toml:"std" validate:"oneof=c++11 c++14 c++17"`
}

// Extension describes the fixed, non-probed part of the descriptor.
type Extension struct {
	Name    string   `toml:"name" validate:"required"`
	Sources []string `toml:"sources" validate:"min=1,dive,required"`
}

// Config is the configuration record for one run.
type Config struct {
	Toolchain Toolchain `toml:"toolchain"`
	Extension Extension `toml:"extension"`

	// Env holds the recognized environment variables after merging the
	// dotenv file and the process environment.
	Env Env `toml:"-" validate:"-"`
}

// Default returns a Config with built-in defaults and an empty Env.
func Default() Config {
	return Config{
		Toolchain: Toolchain{
			CXX:       DefaultCXX,
			Python:    DefaultPython,
			BuildTemp: DefaultBuildTemp,
			Std:       DefaultStd,
		},
		Extension: Extension{
			Name:    DefaultExtensionName,
			Sources: append([]string(nil), DefaultSources...),
		},
		Env: Env{},
	}
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFile is a TOML file. Empty means DefaultConfigFile if it exists.
	ConfigFile string

	// EnvFile is a dotenv file merged beneath the process environment.
	EnvFile string

	// Environ is the process environment in "KEY=value" form. Nil means os.Environ().
	Environ []string
}

// Load builds the configuration record. Precedence, lowest first: defaults,
// TOML file, dotenv file, process environment.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := opts.ConfigFile
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return Config{}, err
	}

	merged := map[string]string{}
	if opts.EnvFile != "" {
		dotenv, err := godotenv.Read(opts.EnvFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read env file %s: %w", opts.EnvFile, err)
		}
		for k, v := range dotenv {
			merged[k] = v
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	for k, v := range parseEnviron(environ) {
		merged[k] = v
	}

	cfg.Env = snapshot(merged)
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown key(s) in config file %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := c.Env.Get(EnvCXX); v != "" {
		c.Toolchain.CXX = v
	} else if v := c.Env.Get(EnvCXXFallback); v != "" {
		c.Toolchain.CXX = v
	}
	if v := c.Env.Get(EnvPython); v != "" {
		c.Toolchain.Python = v
	}
	if v := c.Env.Get(EnvBuildTemp); v != "" {
		c.Toolchain.BuildTemp = v
	}
}

var validate = validator.New()

// Validate checks the record's invariants.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// snapshot keeps only recognized variables.
func snapshot(all map[string]string) Env {
	env := Env{}
	for _, v := range Variables {
		if val, ok := all[v.Name]; ok {
			env[v.Name] = val
		}
	}
	return env
}

func parseEnviron(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
