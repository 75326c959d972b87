package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bcube-dev/bcube-setup/internal/config"
	"github.com/bcube-dev/bcube-setup/internal/feature"
	"github.com/bcube-dev/bcube-setup/internal/gpu"
)

var envJSON bool

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show the variables bcube-setup reads and their current values",
	Long: `Show every environment variable bcube-setup recognizes, its value after
merging --config, --env-file and the process environment, and the settings
derived from them. No external program is run.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runEnv(os.Stdout, envJSON); err != nil {
			fail(err, "env")
		}
	},
}

func init() {
	envCmd.Flags().BoolVar(&envJSON, "json", false, "Output in JSON format")
}

type envVariable struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Set         bool   `json:"set"`
	Description string `json:"description"`
}

type envReport struct {
	Variables  []envVariable     `json:"variables"`
	CXX        string            `json:"cxx"`
	Python     string            `json:"python"`
	BuildTemp  string            `json:"build_temp"`
	Std        string            `json:"std"`
	Transports map[string]string `json:"transports,omitempty"`
	CUDA       *cudaDirs         `json:"cuda,omitempty"`
	Error      string            `json:"error,omitempty"`
}

type cudaDirs struct {
	Include []string `json:"include"`
	Lib     []string `json:"lib"`
}

func buildEnvReport(cfg config.Config) envReport {
	r := envReport{
		CXX:       cfg.Toolchain.CXX,
		Python:    cfg.Toolchain.Python,
		BuildTemp: cfg.Toolchain.BuildTemp,
		Std:       cfg.Toolchain.Std,
	}
	for _, v := range config.Variables {
		val, ok := cfg.Env.Lookup(v.Name)
		r.Variables = append(r.Variables, envVariable{Name: v.Name, Value: val, Set: ok, Description: v.Description})
	}

	sels, err := feature.Select(cfg.Env)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Transports = map[string]string{}
	for _, sel := range sels {
		if sel.Transport.Enabled() {
			r.Transports[sel.Operation.Name] = string(sel.Transport)
		}
	}
	if sels.AnyEnabled() {
		dirs := gpu.Dirs(cfg.Env)
		r.CUDA = &cudaDirs{Include: dirs.Include, Lib: dirs.Lib}
	}
	return r
}

func runEnv(w io.Writer, asJSON bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r := buildEnvReport(cfg)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintln(w, "Environment:")
	for _, v := range r.Variables {
		val := v.Value
		if !v.Set {
			val = "(unset)"
		}
		fmt.Fprintf(w, "  %-22s %-20s %s\n", v.Name, val, v.Description)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resolved:")
	fmt.Fprintf(w, "  %-22s %s\n", "compiler", r.CXX)
	fmt.Fprintf(w, "  %-22s %s\n", "python", r.Python)
	fmt.Fprintf(w, "  %-22s %s\n", "build temp", r.BuildTemp)
	fmt.Fprintf(w, "  %-22s %s\n", "standard", r.Std)

	if r.Error != "" {
		fmt.Fprintf(w, "  %-22s %s\n", "transports", r.Error)
		return nil
	}
	if len(r.Transports) == 0 {
		fmt.Fprintf(w, "  %-22s %s\n", "transports", "none (CPU only)")
		return nil
	}
	for _, op := range feature.Operations {
		if t, ok := r.Transports[op.Name]; ok {
			fmt.Fprintf(w, "  %-22s %s\n", op.Name, t)
		}
	}
	fmt.Fprintf(w, "  %-22s %v\n", "cuda include", r.CUDA.Include)
	fmt.Fprintf(w, "  %-22s %v\n", "cuda lib", r.CUDA.Lib)
	return nil
}
