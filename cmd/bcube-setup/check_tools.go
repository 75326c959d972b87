package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bcube-dev/bcube-setup/internal/toolchain"
)

var checkToolsJSON bool

var checkToolsCmd = &cobra.Command{
	Use:   "check-tools",
	Short: "Check that the compiler and Python interpreter can be found",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCheckTools(os.Stdout, checkToolsJSON); err != nil {
			fail(err, "check-tools")
		}
	},
}

func init() {
	checkToolsCmd.Flags().BoolVar(&checkToolsJSON, "json", false, "Output in JSON format")
}

type toolReport struct {
	Name     string `json:"name"`
	Purpose  string `json:"purpose"`
	Path     string `json:"path,omitempty"`
	Found    bool   `json:"found"`
	Optional bool   `json:"optional,omitempty"`
}

func runCheckTools(w io.Writer, asJSON bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reqs := toolchain.Requirements(cfg.Toolchain.CXX, cfg.Toolchain.Python)

	if asJSON {
		var out []toolReport
		for _, st := range toolchain.Resolve(reqs) {
			out = append(out, toolReport{
				Name:     st.Requirement.Name,
				Purpose:  st.Requirement.Purpose,
				Path:     st.Found,
				Found:    st.Found != "",
				Optional: st.Requirement.Optional,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		for _, st := range toolchain.Resolve(reqs) {
			if st.Found != "" {
				fmt.Fprintf(w, "  ok       %-12s %s\n", st.Requirement.Name, st.Found)
			} else {
				fmt.Fprintf(w, "  missing  %-12s %s\n", st.Requirement.Name, st.Requirement.Purpose)
			}
		}
	}

	if err := toolchain.CheckTools(reqs); err != nil {
		return &toolsError{err}
	}
	printInfo("All required tools found.")
	return nil
}
