package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bcube-dev/bcube-setup/internal/buildinfo"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := buildinfo.Read()
		if versionJSON {
			printJSON(info)
			return
		}
		fmt.Printf("bcube-setup %s", info.Version)
		if info.GoVersion != "" {
			fmt.Printf(" (%s)", info.GoVersion)
		}
		fmt.Println()
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output in JSON format")
}
