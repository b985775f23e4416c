package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// deployCmd is recognized per spec §6 but its SSH/cross-compile deployment
// tooling is explicitly out of scope (spec §1): only its presence as a
// subcommand is part of the core's contract.
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Cross-compile and deploy binaries to flight hardware (out of scope here)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(styleBold.Render("deploy") + " is not implemented by this build")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
}
