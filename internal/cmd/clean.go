package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/groundstation/servo/internal/servoconfig"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the servo directory (database, lock file, config)",
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	dir := servoDir
	if dir == "" {
		var err error
		dir, err = servoconfig.ResolveDir()
		if err != nil {
			return fmt.Errorf("servo: %w", err)
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("servo: removing %s: %w", dir, err)
	}
	fmt.Println(styleSuccess.Render("removed " + dir))
	return nil
}
