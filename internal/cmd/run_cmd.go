package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var runForce bool

var runCmd = &cobra.Command{
	Use:   "run <sequence-name>",
	Short: "Send a saved sequence to the flight computer",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runForce, "force", false, "bypass the configuration-match check (currently advisory only)")
}

func runRun(cmd *cobra.Command, args []string) error {
	name := args[0]
	req := runSequenceRequestBody{Name: name, Force: runForce}
	if err := postJSON(cmd.Context(), http.MethodPost, "/operator/run-sequence", req, nil); err != nil {
		return err
	}
	fmt.Println(styleSuccess.Render("sent " + name))
	return nil
}

type runSequenceRequestBody struct {
	Name  string `json:"name"`
	Force bool   `json:"force"`
}
