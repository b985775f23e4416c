package cmd

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Store a sequence script on the core, named after the file",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("servo: reading %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	req := saveSequenceRequestBody{Name: name, Script: base64.StdEncoding.EncodeToString(raw)}

	if err := postJSON(cmd.Context(), http.MethodPut, "/operator/sequence", req, nil); err != nil {
		return err
	}
	fmt.Println(styleSuccess.Render("uploaded " + name))
	return nil
}

type saveSequenceRequestBody struct {
	Name   string `json:"name"`
	Script string `json:"script"`
}
