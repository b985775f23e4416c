package cmd

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportFrom   float64
	exportTo     float64
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded telemetry over a time range (spec §4.I)",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path (extension selects the format: .csv or .h5/.hdf5)")
	exportCmd.Flags().Float64Var(&exportFrom, "from", 0, "range start, seconds since epoch")
	exportCmd.Flags().Float64Var(&exportTo, "to", math.MaxFloat64, "range end, seconds since epoch")
	_ = exportCmd.MarkFlagRequired("output")
}

func runExport(cmd *cobra.Command, args []string) error {
	format := strings.TrimPrefix(filepath.Ext(exportOutput), ".")
	if format == "h5" {
		format = "hdf5"
	}

	req := exportRequestBody{Format: format, From: exportFrom, To: exportTo}

	var body []byte
	if err := postJSONRaw(cmd.Context(), http.MethodPost, "/data/export", req, &body); err != nil {
		return err
	}

	if err := os.WriteFile(exportOutput, body, 0o644); err != nil {
		return fmt.Errorf("servo: writing %s: %w", exportOutput, err)
	}
	fmt.Println(styleSuccess.Render("wrote " + exportOutput))
	return nil
}

type exportRequestBody struct {
	Format string  `json:"format"`
	From   float64 `json:"from"`
	To     float64 `json:"to"`
}
