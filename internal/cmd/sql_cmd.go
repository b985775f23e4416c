package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <raw>",
	Short: "Run arbitrary SQL against the core's database (spec §4.J /admin/sql)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSQL,
}

func init() {
	rootCmd.AddCommand(sqlCmd)
}

type sqlRequestBody struct {
	RawSQL string `json:"raw_sql"`
}

type sqlResponseBody struct {
	ColumnNames []string `json:"column_names"`
	Rows        [][]any  `json:"rows"`
}

func runSQL(cmd *cobra.Command, args []string) error {
	var resp sqlResponseBody
	if err := postJSON(cmd.Context(), http.MethodPost, "/admin/sql", sqlRequestBody{RawSQL: args[0]}, &resp); err != nil {
		return err
	}

	fmt.Println(styleBold.Render(strings.Join(resp.ColumnNames, " | ")))
	for _, row := range resp.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprintf("%v", cell)
		}
		fmt.Println(strings.Join(cells, " | "))
	}
	return nil
}
