// Package adminsql implements the /admin/sql escape hatch (spec §4.J,
// supplemented from original_source/src/routes/admin.rs's post_sql): run
// arbitrary operator-supplied SQL and return column names plus JSON-typed
// cell values. Not otherwise validated by design.
package adminsql

import (
	"context"

	"github.com/groundstation/servo/internal/apierr"
	"github.com/groundstation/servo/internal/store"
)

// Response mirrors the original's SqlResponse shape exactly.
type Response struct {
	ColumnNames []string `json:"column_names"`
	Rows        [][]any  `json:"rows"`
}

// Service runs raw SQL against store.Store.
type Service struct {
	store *store.Store
}

func New(st *store.Store) *Service {
	return &Service{store: st}
}

// Run executes raw as a query and returns its columns and rows. Each cell
// is converted from its driver value the same way the original's untyped
// serde_json::Value cell is built: int64, float64, string, []byte, or nil.
func (s *Service) Run(ctx context.Context, raw string) (*Response, error) {
	rows, err := s.store.Query(ctx, raw)
	if err != nil {
		return nil, apierr.BadRequestf("sql error: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apierr.Internalf(err, "adminsql: reading column names")
	}

	resp := &Response{ColumnNames: columns, Rows: [][]any{}}
	for rows.Next() {
		record := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range record {
			dest[i] = &record[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, apierr.Internalf(err, "adminsql: scanning row")
		}
		resp.Rows = append(resp.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Internalf(err, "adminsql: reading rows")
	}
	return resp, nil
}
