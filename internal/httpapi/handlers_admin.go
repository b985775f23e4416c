package httpapi

import "net/http"

type sqlRequest struct {
	RawSQL string `json:"raw_sql"`
}

// handleAdminSQL implements spec §4.J /admin/sql: execute arbitrary SQL,
// return {column_names, rows}, mirroring original_source's SqlRequest/
// SqlResponse shape exactly.
func (s *Server) handleAdminSQL(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.adminsql.Run(r.Context(), req.RawSQL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}
