package httpapi

import (
	"net/http"

	"github.com/groundstation/servo/internal/command"
)

// handleOperatorCommand implements spec §4.H (POST /operator/command).
func (s *Server) handleOperatorCommand(w http.ResponseWriter, r *http.Request) {
	var req command.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.command.Dispatch(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
