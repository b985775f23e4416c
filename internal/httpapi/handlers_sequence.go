package httpapi

import "net/http"

// handleSequenceList implements spec §4.G (GET /operator/sequence).
func (s *Server) handleSequenceList(w http.ResponseWriter, r *http.Request) {
	sequences, err := s.sequence.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"sequences": sequences})
}

type saveSequenceRequest struct {
	Name            string  `json:"name"`
	ConfigurationID *string `json:"configuration_id,omitempty"`
	Script          string  `json:"script"`
}

// handleSequenceSave implements spec §4.G "save_sequence" (PUT /operator/sequence).
func (s *Server) handleSequenceSave(w http.ResponseWriter, r *http.Request) {
	var req saveSequenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, badRequestf("name is required"))
		return
	}
	if err := s.sequence.Save(r.Context(), req.Name, req.ConfigurationID, req.Script); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type deleteSequenceRequest struct {
	Name string `json:"name"`
}

// handleSequenceDelete implements spec §4.G (DELETE /operator/sequence).
func (s *Server) handleSequenceDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteSequenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.sequence.Delete(r.Context(), req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type runSequenceRequest struct {
	Name  string `json:"name"`
	Force bool   `json:"force,omitempty"`
}

// handleSequenceRun implements spec §4.G "run_sequence" (POST /operator/run-sequence).
func (s *Server) handleSequenceRun(w http.ResponseWriter, r *http.Request) {
	var req runSequenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, badRequestf("name is required"))
		return
	}
	if err := s.sequence.Run(r.Context(), req.Name, req.Force); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
