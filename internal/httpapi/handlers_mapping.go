package httpapi

import (
	"net/http"

	"github.com/groundstation/servo/internal/channelmap"
)

type replaceMappingsRequest struct {
	ConfigurationID string                    `json:"configuration_id"`
	Mappings        []channelmap.NodeMapping `json:"mappings"`
}

// handleMappingsList implements spec §4.F "List" (GET /operator/mappings).
func (s *Server) handleMappingsList(w http.ResponseWriter, r *http.Request) {
	configs, err := s.mapping.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"configurations": configs})
}

// handleMappingsReplace implements spec §4.F "Replace" (POST /operator/mappings).
func (s *Server) handleMappingsReplace(w http.ResponseWriter, r *http.Request) {
	var req replaceMappingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ConfigurationID == "" {
		writeError(w, badRequestf("configuration_id is required"))
		return
	}
	if err := s.mapping.Replace(r.Context(), req.ConfigurationID, req.Mappings); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type upsertMappingsRequest struct {
	Mappings []channelmap.NodeMapping `json:"mappings"`
}

// handleMappingsUpsert implements spec §4.F "Upsert" (PUT /operator/mappings).
func (s *Server) handleMappingsUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertMappingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.mapping.Upsert(r.Context(), req.Mappings); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type deleteMappingsRequest struct {
	ConfigurationID string   `json:"configuration_id"`
	Mappings        []string `json:"mappings,omitempty"`
}

// handleMappingsDelete implements spec §4.F "Delete" (DELETE /operator/mappings).
func (s *Server) handleMappingsDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteMappingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ConfigurationID == "" {
		writeError(w, badRequestf("configuration_id is required"))
		return
	}
	if err := s.mapping.Delete(r.Context(), req.ConfigurationID, req.Mappings); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleActiveConfigurationGet implements spec §4.F "Get active"
// (GET /operator/active-configuration).
func (s *Server) handleActiveConfigurationGet(w http.ResponseWriter, r *http.Request) {
	id, err := s.mapping.GetActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"configuration_id": id})
}

type activateConfigurationRequest struct {
	ConfigurationID string `json:"configuration_id"`
}

// handleActiveConfigurationSet implements spec §4.F "Activate"
// (POST /operator/active-configuration).
func (s *Server) handleActiveConfigurationSet(w http.ResponseWriter, r *http.Request) {
	var req activateConfigurationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.mapping.Activate(r.Context(), req.ConfigurationID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleCalibrate implements spec §4.F "Calibrate" (POST /operator/calibrate).
func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	offsets, err := s.mapping.Calibrate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, offsets)
}
