// Package httpapi is the HTTP surface (spec §4.J): routing, JSON codec,
// CORS, and the §7 error-to-status mapping. net/http's ServeMux (Go 1.22
// method-and-path patterns) is used directly — no router library appears
// anywhere in the example corpus, so stdlib is the corpus-consistent
// choice here, not a fallback.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/groundstation/servo/internal/adminsql"
	"github.com/groundstation/servo/internal/command"
	"github.com/groundstation/servo/internal/export"
	"github.com/groundstation/servo/internal/flightlink"
	"github.com/groundstation/servo/internal/forwarding"
	"github.com/groundstation/servo/internal/mapping"
	"github.com/groundstation/servo/internal/sequence"
	"github.com/groundstation/servo/internal/store"
	"github.com/groundstation/servo/internal/vehicle"
)

const BindAddr = "0.0.0.0:7200"

// Server wires every component's service layer to the HTTP surface.
type Server struct {
	logger     *slog.Logger
	store      *store.Store
	hub        *vehicle.Hub
	flight     *flightlink.Session
	mapping    *mapping.Service
	sequence   *sequence.Service
	command    *command.Service
	export     *export.Service
	forwarding *forwarding.Registry
	adminsql   *adminsql.Service
}

// New constructs a Server. Call Handler to obtain the routed, CORS- and
// request-log-wrapped http.Handler to pass to http.Server.
func New(
	logger *slog.Logger,
	st *store.Store,
	hub *vehicle.Hub,
	flight *flightlink.Session,
	mappingSvc *mapping.Service,
	sequenceSvc *sequence.Service,
	commandSvc *command.Service,
	exportSvc *export.Service,
	forwardingReg *forwarding.Registry,
	adminsqlSvc *adminsql.Service,
) *Server {
	return &Server{
		logger:     logger,
		store:      st,
		hub:        hub,
		flight:     flight,
		mapping:    mappingSvc,
		sequence:   sequenceSvc,
		command:    commandSvc,
		export:     exportSvc,
		forwarding: forwardingReg,
		adminsql:   adminsqlSvc,
	}
}

// Handler builds the routed mux wrapped in CORS and request-log
// middleware (spec §4.J, §3 "RequestLog").
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /data/forward", s.handleForwardAttach)
	mux.HandleFunc("POST /data/forward", s.handleForwardRegister)
	mux.HandleFunc("POST /data/renew-forward", s.handleForwardRenew)
	mux.HandleFunc("POST /data/export", s.handleExport)

	mux.HandleFunc("POST /admin/sql", s.handleAdminSQL)

	mux.HandleFunc("POST /operator/command", s.handleOperatorCommand)

	mux.HandleFunc("GET /operator/mappings", s.handleMappingsList)
	mux.HandleFunc("POST /operator/mappings", s.handleMappingsReplace)
	mux.HandleFunc("PUT /operator/mappings", s.handleMappingsUpsert)
	mux.HandleFunc("DELETE /operator/mappings", s.handleMappingsDelete)

	mux.HandleFunc("GET /operator/active-configuration", s.handleActiveConfigurationGet)
	mux.HandleFunc("POST /operator/active-configuration", s.handleActiveConfigurationSet)

	mux.HandleFunc("POST /operator/calibrate", s.handleCalibrate)

	mux.HandleFunc("GET /operator/sequence", s.handleSequenceList)
	mux.HandleFunc("PUT /operator/sequence", s.handleSequenceSave)
	mux.HandleFunc("DELETE /operator/sequence", s.handleSequenceDelete)
	mux.HandleFunc("POST /operator/run-sequence", s.handleSequenceRun)

	return s.requestLog(s.cors(mux))
}

// writeJSON encodes v as the response body with a 200 status.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing more to do but log.
		slog.Default().Error("httpapi: encoding response failed", "error", err)
	}
}

// decodeJSON decodes the request body into v, returning a BadRequest-class
// error on malformed JSON (spec §7).
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return badRequestf("malformed JSON body: %v", err)
	}
	return nil
}
