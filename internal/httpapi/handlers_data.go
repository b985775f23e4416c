package httpapi

import (
	"net"
	"net/http"

	"github.com/groundstation/servo/internal/fanout"
)

// handleForwardAttach upgrades to a WebSocket and runs the 10 Hz telemetry
// pump for this subscriber (spec §4.E, GET /data/forward).
func (s *Server) handleForwardAttach(w http.ResponseWriter, r *http.Request) {
	if err := fanout.Attach(w, r, s.logger, s.hub); err != nil {
		s.logger.Warn("httpapi: websocket upgrade failed", "error", err)
	}
}

type forwardingTargetRequest struct {
	SocketAddress string `json:"socket_address"`
}

// handleForwardRegister implements the legacy UDP forwarding target
// registration (spec §4.E, POST /data/forward).
func (s *Server) handleForwardRegister(w http.ResponseWriter, r *http.Request) {
	var req forwardingTargetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.SocketAddress == "" {
		writeError(w, badRequestf("socket_address is required"))
		return
	}
	target, err := s.forwarding.Register(r.Context(), req.SocketAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, target)
}

// handleForwardRenew refreshes a forwarding target's TTL, requiring the
// renewing request to originate from the registered target's own IP
// (spec §4.E, POST /data/renew-forward).
func (s *Server) handleForwardRenew(w http.ResponseWriter, r *http.Request) {
	var req forwardingTargetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	requesterIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		requesterIP = r.RemoteAddr
	}
	if err := s.forwarding.Renew(r.Context(), req.SocketAddress, requesterIP); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type exportRequest struct {
	Format string  `json:"format"`
	From   float64 `json:"from"`
	To     float64 `json:"to"`
}

// handleExport implements spec §4.I (POST /data/export).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.export.Export(r.Context(), req.Format, req.From, req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.Write(result.Body)
}
