package httpapi

import (
	"context"
	"net/http"
)

// cors allows any origin, method, and header, with credentials supported
// (spec §4.J: "CORS: allow any origin, method, header; credentials
// supported").
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by the wrapped handler
// so the request-log middleware can record it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLog records one RequestLog row per request (spec §3, §1: "the
// request-log middleware as a feature (its contract is noted but not
// designed)" — the table and its four columns are the whole contract).
// Insert failures are logged and otherwise ignored; they must never fail
// the request they are recording.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		origin := r.Header.Get("Origin")
		hostname := r.Host
		if _, err := s.store.Exec(context.Background(),
			`INSERT INTO RequestLog (endpoint, origin, hostname, status_code) VALUES (?, ?, ?, ?)`,
			r.URL.Path, origin, hostname, rec.status,
		); err != nil {
			s.logger.Warn("httpapi: request log insert failed", "error", err)
		}
	})
}
