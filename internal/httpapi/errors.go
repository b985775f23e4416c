package httpapi

import (
	"net/http"

	"github.com/groundstation/servo/internal/apierr"
)

func badRequestf(format string, args ...any) *apierr.Error {
	return apierr.BadRequestf(format, args...)
}

// statusFor maps an apierr.Kind to its HTTP status code (spec §7).
func statusFor(kind apierr.Kind) int {
	switch kind {
	case apierr.BadRequest:
		return http.StatusBadRequest
	case apierr.Unauthorized:
		return http.StatusUnauthorized
	case apierr.NotFound:
		return http.StatusNotFound
	case apierr.Conflict:
		return http.StatusConflict
	case apierr.Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err's message as a plain-text body with the status
// matching its Kind (spec §7: "all JSON error bodies are plain-text
// messages in the response body; the status code carries the class").
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(apierr.KindOf(err))
	http.Error(w, err.Error(), status)
}
