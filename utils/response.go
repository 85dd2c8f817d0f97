package utils

import (
	"encoding/json"
	"net/http"

	"cafehub/apperr"
	"cafehub/logging"
)

type M map[string]any

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Log.WithError(err).Warn("encode response")
	}
}

// RespondWithAppError renders err as {"error", "kind"} with the status of its kind.
func RespondWithAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindUnavailable {
		logging.Log.WithError(err).WithField("kind", kind).Error("request failed")
	}
	RespondWithJSON(w, apperr.Status(kind), M{"error": apperr.Message(err), "kind": kind})
}
