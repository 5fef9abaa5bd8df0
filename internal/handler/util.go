package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/capitalize-ai/chat-orchestrator/internal/store"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeStoreError maps store sentinels onto transport status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, store.ErrForbidden):
		writeError(w, http.StatusForbidden, "conversation belongs to another participant")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
