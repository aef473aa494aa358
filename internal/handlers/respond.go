package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adstack/ingest-api/internal/connector"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeLoadError maps the connector error taxonomy onto the HTTP surface:
// request validation problems are client errors, everything downstream
// (secrets, submission, polling, retrieval, warehouse) is a server error.
// The body always carries {"detail": message}.
func writeLoadError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var validation *connector.ValidationError
	if errors.As(err, &validation) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
