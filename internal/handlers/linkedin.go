package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/connector"
)

type LinkedInHandler struct {
	connector *connector.LinkedIn
	recorder  *Recorder
	logger    zerolog.Logger
}

func NewLinkedInHandler(c *connector.LinkedIn, recorder *Recorder, logger zerolog.Logger) *LinkedInHandler {
	return &LinkedInHandler{
		connector: c,
		recorder:  recorder,
		logger:    logger.With().Str("handler", "linkedin").Logger(),
	}
}

// Load reports the two destination tables separately; the response nests
// rows_loaded and destination by table instead of the flat single-table form.
func (h *LinkedInHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req connector.LinkedInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	result, err := h.connector.Run(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("linkedin load failed")
		h.recorder.failure(r.Context(), connector.PlatformLinkedIn, err)
		writeLoadError(w, err)
		return
	}

	h.recorder.success(r.Context(), result)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"rows_loaded": result.Breakdown,
		"destination": result.Targets,
	})
}
