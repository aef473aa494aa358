package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/connector"
)

type DV360Handler struct {
	connector *connector.DV360
	recorder  *Recorder
	logger    zerolog.Logger
}

func NewDV360Handler(c *connector.DV360, recorder *Recorder, logger zerolog.Logger) *DV360Handler {
	return &DV360Handler{
		connector: c,
		recorder:  recorder,
		logger:    logger.With().Str("handler", "dv360").Logger(),
	}
}

func (h *DV360Handler) Load(w http.ResponseWriter, r *http.Request) {
	var req connector.DV360Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	result, err := h.connector.Run(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("dv360 load failed")
		h.recorder.failure(r.Context(), connector.PlatformDV360, err)
		writeLoadError(w, err)
		return
	}

	h.recorder.success(r.Context(), result)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"rows_loaded": result.RowsLoaded,
		"date_range":  result.DateRange,
		"destination": result.Destination,
	})
}
