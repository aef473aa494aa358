package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/connector"
)

type TikTokHandler struct {
	connector *connector.TikTok
	recorder  *Recorder
	logger    zerolog.Logger
}

func NewTikTokHandler(c *connector.TikTok, recorder *Recorder, logger zerolog.Logger) *TikTokHandler {
	return &TikTokHandler{
		connector: c,
		recorder:  recorder,
		logger:    logger.With().Str("handler", "tiktok").Logger(),
	}
}

func (h *TikTokHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req connector.TikTokRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	result, err := h.connector.Run(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("tiktok load failed")
		h.recorder.failure(r.Context(), connector.PlatformTikTok, err)
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
