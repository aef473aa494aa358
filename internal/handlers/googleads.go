package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/connector"
)

type GoogleAdsHandler struct {
	connector *connector.GoogleAds
	recorder  *Recorder
	logger    zerolog.Logger
}

func NewGoogleAdsHandler(c *connector.GoogleAds, recorder *Recorder, logger zerolog.Logger) *GoogleAdsHandler {
	return &GoogleAdsHandler{
		connector: c,
		recorder:  recorder,
		logger:    logger.With().Str("handler", "googleads").Logger(),
	}
}

func (h *GoogleAdsHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req connector.GoogleAdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	result, err := h.connector.Run(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("google ads load failed")
		h.recorder.failure(r.Context(), connector.PlatformGoogleAds, err)
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
