package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/repository"
)

type RunsHandler struct {
	runs   repository.RunRepository
	logger zerolog.Logger
}

func NewRunsHandler(runs repository.RunRepository, logger zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		runs:   runs,
		logger: logger.With().Str("handler", "runs").Logger(),
	}
}

func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	platform := strings.TrimSpace(r.URL.Query().Get("platform"))

	limit := 25
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	runs, err := h.runs.List(r.Context(), platform, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list load runs")
		http.Error(w, "Failed to list load runs", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}
