package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/notification"
)

type NotificationHandler struct {
	service notification.Service
	logger  zerolog.Logger
}

func NewNotificationHandler(service notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 25
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	notifications, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list notifications")
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	notifID := strings.TrimSpace(mux.Vars(r)["notificationID"])
	if notifID == "" {
		http.Error(w, "Notification ID is required", http.StatusBadRequest)
		return
	}

	notif, err := h.service.MarkRead(r.Context(), notifID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Notification not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("notification_id", notifID).Msg("failed to mark notification as read")
		http.Error(w, "Failed to update notification", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, notif)
}
