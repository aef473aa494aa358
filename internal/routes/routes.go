package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adstack/ingest-api/internal/handlers"
)

// NewRouter sets up the API routes
func NewRouter(
	authMiddleware func(http.Handler) http.Handler,
	dv360 *handlers.DV360Handler,
	googleAds *handlers.GoogleAdsHandler,
	tiktok *handlers.TikTokHandler,
	linkedIn *handlers.LinkedInHandler,
	runs *handlers.RunsHandler,
	notifications *handlers.NotificationHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Connector and bookkeeping endpoints, behind the optional bearer gate.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware)

	api.HandleFunc("/dv360/load", dv360.Load).Methods(http.MethodPost)
	api.HandleFunc("/googleads/load", googleAds.Load).Methods(http.MethodPost)
	api.HandleFunc("/tiktok/load", tiktok.Load).Methods(http.MethodPost)
	api.HandleFunc("/linkedin/load", linkedIn.Load).Methods(http.MethodPost)

	api.HandleFunc("/runs", runs.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications", notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", notifications.MarkRead).Methods(http.MethodPost)

	return router
}
