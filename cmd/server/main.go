package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/authz"
	"github.com/adstack/ingest-api/internal/config"
	"github.com/adstack/ingest-api/internal/connector"
	"github.com/adstack/ingest-api/internal/handlers"
	"github.com/adstack/ingest-api/internal/middleware"
	"github.com/adstack/ingest-api/internal/migration"
	"github.com/adstack/ingest-api/internal/notification"
	"github.com/adstack/ingest-api/internal/platform/googleads"
	"github.com/adstack/ingest-api/internal/platform/linkedin"
	"github.com/adstack/ingest-api/internal/platform/tiktok"
	"github.com/adstack/ingest-api/internal/report"
	"github.com/adstack/ingest-api/internal/repository"
	"github.com/adstack/ingest-api/internal/routes"
	"github.com/adstack/ingest-api/internal/secrets"
	"github.com/adstack/ingest-api/internal/warehouse"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config        *config.Config
	db            *sql.DB
	resolver      secrets.Resolver
	logger        zerolog.Logger
	notifications notification.Service
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Initialize notification service.
	notificationRepo := repository.NewNotificationRepository(db)
	var notifiers []notification.Notifier
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.Webhook.URL))
	}
	notificationService := notification.NewService(notificationRepo, logger, notifiers...)

	// Initialize the Secret Manager resolver shared by all connectors.
	resolver, err := secrets.NewManagerResolver(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create secret manager client")
	}
	defer resolver.Close()

	// Create the application instance.
	app := &application{
		config:        cfg,
		db:            db,
		resolver:      resolver,
		logger:        logger,
		notifications: notificationService,
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"*"}),
		h.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	cfg := app.config

	// Repositories
	runRepo := repository.NewRunRepository(app.db)

	recorder := &handlers.Recorder{
		Runs:     runRepo,
		Notifier: app.notifications,
		Logger:   logger.With().Str("component", "recorder").Logger(),
	}

	loaderFactory := func(ctx context.Context, projectID string, credentialsJSON []byte) (warehouse.Loader, error) {
		return warehouse.NewBigQueryLoader(ctx, projectID, credentialsJSON, logger)
	}

	// Connectors
	dv360Connector := &connector.DV360{
		Resolver: app.resolver,
		Defaults: cfg.Defaults,
		Settings: cfg.DV360,
		Timezone: cfg.Timezone,
		NewService: func(ctx context.Context, credentialsJSON []byte) (report.Service, error) {
			return report.NewBidManagerService(ctx, credentialsJSON)
		},
		NewStore: func(ctx context.Context, credentialsJSON []byte) (report.ObjectStore, error) {
			return report.NewGCSStore(ctx, credentialsJSON)
		},
		NewLoader: loaderFactory,
		Now:       time.Now,
		Logger:    logger.With().Str("component", "dv360_connector").Logger(),
	}
	googleAdsConnector := &connector.GoogleAds{
		Resolver: app.resolver,
		Defaults: cfg.Defaults,
		Settings: cfg.GoogleAds,
		Timezone: cfg.Timezone,
		NewSearcher: func(ctx context.Context, creds googleads.Credentials) (connector.Searcher, error) {
			return googleads.NewClient(ctx, creds, logger), nil
		},
		NewLoader: loaderFactory,
		Now:       time.Now,
		Logger:    logger.With().Str("component", "googleads_connector").Logger(),
	}
	tiktokConnector := &connector.TikTok{
		Resolver: app.resolver,
		Defaults: cfg.Defaults,
		Settings: cfg.TikTok,
		Timezone: cfg.Timezone,
		NewReporter: func(accessToken string) connector.Reporter {
			return tiktok.NewClient(accessToken, logger)
		},
		NewLoader: loaderFactory,
		Now:       time.Now,
		Logger:    logger.With().Str("component", "tiktok_connector").Logger(),
	}
	linkedInConnector := &connector.LinkedIn{
		Resolver: app.resolver,
		Defaults: cfg.Defaults,
		Settings: cfg.LinkedIn,
		Timezone: cfg.Timezone,
		NewSocial: func(accessToken string) connector.Social {
			return linkedin.NewClient(accessToken, logger)
		},
		NewLoader: loaderFactory,
		Now:       time.Now,
		Logger:    logger.With().Str("component", "linkedin_connector").Logger(),
	}

	// Handlers
	dv360Handler := handlers.NewDV360Handler(dv360Connector, recorder, logger)
	googleAdsHandler := handlers.NewGoogleAdsHandler(googleAdsConnector, recorder, logger)
	tiktokHandler := handlers.NewTikTokHandler(tiktokConnector, recorder, logger)
	linkedInHandler := handlers.NewLinkedInHandler(linkedInConnector, recorder, logger)
	runsHandler := handlers.NewRunsHandler(runRepo, logger)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, logger)

	return routes.NewRouter(
		authz.Bearer(cfg.JWTSecret),
		dv360Handler,
		googleAdsHandler,
		tiktokHandler,
		linkedInHandler,
		runsHandler,
		notificationHandler,
	)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
}
