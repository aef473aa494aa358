package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adstack/ingest-api/internal/models"
	"github.com/adstack/ingest-api/internal/repository"
)

type Event struct {
	Event    models.NotificationEvent
	Severity models.NotificationSeverity
	Title    string
	Message  string
	Metadata map[string]interface{}
}

type Service interface {
	Publish(ctx context.Context, evt Event) (models.Notification, error)
	NotifyLoadSucceeded(ctx context.Context, platform string, rowsLoaded int64, destination string) error
	NotifyLoadFailed(ctx context.Context, platform, reason string) error
	ListRecent(ctx context.Context, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID string) (models.Notification, error)
}

type service struct {
	repo      repository.NotificationRepository
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger, notifiers ...Notifier) Service {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &service{
		repo:      repo,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		notifiers: active,
	}
}

// Publish persists the notification first, then fans out to the configured
// channels. Delivery failures are logged but never fail the publish.
func (s *service) Publish(ctx context.Context, evt Event) (models.Notification, error) {
	if evt.Event == "" {
		return models.Notification{}, fmt.Errorf("event type is required")
	}
	if evt.Severity == "" {
		evt.Severity = models.NotificationSeverityInfo
	}
	title := strings.TrimSpace(evt.Title)
	message := strings.TrimSpace(evt.Message)
	if title == "" {
		title = string(evt.Event)
	}

	notif, err := s.repo.Create(ctx, repository.CreateNotificationParams{
		Event:    evt.Event,
		Severity: evt.Severity,
		Title:    title,
		Message:  message,
		Metadata: evt.Metadata,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", string(evt.Event)).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, notif); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(notifier), notif)
		}
	}
	return notif, nil
}

func (s *service) NotifyLoadSucceeded(ctx context.Context, platform string, rowsLoaded int64, destination string) error {
	_, err := s.Publish(ctx, Event{
		Event:    models.NotificationEventLoadSucceeded,
		Severity: models.NotificationSeverityInfo,
		Title:    fmt.Sprintf("Load succeeded: %s", platform),
		Message:  fmt.Sprintf("Loaded %d rows into %s.", rowsLoaded, destination),
		Metadata: map[string]interface{}{
			"platform":    platform,
			"rows_loaded": rowsLoaded,
			"destination": destination,
		},
	})
	return err
}

func (s *service) NotifyLoadFailed(ctx context.Context, platform, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Unknown error"
	}
	_, err := s.Publish(ctx, Event{
		Event:    models.NotificationEventLoadFailed,
		Severity: models.NotificationSeverityError,
		Title:    fmt.Sprintf("Load failed: %s", platform),
		Message:  fmt.Sprintf("%s load failed: %s", platform, reason),
		Metadata: map[string]interface{}{
			"platform": platform,
			"reason":   reason,
		},
	})
	return err
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	return s.repo.ListRecent(ctx, limit)
}

func (s *service) MarkRead(ctx context.Context, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(ctx, notificationID)
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
