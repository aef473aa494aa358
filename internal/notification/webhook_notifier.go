package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/adstack/ingest-api/internal/models"
)

// WebhookNotifier posts notifications as chat messages to a configured
// webhook URL (Google Chat / Slack style {"text": ...} payload).
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) String() string { return "webhook" }

func (n *WebhookNotifier) Notify(ctx context.Context, notif models.Notification) error {
	text := notif.Title
	if notif.Message != "" {
		text = fmt.Sprintf("%s\n%s", notif.Title, notif.Message)
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
