package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const webhookTimeout = 10 * time.Second

// WebhookNotifier posts events as JSON to a configured endpoint. No
// acknowledgment is required from the channel.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewWebhookNotifier(url string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
		logger: logger,
	}
}

func (n *WebhookNotifier) Emit(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("Failed to marshal notification event", "kind", event.Kind, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("Failed to create notification request", "kind", event.Kind, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("Failed to deliver notification", "kind", event.Kind, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.logger.Warn("Notification endpoint returned error status",
			"kind", event.Kind, "status", resp.StatusCode)
	}
}

// LogNotifier writes events to the logger. Used when no webhook is
// configured so terminal outcomes still land somewhere visible.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Emit(ctx context.Context, event Event) {
	n.logger.Info(fmt.Sprintf("Deployment event: %s", event.Kind),
		"target", event.Target, "payload", event.Payload)
}
