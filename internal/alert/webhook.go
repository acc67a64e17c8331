package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/deusflow/newsrisk/internal/retry"
)

const (
	requestTimeout = 5 * time.Second
	maxRetries     = 3
)

// WebhookChannel posts alerts to a chat webhook. Format "slack" sends
// {"text": ...}; anything else sends the notification as JSON.
type WebhookChannel struct {
	url    string
	format string
	client *http.Client
	retry  retry.RetryConfig
}

// NewWebhookChannel returns a nil Channel when url is empty.
func NewWebhookChannel(url, format string) Channel {
	if url == "" {
		return nil
	}
	return &WebhookChannel{
		url:    url,
		format: format,
		client: &http.Client{Timeout: requestTimeout},
		retry:  retry.RetryConfig{MaxAttempts: maxRetries, Delay: time.Second},
	}
}

func (w *WebhookChannel) Name() string { return "webhook" }

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, n Notification) ([]byte, error) {
	switch format {
	case "slack":
		return json.Marshal(map[string]string{"text": n.ChatText()})
	default:
		return json.Marshal(n)
	}
}

// Send posts the alert with retry on 5xx and transport errors.
func (w *WebhookChannel) Send(ctx context.Context, n Notification) error {
	body, err := FormatPayload(w.format, n)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	return retry.WithRetry(ctx, w.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return retry.Permanent(fmt.Errorf("webhook rejected: HTTP %d", resp.StatusCode))
		}
		// 5xx, retry
		return fmt.Errorf("webhook server error: HTTP %d", resp.StatusCode)
	})
}
