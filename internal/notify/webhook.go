package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSink POSTs events as JSON to a configured endpoint, e.g. the
// notification service that renders and sends the actual emails.
type WebhookSink struct {
	url    string
	client *http.Client
}

var _ Sink = (*WebhookSink)(nil)

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) Deliver(ctx context.Context, e Event) error {
	body, err := json.Marshal(map[string]any{
		"event":   e.Name,
		"payload": e.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event %q: %w", e.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver %q: %w", e.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("deliver %q: webhook returned %d", e.Name, resp.StatusCode)
	}
	return nil
}
