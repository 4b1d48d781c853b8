package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSurface delivers alerts as JSON posts to the desktop-bridge
// webhook that renders platform notifications for the web client.
type WebhookSurface struct {
	url        string
	httpClient *http.Client
}

func NewWebhookSurface(url string) *WebhookSurface {
	return &WebhookSurface{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// RequestPermission treats a configured webhook as granted permission;
// there is no interactive prompt on the server side.
func (s *WebhookSurface) RequestPermission(ctx context.Context) (bool, error) {
	return s.url != "", nil
}

func (s *WebhookSurface) Show(ctx context.Context, title, body, tag string) error {
	payload := map[string]any{
		"title": title,
		"body":  body,
		"tag":   tag,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// NoopSurface is used when no alert channel is configured.
type NoopSurface struct{}

func (NoopSurface) RequestPermission(ctx context.Context) (bool, error) { return false, nil }

func (NoopSurface) Show(ctx context.Context, title, body, tag string) error { return nil }
