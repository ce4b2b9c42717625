package aipkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mashiike/aipkit/aip"
)

//go:generate go tool mockgen -source=notifier.go -destination=mock_notifier_test.go -package=aipkit

// Notifier delivers stream events to a notification endpoint
type Notifier interface {
	// Notify sends the event to the configured URL (one attempt)
	Notify(ctx context.Context, config aip.NotificationConfig, event aip.StreamEvent) error

	// ValidateEndpoint checks if the notification endpoint is acceptable
	ValidateEndpoint(ctx context.Context, config aip.NotificationConfig) error
}

// HTTPNotifier implements Notifier with HTTP POST requests
type HTTPNotifier struct {
	Client *http.Client
}

// NewHTTPNotifier creates a new HTTPNotifier with a 30 second client timeout
func NewHTTPNotifier() *HTTPNotifier {
	return &HTTPNotifier{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (n *HTTPNotifier) client() *http.Client {
	if n.Client == nil {
		return http.DefaultClient
	}
	return n.Client
}

// Notify posts the event JSON to config.URL with the config token as bearer credentials
func (n *HTTPNotifier) Notify(ctx context.Context, config aip.NotificationConfig, event aip.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+config.Token)
	}

	resp, err := n.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NotificationError{
			StatusCode: resp.StatusCode,
			URL:        config.URL,
		}
	}
	return nil
}

// ValidateEndpoint performs no checks beyond NotificationConfig.Validate
func (n *HTTPNotifier) ValidateEndpoint(ctx context.Context, config aip.NotificationConfig) error {
	return nil
}

// NotificationError represents a non-2xx response from a notification endpoint
type NotificationError struct {
	StatusCode int
	URL        string
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed: HTTP %d for URL %s", e.StatusCode, e.URL)
}
