package aiptest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mashiike/aipkit/aip"
)

// Notification is one request received by a WebhookReceiver.
type Notification struct {
	Event         aip.StreamEvent
	Authorization string
	// Accepted is false when the receiver answered with a failure status.
	Accepted bool
}

// WebhookReceiver is a notification endpoint that records what it receives.
type WebhookReceiver struct {
	*httptest.Server

	mu            sync.Mutex
	notifications []Notification
	failures      int
	token         string
	changed       chan struct{}
}

// WebhookOption configures a WebhookReceiver.
type WebhookOption func(*WebhookReceiver)

// WithFailures makes the receiver answer 503 to the first n requests.
func WithFailures(n int) WebhookOption {
	return func(w *WebhookReceiver) {
		w.failures = n
	}
}

// WithExpectedToken makes the receiver answer 401 unless the request carries "Bearer "+token.
func WithExpectedToken(token string) WebhookOption {
	return func(w *WebhookReceiver) {
		w.token = token
	}
}

// NewWebhookReceiver starts a receiver that is closed when the test ends.
func NewWebhookReceiver(tb testing.TB, opts ...WebhookOption) *WebhookReceiver {
	tb.Helper()
	w := &WebhookReceiver{changed: make(chan struct{})}
	for _, opt := range opts {
		opt(w)
	}
	w.Server = httptest.NewServer(http.HandlerFunc(w.serve))
	tb.Cleanup(w.Close)
	return w
}

func (w *WebhookReceiver) serve(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var event aip.StreamEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	n := Notification{
		Event:         event,
		Authorization: r.Header.Get("Authorization"),
	}
	status := http.StatusNoContent

	w.mu.Lock()
	switch {
	case w.token != "" && n.Authorization != "Bearer "+w.token:
		status = http.StatusUnauthorized
	case w.failures > 0:
		w.failures--
		status = http.StatusServiceUnavailable
	default:
		n.Accepted = true
	}
	w.notifications = append(w.notifications, n)
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()

	rw.WriteHeader(status)
}

// Notifications returns every request received so far, including rejected ones.
func (w *WebhookReceiver) Notifications() []Notification {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Notification(nil), w.notifications...)
}

// Accepted returns the events of accepted requests.
func (w *WebhookReceiver) Accepted() []aip.StreamEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.accepted()
}

func (w *WebhookReceiver) accepted() []aip.StreamEvent {
	var events []aip.StreamEvent
	for _, n := range w.notifications {
		if n.Accepted {
			events = append(events, n.Event)
		}
	}
	return events
}

// WaitAccepted blocks until at least n requests were accepted or ctx is done.
func (w *WebhookReceiver) WaitAccepted(ctx context.Context, n int) ([]aip.StreamEvent, error) {
	for {
		w.mu.Lock()
		changed := w.changed
		events := w.accepted()
		w.mu.Unlock()
		if len(events) >= n {
			return events, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return events, ctx.Err()
		}
	}
}
