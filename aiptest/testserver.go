// Package aiptest provides testing utilities for partners built with aipkit.
// It offers httptest-like servers for the protocol and for notification webhooks.
package aiptest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mashiike/aipkit"
	"github.com/mashiike/aipkit/transport"
)

// DefaultPollInterval is the event log poll interval of streams served by a TestServer.
const DefaultPollInterval = 20 * time.Millisecond

// TestServer wraps httptest.Server with an in-memory partner.
// Notification workers run until Close.
type TestServer struct {
	*httptest.Server

	// Service is the partner behind the HTTP handler
	Service *aipkit.Service
	// Store is the task store of Service
	Store *aipkit.InMemoryTaskStore
	// Recorder records every stream event produced by Store
	Recorder *EventRecorder

	cancel context.CancelFunc
	done   chan struct{}
}

// ServerOption configures a TestServer before it starts.
type ServerOption func(*serverConfig)

type serverConfig struct {
	group          aipkit.GroupHandler
	handlerOptions []transport.HandlerOption
	configure      []func(*aipkit.Service)
}

// WithGroupHandler serves the group method with h.
func WithGroupHandler(h aipkit.GroupHandler) ServerOption {
	return func(c *serverConfig) {
		c.group = h
	}
}

// WithHandlerOptions passes options to transport.NewHandler.
func WithHandlerOptions(opts ...transport.HandlerOption) ServerOption {
	return func(c *serverConfig) {
		c.handlerOptions = append(c.handlerOptions, opts...)
	}
}

// WithService runs fn on the service before the server starts.
func WithService(fn func(*aipkit.Service)) ServerOption {
	return func(c *serverConfig) {
		c.configure = append(c.configure, fn)
	}
}

// NewServer starts a partner serving handlers. The server is closed when the test ends.
//
// Example usage:
//
//	server := aiptest.NewServer(t, aipkit.CommandHandlers{Start: start})
//	client := server.Client(transport.WithLeaderID("leader-1"))
//	task, err := client.StartTask(ctx, "session-1", "hello")
func NewServer(tb testing.TB, handlers aipkit.CommandHandlers, opts ...ServerOption) *TestServer {
	tb.Helper()
	var cfg serverConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	svc := aipkit.NewService(handlers)
	svc.StreamingPollInterval = DefaultPollInterval
	svc.Group = cfg.group
	store, ok := svc.Store.(*aipkit.InMemoryTaskStore)
	if !ok {
		tb.Fatalf("aiptest: unexpected task store %T", svc.Store)
	}
	recorder := NewEventRecorder()
	store.AddObserver(recorder)
	for _, fn := range cfg.configure {
		fn(svc)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := svc.Notifications.Run(ctx); err != nil {
			tb.Logf("aiptest: notification workers stopped: %v", err)
		}
	}()

	s := &TestServer{
		Server:   httptest.NewServer(transport.NewHandler(svc, cfg.handlerOptions...)),
		Service:  svc,
		Store:    store,
		Recorder: recorder,
		cancel:   cancel,
		done:     done,
	}
	tb.Cleanup(s.Close)
	return s
}

// URL returns the base URL of the test server.
func (s *TestServer) URL() string {
	return s.Server.URL
}

// Close shuts down the HTTP server and the notification workers. It is safe to call more than once.
func (s *TestServer) Close() {
	s.Server.Close()
	s.cancel()
	<-s.done
}

// Client creates a transport.Client for this server.
func (s *TestServer) Client(opts ...transport.ClientOption) *transport.Client {
	return transport.NewClient(s.URL(), opts...)
}

// ClientWithHeaders creates a client that sets headers on every request.
// The headers replace any value set by the client itself.
func (s *TestServer) ClientWithHeaders(headers http.Header, opts ...transport.ClientOption) *transport.Client {
	httpClient := &http.Client{Transport: &headerAddingTransport{
		base:    http.DefaultTransport,
		headers: headers,
	}}
	opts = append(opts, transport.WithHTTPClient(httpClient))
	return transport.NewClient(s.URL(), opts...)
}

type headerAddingTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerAddingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	newReq := req.Clone(req.Context())
	for key, values := range t.headers {
		newReq.Header.Del(key)
		for _, value := range values {
			newReq.Header.Add(key, value)
		}
	}
	return t.base.RoundTrip(newReq)
}
