package aipkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/fujiwara/ridge"
	"github.com/mashiike/aipkit/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Environment variables read by Server.
const (
	EnvMaxProductsBytes = "AIP_MAX_PRODUCTS_BYTES"
	EnvEventBucket      = "AIP_EVENT_BUCKET"
	EnvDeliveryQueueURL = "AIP_DELIVERY_QUEUE_URL"
)

// DefaultMetricsPath is the path of the Prometheus endpoint.
const DefaultMetricsPath = "/metrics"

// ErrSkipEvent is returned by an EventParser for events that carry no delivery.
var ErrSkipEvent = errors.New("skip event")

// EventParser turns a non-HTTP Lambda event into a notification delivery.
type EventParser interface {
	ParseEvent(ctx context.Context, event json.RawMessage) (*Delivery, error)
}

type eventParserFunc func(ctx context.Context, event json.RawMessage) (*Delivery, error)

func (f eventParserFunc) ParseEvent(ctx context.Context, event json.RawMessage) (*Delivery, error) {
	return f(ctx, event)
}

type observableStore interface {
	AddObserver(o TaskObserver)
}

// Server runs a partner over HTTP, or on AWS Lambda when ridge detects the Lambda runtime.
// Zero values are replaced with in-memory defaults on first use.
type Server struct {
	// Addr is the TCP address to listen on. Defaults to ":8080".
	Addr string
	// RPCPath is the JSON-RPC endpoint path. Defaults to transport.DefaultRPCPath.
	RPCPath string
	// MetricsPath serves the Prometheus registry. Defaults to DefaultMetricsPath.
	MetricsPath string

	Handlers CommandHandlers
	Group    GroupHandler

	// Store defaults to an InMemoryTaskStore honoring AIP_MAX_PRODUCTS_BYTES.
	Store TaskStore
	// Events is required when Store is not an *InMemoryTaskStore.
	Events EventLog
	// DeliveryQueue defaults to an InMemoryDeliveryQueue. On Lambda, a queue that
	// implements EventParser receives its deliveries as Lambda events.
	DeliveryQueue DeliveryQueue
	// NotificationStore defaults to an InMemoryNotificationStore.
	NotificationStore NotificationStore
	Notifier          Notifier

	Authenticator transport.Authenticator
	// Registry collects the server metrics. Defaults to a new registry.
	Registry *prometheus.Registry

	// LambdaStreaming enables response streaming for Lambda function URLs.
	LambdaStreaming bool
	LambdaOptions   []lambda.Option

	Logger *slog.Logger

	service        *Service
	httpServer     *http.Server
	mux            *http.ServeMux
	customHandlers map[string]http.Handler
	middlewares    []func(http.Handler) http.Handler
	handler        http.Handler
	mu             sync.Mutex
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Service returns the partner service, initializing the server if needed.
func (s *Server) Service() (*Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s.service, nil
}

// Use adds HTTP middlewares. The first added wraps outermost.
func (s *Server) Use(middlewares ...func(http.Handler) http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler != nil {
		panic("aipkit: Use called after the server started")
	}
	s.middlewares = append(s.middlewares, middlewares...)
}

// Run starts the server and blocks until it shuts down.
func (s *Server) Run() error {
	return s.RunWithContext(context.Background())
}

// RunWithContext starts the server and blocks until ctx is cancelled or the server fails.
// Outside Lambda it serves HTTP and runs the notification workers.
func (s *Server) RunWithContext(ctx context.Context) error {
	s.mu.Lock()
	err := s.initialize()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if ridge.OnLambdaRuntime() {
		return s.runOnLambdaRuntime(ctx)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	stopped := make(chan struct{})
	eg.Go(func() error {
		defer close(stopped)
		s.logger().InfoContext(egCtx, "starting partner server", "addr", s.httpServer.Addr, "rpcPath", s.RPCPath)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		return s.service.Notifications.Run(egCtx)
	})
	eg.Go(func() error {
		select {
		case <-egCtx.Done():
		case <-stopped:
			// closed by an explicit Shutdown
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(egCtx), 30*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func (s *Server) eventParser(ctx context.Context) EventParser {
	if p, ok := s.DeliveryQueue.(EventParser); ok {
		return p
	}
	s.logger().WarnContext(ctx, "delivery queue is not an EventParser, running notification workers in process")
	go func() {
		if err := s.service.Notifications.Run(ctx); err != nil {
			s.logger().ErrorContext(ctx, "notification workers stopped", "error", err)
		}
	}()
	return eventParserFunc(func(ctx context.Context, event json.RawMessage) (*Delivery, error) {
		s.logger().DebugContext(ctx, "no event parser available, ignoring event", "payload", string(event))
		return nil, ErrSkipEvent
	})
}

func (s *Server) runOnLambdaRuntime(ctx context.Context) error {
	parser := s.eventParser(ctx)
	opts := append([]lambda.Option{
		lambda.WithContext(ctx),
	}, s.LambdaOptions...)
	lambda.StartWithOptions(
		func(ctx context.Context, event json.RawMessage) (any, error) {
			if req, err := ridge.NewRequest(event); err == nil && req.Method != "" && req.URL.Path != "" {
				return s.serveLambdaHTTP(ctx, req), nil
			}
			return s.handleLambdaEvent(ctx, parser, event)
		},
		opts...,
	)
	return nil
}

func (s *Server) serveLambdaHTTP(ctx context.Context, req *http.Request) any {
	if !s.LambdaStreaming {
		w := ridge.NewResponseWriter()
		s.handler.ServeHTTP(w, req.WithContext(ctx))
		return w.Response()
	}
	w := ridge.NewStreamingResponseWriter()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger().ErrorContext(ctx, "panic in streaming handler", "panic", r)
			}
			w.Close()
		}()
		s.handler.ServeHTTP(w, req.WithContext(ctx))
	}()
	w.Wait()
	return w.Response()
}

func (s *Server) handleLambdaEvent(ctx context.Context, parser EventParser, event json.RawMessage) (any, error) {
	d, err := parser.ParseEvent(ctx, event)
	if err != nil {
		if errors.Is(err, ErrSkipEvent) {
			s.logger().DebugContext(ctx, "skipping event", "error", err)
			return json.RawMessage(`"skipped"`), nil
		}
		s.logger().ErrorContext(ctx, "failed to parse event", "error", err, "payload", string(event))
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	if err := s.service.Notifications.ProcessDelivery(ctx, d); err != nil {
		s.logger().ErrorContext(ctx, "failed to process delivery", "taskID", d.TaskID, "error", err)
		return nil, fmt.Errorf("failed to process delivery: %w", err)
	}
	return json.RawMessage(`"delivery processed"`), nil
}

// Shutdown stops the HTTP server and closes the delivery queue.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}
	if s.DeliveryQueue != nil {
		if err := s.DeliveryQueue.Close(); err != nil && !errors.Is(err, ErrDeliveryQueueClosed) {
			errs = append(errs, fmt.Errorf("delivery queue close: %w", err))
		}
	}
	return errors.Join(errs...)
}

func maxProductsBytesFromEnv() (int, error) {
	v := os.Getenv(EnvMaxProductsBytes)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", EnvMaxProductsBytes, v)
	}
	return n, nil
}

// initialize fills in defaults. The caller holds s.mu.
func (s *Server) initialize() error {
	if s.handler != nil {
		return nil
	}
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.RPCPath == "" {
		s.RPCPath = transport.DefaultRPCPath
	}
	if s.MetricsPath == "" {
		s.MetricsPath = DefaultMetricsPath
	}
	if s.Store == nil {
		limit, err := maxProductsBytesFromEnv()
		if err != nil {
			return err
		}
		store := NewInMemoryTaskStore()
		store.MaxProductsBytes = limit
		store.Logger = s.logger()
		if s.Events != nil {
			store.Events = s.Events
		}
		s.Store = store
	}
	if s.Events == nil {
		mem, ok := s.Store.(*InMemoryTaskStore)
		if !ok || mem.Events == nil {
			return errors.New("aipkit: Events is required with a custom Store")
		}
		s.Events = mem.Events
	}
	if s.DeliveryQueue == nil {
		queue := NewInMemoryDeliveryQueue(100)
		queue.RetryDelay = DefaultRetryDelay
		queue.Logger = s.logger()
		s.DeliveryQueue = queue
	}
	if s.Registry == nil {
		s.Registry = prometheus.NewRegistry()
	}
	metrics, err := NewMetrics(s.Registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	notifications := NewNotificationService(s.Store, s.DeliveryQueue)
	notifications.Metrics = metrics
	notifications.Logger = s.logger()
	if s.NotificationStore != nil {
		notifications.Configs = s.NotificationStore
	}
	if s.Notifier != nil {
		notifications.Notifier = s.Notifier
	}
	if o, ok := s.Store.(observableStore); ok {
		o.AddObserver(notifications)
	} else {
		s.logger().Warn("task store does not accept observers, notifications will not be queued")
	}

	dispatcher := NewDispatcher(s.Store, s.Handlers)
	dispatcher.Metrics = metrics
	dispatcher.Logger = s.logger()
	s.service = &Service{
		Store:                 s.Store,
		Dispatcher:            dispatcher,
		Events:                s.Events,
		Notifications:         notifications,
		Group:                 s.Group,
		StreamingPollInterval: 200 * time.Millisecond,
		StreamBatchSize:       100,
		Metrics:               metrics,
		Logger:                s.logger(),
	}

	handlerOptions := []transport.HandlerOption{
		transport.WithRPCPath(s.RPCPath),
		transport.WithLogger(s.logger()),
	}
	if s.Authenticator != nil {
		handlerOptions = append(handlerOptions, transport.WithAuthenticator(s.Authenticator))
	}
	s.mux = http.NewServeMux()
	s.mux.Handle(s.RPCPath, transport.NewHandler(s.service, handlerOptions...))
	s.mux.Handle(s.MetricsPath, promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	for pattern, h := range s.customHandlers {
		s.mux.Handle(pattern, h)
	}
	s.customHandlers = nil

	s.handler = s.applyMiddleware(s.mux)
	s.httpServer = &http.Server{
		Addr:              s.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 30 * time.Second,
	}
	return nil
}

func (s *Server) isProtectedPattern(pattern string) bool {
	rpcPath := s.RPCPath
	if rpcPath == "" {
		rpcPath = transport.DefaultRPCPath
	}
	metricsPath := s.MetricsPath
	if metricsPath == "" {
		metricsPath = DefaultMetricsPath
	}
	return pattern == rpcPath || pattern == metricsPath
}

// Handle registers a handler for pattern.
// It panics if the pattern is already registered or is the RPC or metrics path.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isProtectedPattern(pattern) {
		panic(fmt.Sprintf("pattern %s conflicts with protocol endpoints", pattern))
	}
	if s.mux != nil {
		s.mux.Handle(pattern, handler)
		return
	}
	if s.customHandlers == nil {
		s.customHandlers = make(map[string]http.Handler)
	}
	if _, exists := s.customHandlers[pattern]; exists {
		panic(fmt.Sprintf("http: multiple registrations for %s", pattern))
	}
	s.customHandlers[pattern] = handler
}

// HandleFunc registers a handler function for pattern.
func (s *Server) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.Handle(pattern, http.HandlerFunc(handler))
}

// Handler returns the handler that serves r.
func (s *Server) Handler(r *http.Request) (http.Handler, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initialize(); err != nil {
		panic(fmt.Sprintf("failed to initialize server: %v", err))
	}
	return s.mux.Handler(r)
}

// ServeHTTP serves r through the middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.initialize()
	h := s.handler
	s.mu.Unlock()
	if err != nil {
		s.logger().ErrorContext(r.Context(), "failed to initialize server", "error", err)
		http.Error(w, "server misconfigured", http.StatusInternalServerError)
		return
	}
	h.ServeHTTP(w, r)
}

func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	result := handler
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		result = s.middlewares[i](result)
	}
	return result
}
