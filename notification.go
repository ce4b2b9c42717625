package aipkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mashiike/aipkit/aip"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxDeliveryAttempts is the number of attempts made for one notification.
const DefaultMaxDeliveryAttempts = 3

// NotificationService implements the notification/* methods and delivers
// status-update events to active subscriptions.
//
// Register it as a TaskObserver of the task store so that transitions are queued,
// and run Run (or call ProcessDelivery from a queue consumer) to deliver them.
type NotificationService struct {
	Store       TaskStore
	Configs     NotificationStore
	Notifier    Notifier
	Queue       DeliveryQueue
	IDGenerator IDGenerator
	// MaxAttempts defaults to DefaultMaxDeliveryAttempts.
	MaxAttempts int
	// Workers is the number of concurrent deliveries in Run. Defaults to 1.
	Workers int
	Metrics *Metrics
	Logger  *slog.Logger
}

// NewNotificationService creates a service with in-memory subscriptions and an HTTP notifier.
func NewNotificationService(store TaskStore, queue DeliveryQueue) *NotificationService {
	return &NotificationService{
		Store:       store,
		Configs:     NewInMemoryNotificationStore(),
		Notifier:    NewHTTPNotifier(),
		Queue:       queue,
		IDGenerator: &DefaultIDGenerator{},
		MaxAttempts: DefaultMaxDeliveryAttempts,
		Workers:     1,
		Logger:      slog.Default(),
	}
}

func (s *NotificationService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *NotificationService) maxAttempts() int {
	if s.MaxAttempts <= 0 {
		return DefaultMaxDeliveryAttempts
	}
	return s.MaxAttempts
}

func (s *NotificationService) idGenerator() IDGenerator {
	if s.IDGenerator == nil {
		return &DefaultIDGenerator{}
	}
	return s.IDGenerator
}

func notificationConfigNotFound(configID string) *aip.JSONRPCError {
	return aip.NewJSONRPCError(aip.ErrorCodeNotificationConfigNotFound, map[string]string{"notificationConfigId": configID})
}

// Set registers config for an existing task, assigning an id when it has none.
// Re-registering an existing id replaces the config and keeps its activation.
func (s *NotificationService) Set(ctx context.Context, config aip.NotificationConfig) (*aip.NotificationConfig, error) {
	if err := config.Validate(); err != nil {
		return nil, aip.NewJSONRPCInvalidParamsError(err.Error())
	}
	if err := s.requireTask(ctx, config.TaskID); err != nil {
		return nil, err
	}
	if s.Notifier != nil {
		if err := s.Notifier.ValidateEndpoint(ctx, config); err != nil {
			return nil, aip.NewJSONRPCInvalidParamsError(err.Error())
		}
	}
	if config.ID == "" {
		config.ID = s.idGenerator().GenerateNotificationConfigID()
	}

	sub := Subscription{Config: config}
	existing, err := s.Configs.Get(ctx, config.TaskID, config.ID)
	switch {
	case err == nil:
		sub.Active = existing.Active
		sub.NotifyOnStates = existing.NotifyOnStates
	case !errors.Is(err, ErrNotificationConfigNotFound):
		return nil, aip.NewJSONRPCInternalError(err.Error())
	}
	if err := s.Configs.Put(ctx, sub); err != nil {
		return nil, aip.NewJSONRPCInternalError(err.Error())
	}
	s.logger().InfoContext(ctx, "notification config registered", "taskID", config.TaskID, "configID", config.ID)
	return &config, nil
}

// Get returns every config of the task, or the single config named by the params.
func (s *NotificationService) Get(ctx context.Context, params aip.NotificationIDParams) ([]aip.NotificationConfig, error) {
	if err := params.Validate(); err != nil {
		return nil, aip.NewJSONRPCInvalidParamsError(err.Error())
	}
	if params.NotificationConfigID != "" {
		sub, err := s.Configs.Get(ctx, params.TaskID, params.NotificationConfigID)
		if errors.Is(err, ErrNotificationConfigNotFound) {
			return nil, notificationConfigNotFound(params.NotificationConfigID)
		}
		if err != nil {
			return nil, aip.NewJSONRPCInternalError(err.Error())
		}
		return []aip.NotificationConfig{sub.Config}, nil
	}
	subs, err := s.Configs.List(ctx, params.TaskID)
	if err != nil {
		return nil, aip.NewJSONRPCInternalError(err.Error())
	}
	configs := make([]aip.NotificationConfig, 0, len(subs))
	for _, sub := range subs {
		configs = append(configs, sub.Config)
	}
	return configs, nil
}

// Delete removes the named config, or every config of the task without a name.
func (s *NotificationService) Delete(ctx context.Context, params aip.NotificationIDParams) (*aip.NotificationDeleteResult, error) {
	if err := params.Validate(); err != nil {
		return nil, aip.NewJSONRPCInvalidParamsError(err.Error())
	}
	removed, err := s.Configs.Delete(ctx, params.TaskID, params.NotificationConfigID)
	if err != nil {
		return nil, aip.NewJSONRPCInternalError(err.Error())
	}
	return &aip.NotificationDeleteResult{Success: removed}, nil
}

// Start activates delivery for the config named in the message command params.
// The task is not modified; the current task is returned.
func (s *NotificationService) Start(ctx context.Context, msg *aip.Message) (*aip.Task, error) {
	if msg == nil {
		return nil, aip.NewJSONRPCInvalidParamsError("message is required.")
	}
	if msg.TaskID == "" {
		return nil, aip.NewJSONRPCInvalidParamsError(taskIDRequiredText)
	}
	var params aip.NotificationStartParams
	if err := msg.DecodeCommandParams(&params); err != nil {
		return nil, aip.NewJSONRPCInvalidParamsError(err.Error())
	}
	if err := params.Validate(); err != nil {
		return nil, aip.NewJSONRPCInvalidParamsError(err.Error())
	}
	task, err := s.Store.Get(ctx, msg.TaskID)
	if errors.Is(err, ErrTaskNotFound) {
		return nil, aip.NewJSONRPCTaskNotFoundError(msg.TaskID)
	}
	if err != nil {
		return nil, aip.NewJSONRPCInternalError(err.Error())
	}
	sub, err := s.Configs.Get(ctx, msg.TaskID, params.NotificationConfigID)
	if errors.Is(err, ErrNotificationConfigNotFound) {
		return nil, notificationConfigNotFound(params.NotificationConfigID)
	}
	if err != nil {
		return nil, aip.NewJSONRPCInternalError(err.Error())
	}
	sub.Active = true
	sub.NotifyOnStates = params.NotifyOnStates
	if err := s.Configs.Put(ctx, *sub); err != nil {
		return nil, aip.NewJSONRPCInternalError(err.Error())
	}
	s.logger().InfoContext(ctx, "notification started", "taskID", msg.TaskID, "configID", sub.Config.ID, "states", sub.NotifyOnStates)
	return task, nil
}

func (s *NotificationService) requireTask(ctx context.Context, taskID string) error {
	_, err := s.Store.Get(ctx, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		return aip.NewJSONRPCTaskNotFoundError(taskID)
	}
	if err != nil {
		return aip.NewJSONRPCInternalError(err.Error())
	}
	return nil
}

// ObserveTaskEvent implements TaskObserver. Status updates are queued for every
// active subscription whose states match.
func (s *NotificationService) ObserveTaskEvent(ctx context.Context, event aip.StreamEvent) {
	update, ok := event.EventData.(*aip.TaskStatusUpdateEvent)
	if !ok {
		return
	}
	subs, err := s.Configs.List(ctx, update.TaskID)
	if err != nil {
		s.logger().ErrorContext(ctx, "failed to list notification configs", "taskID", update.TaskID, "error", err)
		return
	}
	for _, sub := range subs {
		if !sub.Matches(update.Status.State) {
			continue
		}
		err := s.Queue.Enqueue(ctx, DeliveryConfig{
			TaskID:   update.TaskID,
			ConfigID: sub.Config.ID,
			Event:    event,
		})
		if err != nil {
			s.Metrics.RecordNotificationDropped(err)
			s.logger().WarnContext(ctx, "notification dropped", "taskID", update.TaskID, "configID", sub.Config.ID, "error", err)
		}
	}
}

// Run delivers queued notifications until ctx is done or the queue is closed.
func (s *NotificationService) Run(ctx context.Context) error {
	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}
	eg, egCtx := errgroup.WithContext(ctx)
	for range workers {
		eg.Go(func() error {
			for {
				d, err := s.Queue.Dequeue(egCtx)
				if err != nil {
					if errors.Is(err, ErrDeliveryQueueClosed) || egCtx.Err() != nil {
						return nil
					}
					s.logger().ErrorContext(egCtx, "failed to dequeue notification", "error", err)
					continue
				}
				if err := s.ProcessDelivery(egCtx, d); err != nil {
					s.logger().ErrorContext(egCtx, "failed to process notification", "taskID", d.TaskID, "configID", d.ConfigID, "error", err)
				}
			}
		})
	}
	return eg.Wait()
}

// ProcessDelivery makes one delivery attempt. A failed attempt is re-queued until
// MaxAttempts is reached; the queue decides when the retry becomes visible.
// Deliveries for deleted or inactive subscriptions are dropped, as are retries
// that find the queue full.
func (s *NotificationService) ProcessDelivery(ctx context.Context, d *Delivery) error {
	sub, err := s.Configs.Get(ctx, d.TaskID, d.ConfigID)
	if errors.Is(err, ErrNotificationConfigNotFound) || (err == nil && !sub.Active) {
		s.logger().DebugContext(ctx, "notification dropped", "taskID", d.TaskID, "configID", d.ConfigID)
		return d.CompleteFunc()
	}
	if err != nil {
		return errors.Join(fmt.Errorf("load notification config: %w", err), d.FailFunc())
	}

	start := time.Now()
	notifyErr := s.Notifier.Notify(ctx, sub.Config, d.Event)
	s.Metrics.RecordNotification(time.Since(start), notifyErr)
	if notifyErr == nil {
		s.logger().DebugContext(ctx, "notification delivered", "taskID", d.TaskID, "configID", d.ConfigID, "eventSeq", d.Event.EventSeq)
		return d.CompleteFunc()
	}

	attempt := d.Attempt + 1
	if attempt >= s.maxAttempts() {
		s.logger().ErrorContext(ctx, "notification failed permanently", "taskID", d.TaskID, "configID", d.ConfigID, "attempts", attempt, "error", notifyErr)
		return d.CompleteFunc()
	}
	s.logger().WarnContext(ctx, "notification failed, retrying", "taskID", d.TaskID, "configID", d.ConfigID, "attempt", attempt, "error", notifyErr)
	err = s.Queue.Enqueue(context.WithoutCancel(ctx), DeliveryConfig{
		TaskID:   d.TaskID,
		ConfigID: d.ConfigID,
		Event:    d.Event,
		Attempt:  attempt,
	})
	if errors.Is(err, ErrDeliveryQueueFull) {
		s.Metrics.RecordNotificationDropped(err)
		s.logger().WarnContext(ctx, "notification retry dropped", "taskID", d.TaskID, "configID", d.ConfigID, "attempt", attempt, "error", err)
		return d.CompleteFunc()
	}
	if err != nil {
		return errors.Join(fmt.Errorf("requeue notification: %w", err), d.FailFunc())
	}
	return d.CompleteFunc()
}
