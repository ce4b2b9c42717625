package aipkit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mashiike/aipkit/aip"
	"github.com/mashiike/aipkit/transport"
)

//go:generate go tool mockgen -source=service.go -destination=mock_service_test.go -package=aipkit

// GroupHandler accepts invitations to join a group.
type GroupHandler interface {
	JoinGroup(ctx context.Context, params aip.GroupJoinParams) (*aip.GroupJoinResult, error)
}

var _ transport.Service = (*Service)(nil)

// Service is a partner: it validates inbound messages, dispatches them and serves
// their event streams and notification subscriptions. It implements transport.Service.
type Service struct {
	Store      TaskStore
	Dispatcher *Dispatcher
	Events     EventLog
	// Notifications serves notification/*. When nil those methods are not available.
	Notifications *NotificationService
	// Group serves the group method. When nil the method is not available.
	Group GroupHandler

	// StreamingPollInterval is the interval between event log polls while streaming.
	StreamingPollInterval time.Duration
	// StreamBatchSize limits the events loaded per poll.
	StreamBatchSize int

	Metrics *Metrics
	Logger  *slog.Logger
}

// NewService creates a partner over an in-memory store using handlers.
// The notification service is registered as an observer of the store.
func NewService(handlers CommandHandlers) *Service {
	store := NewInMemoryTaskStore()
	s := &Service{
		Store:                 store,
		Dispatcher:            NewDispatcher(store, handlers),
		Events:                store.Events,
		Notifications:         NewNotificationService(store, NewInMemoryDeliveryQueue(100)),
		StreamingPollInterval: 200 * time.Millisecond,
		StreamBatchSize:       100,
		Logger:                slog.Default(),
	}
	store.AddObserver(s.Notifications)
	return s
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func validateMessage(msg *aip.Message) error {
	if msg == nil {
		return aip.NewJSONRPCInvalidParamsError("message is required.")
	}
	if err := msg.Validate(); err != nil {
		return aip.NewJSONRPCInvalidParamsError(err.Error())
	}
	return nil
}

// HandleMessage dispatches msg and returns the resulting task.
func (s *Service) HandleMessage(ctx context.Context, msg *aip.Message) (*aip.Task, error) {
	if err := validateMessage(msg); err != nil {
		return nil, err
	}
	return s.Dispatcher.Dispatch(ctx, msg)
}

// StreamMessage dispatches msg in the background and streams every event of its task
// produced from now on. A re-stream message replays the events after lastEventSeq instead
// of dispatching. The channel is closed after a terminal event or when ctx is done.
func (s *Service) StreamMessage(ctx context.Context, msg *aip.Message) (<-chan aip.StreamEvent, error) {
	if err := validateMessage(msg); err != nil {
		return nil, err
	}
	if s.Events == nil {
		return nil, aip.NewJSONRPCMethodNotFoundError(aip.MethodStream)
	}
	if msg.Command == aip.CommandReStream {
		return s.reStream(ctx, msg)
	}

	if err := s.Dispatcher.Check(ctx, msg); err != nil {
		return nil, err
	}
	cursor, err := s.Events.LastSeq(ctx, msg.TaskID)
	if err != nil {
		return nil, aip.NewJSONRPCInternalError(err.Error())
	}

	dispatched := make(chan error, 1)
	go func() {
		// the task outlives the stream: a client that goes away can re-stream
		_, err := s.Dispatcher.Dispatch(context.WithoutCancel(ctx), msg)
		dispatched <- err
	}()
	return s.streamEvents(ctx, msg.TaskID, cursor, dispatched), nil
}

func (s *Service) reStream(ctx context.Context, msg *aip.Message) (<-chan aip.StreamEvent, error) {
	if msg.TaskID == "" {
		return nil, aip.NewJSONRPCInvalidParamsError(taskIDRequiredText)
	}
	var params aip.ReStreamCommandParams
	if err := msg.DecodeCommandParams(&params); err != nil {
		return nil, aip.NewJSONRPCInvalidParamsError(err.Error())
	}
	if _, err := s.Store.Get(ctx, msg.TaskID); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, aip.NewJSONRPCTaskNotFoundError(msg.TaskID)
		}
		return nil, aip.NewJSONRPCInternalError(err.Error())
	}
	cursor := max(params.LastEventSeq, 0)
	if _, err := s.Events.Load(ctx, msg.TaskID, cursor, 1); err != nil {
		if errors.Is(err, ErrReplayUnavailable) {
			return nil, replayUnavailable(msg.TaskID, cursor)
		}
		return nil, aip.NewJSONRPCInternalError(err.Error())
	}
	return s.streamEvents(ctx, msg.TaskID, cursor, nil), nil
}

func replayUnavailable(taskID string, cursor int64) *aip.JSONRPCError {
	return aip.NewJSONRPCError(aip.ErrorCodeReplayUnavailable, map[string]any{"taskId": taskID, "lastEventSeq": cursor})
}

// streamEvents polls the event log after cursor. dispatched is nil when nothing runs in the background.
func (s *Service) streamEvents(ctx context.Context, taskID string, cursor int64, dispatched <-chan error) <-chan aip.StreamEvent {
	ch := make(chan aip.StreamEvent, 10)
	interval := s.StreamingPollInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	batch := s.StreamBatchSize
	if batch <= 0 {
		batch = 100
	}

	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		idle := dispatched == nil
		for {
			events, err := s.Events.Load(ctx, taskID, cursor, batch)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, ErrReplayUnavailable) {
					s.logger().WarnContext(ctx, "stream fell behind the event log", "taskID", taskID, "afterSeq", cursor)
					select {
					case ch <- aip.StreamEvent{Err: replayUnavailable(taskID, cursor)}:
					case <-ctx.Done():
					}
					return
				}
				s.logger().WarnContext(ctx, "failed to load stream events", "taskID", taskID, "afterSeq", cursor, "error", err)
			}
			for _, ev := range events {
				select {
				case ch <- ev:
					s.Metrics.RecordStreamEvent()
				case <-ctx.Done():
					return
				}
				cursor = ev.EventSeq
				if ev.IsTerminal() {
					return
				}
			}
			if len(events) == batch {
				continue
			}
			if idle && len(events) == 0 && s.sendTerminalSnapshot(ctx, ch, taskID, cursor) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case err := <-dispatched:
				dispatched = nil
				idle = true
				if err != nil {
					s.logger().WarnContext(ctx, "streamed message was rejected", "taskID", taskID, "error", err)
					if _, gerr := s.Store.Get(ctx, taskID); errors.Is(gerr, ErrTaskNotFound) {
						return
					}
				}
			case <-ticker.C:
			}
		}
	}()
	return ch
}

// sendTerminalSnapshot sends the task itself when it is terminal and reports whether it did.
func (s *Service) sendTerminalSnapshot(ctx context.Context, ch chan<- aip.StreamEvent, taskID string, cursor int64) bool {
	task, err := s.Store.Get(ctx, taskID)
	if err != nil || !task.Status.State.IsTerminal() {
		return false
	}
	select {
	case ch <- aip.StreamEvent{EventSeq: cursor, EventData: task}:
		s.Metrics.RecordStreamEvent()
	case <-ctx.Done():
	}
	return true
}

func (s *Service) notifications() (*NotificationService, error) {
	if s.Notifications == nil {
		return nil, aip.NewJSONRPCMethodNotFoundError("notification")
	}
	return s.Notifications, nil
}

// SetNotification implements notification/set.
func (s *Service) SetNotification(ctx context.Context, config aip.NotificationConfig) (*aip.NotificationConfig, error) {
	n, err := s.notifications()
	if err != nil {
		return nil, err
	}
	return n.Set(ctx, config)
}

// GetNotifications implements notification/get.
func (s *Service) GetNotifications(ctx context.Context, params aip.NotificationIDParams) ([]aip.NotificationConfig, error) {
	n, err := s.notifications()
	if err != nil {
		return nil, err
	}
	return n.Get(ctx, params)
}

// DeleteNotification implements notification/delete.
func (s *Service) DeleteNotification(ctx context.Context, params aip.NotificationIDParams) (*aip.NotificationDeleteResult, error) {
	n, err := s.notifications()
	if err != nil {
		return nil, err
	}
	return n.Delete(ctx, params)
}

// StartNotification implements notification/start.
func (s *Service) StartNotification(ctx context.Context, msg *aip.Message) (*aip.Task, error) {
	n, err := s.notifications()
	if err != nil {
		return nil, err
	}
	if err := validateMessage(msg); err != nil {
		return nil, err
	}
	return n.Start(ctx, msg)
}

// JoinGroup implements the group method.
func (s *Service) JoinGroup(ctx context.Context, params aip.GroupJoinParams) (*aip.GroupJoinResult, error) {
	if s.Group == nil {
		return nil, aip.NewJSONRPCMethodNotFoundError(aip.MethodGroup)
	}
	if err := params.Validate(); err != nil {
		return nil, aip.NewJSONRPCInvalidParamsError(err.Error())
	}
	return s.Group.JoinGroup(ctx, params)
}
