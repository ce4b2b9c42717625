package aipkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/mashiike/aipkit/aip"
)

//go:generate go tool mockgen -source=handlers.go -destination=mock_handlers_test.go -package=aipkit

// CommandHandler consumes a message and the current task and produces the resulting task.
// task is nil for start on an unseen task id and for catch-all messages without a task.
// A handler makes changes durable only through the TaskStore.
type CommandHandler interface {
	HandleCommand(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error)
}

// CommandHandlerFunc adapts a function to CommandHandler.
type CommandHandlerFunc func(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error)

// HandleCommand implements CommandHandler
func (f CommandHandlerFunc) HandleCommand(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	return f(ctx, msg, task)
}

// CommandHandlers holds per-command overrides. A nil slot falls back to DefaultHandlers.
type CommandHandlers struct {
	Start    CommandHandler
	Get      CommandHandler
	Cancel   CommandHandler
	Complete CommandHandler
	Continue CommandHandler
	// Message handles messages with a missing or unsupported command.
	// When nil such messages are rejected as invalid params.
	Message CommandHandler
}

// DefaultHandlers implements the reference semantics of each command on top of a TaskStore.
// Defaults only append history, except cancel and complete which may also transition the task.
type DefaultHandlers struct {
	Store TaskStore
}

// NewDefaultHandlers creates default handlers bound to store.
func NewDefaultHandlers(store TaskStore) *DefaultHandlers {
	return &DefaultHandlers{Store: store}
}

// Start creates the task in accepted, honoring maxProductsBytes from the command params.
// On an existing task it appends the message and returns the task unchanged otherwise.
func (h *DefaultHandlers) Start(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	if task != nil {
		return h.appendAndGet(ctx, msg)
	}
	var params aip.StartCommandParams
	if err := msg.DecodeCommandParams(&params); err != nil {
		return nil, err
	}
	created, err := h.Store.Create(ctx, msg, func(opts *CreateTaskOptions) {
		opts.MaxProductsBytes = params.MaxProductsBytes
	})
	if errors.Is(err, ErrDuplicateTask) {
		// created concurrently by another start
		return h.appendAndGet(ctx, msg)
	}
	return created, err
}

func (h *DefaultHandlers) appendAndGet(ctx context.Context, msg *aip.Message) (*aip.Task, error) {
	if err := h.Store.AppendMessage(ctx, msg.TaskID, msg); err != nil {
		return nil, err
	}
	return h.Store.Get(ctx, msg.TaskID)
}

// Get returns a view of the task filtered by lastMessageSentAt and lastStateChangedAt.
// Entries are kept when their timestamp is strictly greater than the cursor.
// The stored task is never modified; if filtering fails the unfiltered task is returned.
func (h *DefaultHandlers) Get(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	view, err := filterTask(msg, task)
	if err != nil {
		return task.Clone(), nil
	}
	return view, nil
}

func filterTask(msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	var params aip.GetCommandParams
	if err := msg.DecodeCommandParams(&params); err != nil {
		return nil, err
	}
	view := task.Clone()
	if params.LastMessageSentAt != "" && len(task.MessageHistory) > 0 {
		cursor, err := aip.ParseTimestamp(params.LastMessageSentAt)
		if err != nil {
			return nil, fmt.Errorf("lastMessageSentAt: %w", err)
		}
		messages := make([]aip.Message, 0, len(view.MessageHistory))
		for _, m := range view.MessageHistory {
			sentAt, err := aip.ParseTimestamp(m.SentAt)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.ID, err)
			}
			if sentAt.After(cursor) {
				messages = append(messages, m)
			}
		}
		view.MessageHistory = messages
	}
	if params.LastStateChangedAt != "" && len(task.StatusHistory) > 0 {
		cursor, err := aip.ParseTimestamp(params.LastStateChangedAt)
		if err != nil {
			return nil, fmt.Errorf("lastStateChangedAt: %w", err)
		}
		statuses := make([]aip.TaskStatus, 0, len(view.StatusHistory))
		for _, s := range view.StatusHistory {
			changedAt, err := s.ChangedAt()
			if err != nil {
				return nil, err
			}
			if changedAt.After(cursor) {
				statuses = append(statuses, s)
			}
		}
		view.StatusHistory = statuses
	}
	return view, nil
}

// Cancel transitions a non-terminal task to canceled. Terminal tasks are returned untouched.
func (h *DefaultHandlers) Cancel(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	return h.Store.Update(ctx, task.ID, func(tx TaskTx) error {
		if tx.Task().Status.State.IsTerminal() {
			return nil
		}
		tx.AppendMessage(msg)
		tx.Transition(aip.TaskStateCanceled)
		return nil
	})
}

// Complete appends the message and transitions to completed only from awaiting-completion.
func (h *DefaultHandlers) Complete(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	return h.Store.Update(ctx, task.ID, func(tx TaskTx) error {
		tx.AppendMessage(msg)
		if tx.Task().Status.State == aip.TaskStateAwaitingCompletion {
			tx.Transition(aip.TaskStateCompleted)
		}
		return nil
	})
}

// Continue appends the message and leaves the state alone.
// Overrides decide how an accepted continuation (see ContinueAccepted) moves the task forward.
func (h *DefaultHandlers) Continue(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	return h.Store.Update(ctx, task.ID, func(tx TaskTx) error {
		tx.AppendMessage(msg)
		return nil
	})
}

// ContinueAccepted reports whether a continue message applies to the task:
// the task awaits the leader and the message carries non-blank text.
func ContinueAccepted(msg *aip.Message, task *aip.Task) bool {
	return task != nil && task.Status.State.IsAwaiting() && msg.HasText()
}
