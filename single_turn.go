package aipkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mashiike/aipkit/aip"
)

// Default failure texts of SingleTurn.
const (
	DefaultEmptyInputText   = "Request content is empty and cannot be processed."
	DefaultProcessErrorText = "An error occurred while processing the request: "
)

// Processor turns the text of a leader message into a reply.
type Processor interface {
	Process(ctx context.Context, input string) (string, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, input string) (string, error)

// Process implements Processor
func (f ProcessorFunc) Process(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// SingleTurn builds command handlers for partners that answer each message synchronously.
// start and continue record the message, run the processor on its text and complete
// the task with the reply; cancel and complete keep the defaults.
type SingleTurn struct {
	Store     TaskStore
	AgentID   string
	Processor Processor
	// EmptyInputText is the failure text for messages without text.
	EmptyInputText string
	// ErrorPrefix precedes processor errors in the failure text.
	ErrorPrefix string
	IDGenerator IDGenerator
	Logger      *slog.Logger
}

// NewSingleTurn creates a SingleTurn with the default texts.
func NewSingleTurn(store TaskStore, agentID string, processor Processor) *SingleTurn {
	return &SingleTurn{
		Store:          store,
		AgentID:        agentID,
		Processor:      processor,
		EmptyInputText: DefaultEmptyInputText,
		ErrorPrefix:    DefaultProcessErrorText,
		IDGenerator:    &DefaultIDGenerator{},
		Logger:         slog.Default(),
	}
}

func (s *SingleTurn) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Handlers returns the handlers to pass to NewDispatcher.
func (s *SingleTurn) Handlers() CommandHandlers {
	return CommandHandlers{
		Start:    CommandHandlerFunc(s.start),
		Continue: CommandHandlerFunc(s.process),
	}
}

func (s *SingleTurn) start(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	if task != nil {
		return s.process(ctx, msg, task)
	}
	created, err := s.Store.Create(ctx, msg)
	if errors.Is(err, ErrDuplicateTask) {
		return s.process(ctx, msg, nil)
	}
	if err != nil {
		return nil, err
	}
	return s.run(ctx, msg, created)
}

func (s *SingleTurn) process(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	if err := s.Store.AppendMessage(ctx, msg.TaskID, msg); err != nil {
		return nil, err
	}
	current, err := s.Store.Get(ctx, msg.TaskID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, msg, current)
}

// run processes a message that is already in the task history.
func (s *SingleTurn) run(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	if task.Status.State.IsTerminal() {
		return task, nil
	}
	input := msg.Text()
	if input == "" {
		return s.finish(ctx, task.ID, nil, aip.TaskStateFailed, s.EmptyInputText)
	}

	output, err := s.Processor.Process(ctx, input)
	if err != nil {
		s.logger().WarnContext(ctx, "processor failed", "taskID", task.ID, "error", err)
		return s.finish(ctx, task.ID, nil, aip.TaskStateFailed, fmt.Sprintf("%s%v", s.ErrorPrefix, err))
	}

	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = task.SessionID
	}
	idGen := s.IDGenerator
	if idGen == nil {
		idGen = &DefaultIDGenerator{}
	}
	reply := aip.NewMessage(idGen.GenerateMessageID(), aip.RolePartner, s.AgentID, []aip.DataItem{aip.NewTextItem(output)}, func(o *aip.MessageOptions) {
		o.TaskID = task.ID
		o.SessionID = sessionID
	})
	return s.finish(ctx, task.ID, &reply, aip.TaskStateCompleted, output)
}

// finish records reply and the final state unless the task became terminal meanwhile.
func (s *SingleTurn) finish(ctx context.Context, taskID string, reply *aip.Message, state aip.TaskState, text string) (*aip.Task, error) {
	return s.Store.Update(context.WithoutCancel(ctx), taskID, func(tx TaskTx) error {
		if tx.Task().Status.State.IsTerminal() {
			return nil
		}
		tx.AppendMessage(reply)
		tx.Transition(state, aip.NewTextItem(text))
		return nil
	})
}
