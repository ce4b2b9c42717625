package aipkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/mashiike/aipkit/aip"
)

const (
	taskIDRequiredText   = "taskId is required."
	unknownCommandFormat = "Unknown or missing command: %s"
	handlerFailureFormat = "Agent execution failed: %v"
)

// Dispatcher resolves the handler of an inbound message, enforces the per-command
// task existence policy and isolates handler failures.
type Dispatcher struct {
	Store    TaskStore
	Handlers CommandHandlers
	Metrics  *Metrics
	Logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over store, falling back to DefaultHandlers for nil slots.
func NewDispatcher(store TaskStore, handlers CommandHandlers) *Dispatcher {
	return &Dispatcher{
		Store:    store,
		Handlers: handlers,
		Logger:   slog.Default(),
	}
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// resolve returns the handler for cmd and whether it needs an existing task.
// ok is false when no handler applies.
func (d *Dispatcher) resolve(cmd aip.TaskCommand) (handler CommandHandler, requiresTask bool, ok bool) {
	defaults := NewDefaultHandlers(d.Store)
	pick := func(override CommandHandler, fallback CommandHandlerFunc) CommandHandler {
		if override != nil {
			return override
		}
		return fallback
	}
	switch cmd {
	case aip.CommandStart:
		return pick(d.Handlers.Start, defaults.Start), false, true
	case aip.CommandGet:
		return pick(d.Handlers.Get, defaults.Get), true, true
	case aip.CommandCancel:
		return pick(d.Handlers.Cancel, defaults.Cancel), true, true
	case aip.CommandComplete:
		return pick(d.Handlers.Complete, defaults.Complete), true, true
	case aip.CommandContinue:
		return pick(d.Handlers.Continue, defaults.Continue), true, true
	}
	if d.Handlers.Message != nil {
		return d.Handlers.Message, false, true
	}
	return nil, false, false
}

// Dispatch runs exactly one handler for msg and returns the resulting task.
// Protocol errors are returned as *aip.JSONRPCError. Handler errors and panics are
// never returned: they fail the task, and the failed task is the result.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *aip.Message) (*aip.Task, error) {
	start := time.Now()
	task, outcome, err := d.dispatch(ctx, msg)
	d.Metrics.RecordCommand(string(msg.Command), outcome, time.Since(start))
	return task, err
}

func (d *Dispatcher) dispatch(ctx context.Context, msg *aip.Message) (*aip.Task, string, error) {
	task, handler, err := d.prepare(ctx, msg)
	if err != nil {
		return nil, outcomeProtocolError, err
	}

	handlerCtx, cancel := d.handlerContext(ctx, msg)
	defer cancel()

	result, err := d.invoke(handlerCtx, handler, msg, task)
	if err != nil {
		failed, ferr := d.fail(ctx, msg, err)
		return failed, outcomeTaskFailed, ferr
	}
	if result == nil {
		result, err = d.Store.Get(ctx, msg.TaskID)
		if err != nil {
			return nil, outcomeProtocolError, aip.NewJSONRPCInternalError(err.Error())
		}
	}
	return result, outcomeOK, nil
}

// Check reports the protocol error Dispatch would return for msg before running a handler.
func (d *Dispatcher) Check(ctx context.Context, msg *aip.Message) error {
	_, _, err := d.prepare(ctx, msg)
	return err
}

// prepare loads the task and resolves the handler, enforcing the task existence policy.
func (d *Dispatcher) prepare(ctx context.Context, msg *aip.Message) (*aip.Task, CommandHandler, error) {
	if msg.TaskID == "" {
		return nil, nil, aip.NewJSONRPCInvalidParamsError(taskIDRequiredText)
	}

	task, err := d.Store.Get(ctx, msg.TaskID)
	if err != nil {
		if !errors.Is(err, ErrTaskNotFound) {
			d.logger().ErrorContext(ctx, "failed to load task", "taskID", msg.TaskID, "error", err)
			return nil, nil, aip.NewJSONRPCInternalError(err.Error())
		}
		task = nil
	}

	handler, requiresTask, ok := d.resolve(msg.Command)
	if !ok {
		return nil, nil, aip.NewJSONRPCInvalidParamsError(fmt.Sprintf(unknownCommandFormat, msg.Command))
	}
	if requiresTask && task == nil {
		return nil, nil, aip.NewJSONRPCTaskNotFoundError(msg.TaskID)
	}
	return task, handler, nil
}

// handlerContext applies the start timeout carried in the command params.
func (d *Dispatcher) handlerContext(ctx context.Context, msg *aip.Message) (context.Context, context.CancelFunc) {
	if msg.Command != aip.CommandStart {
		return context.WithCancel(ctx)
	}
	var params aip.StartCommandParams
	if err := msg.DecodeCommandParams(&params); err != nil || params.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(params.Timeout)*time.Second)
}

func (d *Dispatcher) invoke(ctx context.Context, handler CommandHandler, msg *aip.Message, task *aip.Task) (result *aip.Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger().ErrorContext(ctx, "command handler panicked", "taskID", msg.TaskID, "command", msg.Command, "panic", r, "stack", string(debug.Stack()))
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler.HandleCommand(ctx, msg, task)
}

// fail transitions the task to failed unless it is already terminal.
func (d *Dispatcher) fail(ctx context.Context, msg *aip.Message, cause error) (*aip.Task, error) {
	text := fmt.Sprintf(handlerFailureFormat, cause)
	d.logger().WarnContext(ctx, "command handler failed", "taskID", msg.TaskID, "command", msg.Command, "error", cause)

	ctx = context.WithoutCancel(ctx)
	task, err := d.Store.Update(ctx, msg.TaskID, func(tx TaskTx) error {
		if state := tx.Task().Status.State; state.IsTerminal() {
			d.logger().InfoContext(ctx, "task already terminal, failure not recorded", "taskID", msg.TaskID, "state", state)
			return nil
		}
		tx.Transition(aip.TaskStateFailed, aip.NewTextItem(text))
		return nil
	})
	if errors.Is(err, ErrTaskNotFound) {
		return nil, aip.NewJSONRPCInternalError(text)
	}
	if err != nil {
		d.logger().ErrorContext(ctx, "failed to record handler failure", "taskID", msg.TaskID, "error", err)
		return nil, aip.NewJSONRPCInternalError(text)
	}
	return task, nil
}
