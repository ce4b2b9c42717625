// Package aipkit provides a toolkit for building partners and leaders of the
// agent interoperability protocol: a task store, pluggable command handlers,
// a dispatcher, event streams and webhook notifications.
package aipkit

import (
	"context"
	"errors"

	"github.com/mashiike/aipkit/aip"
)

//go:generate go tool mockgen -source=store.go -destination=mock_store_test.go -package=aipkit

// Store error variables that implementations should return
var (
	// ErrTaskNotFound is returned when a requested task does not exist
	ErrTaskNotFound = errors.New("task not found")
	// ErrDuplicateTask is returned when creating a task whose id already exists
	ErrDuplicateTask = errors.New("task already exists")
	// ErrMissingTaskID is returned when a message carries no task id
	ErrMissingTaskID = errors.New("a message to start a task must have a taskId")
)

// Failure texts recorded by the store when products cannot be accepted.
const (
	productsSizeExceededFormat = "Products size %d bytes exceeds maxProductsBytes=%d."
	productsSizeErrorText      = "Error calculating products size."
)

// CreateTaskOptions configures a new task.
type CreateTaskOptions struct {
	// InitialState defaults to accepted.
	InitialState aip.TaskState
	DataItems    []aip.DataItem
	SenderID     string
	// MaxProductsBytes overrides the store-wide products ceiling for this task. 0 keeps the store default.
	MaxProductsBytes int
}

// TaskStore is the authoritative record of task state.
// Implementations serialize mutations per task id and hand out copies, never the canonical record.
type TaskStore interface {
	// Get returns a copy of the task or ErrTaskNotFound.
	Get(ctx context.Context, taskID string) (*aip.Task, error)
	// Create creates a task for msg.TaskID seeded with msg.
	// It fails with ErrMissingTaskID or ErrDuplicateTask.
	Create(ctx context.Context, msg *aip.Message, optFns ...func(*CreateTaskOptions)) (*aip.Task, error)
	// Transition replaces the current status and appends it to the status history.
	// It does not check the legality of the transition. It fails with ErrTaskNotFound.
	Transition(ctx context.Context, taskID string, state aip.TaskState, items ...aip.DataItem) (*aip.Task, error)
	// AppendMessage appends msg to the message history. It is a no-op when the task does not exist.
	AppendMessage(ctx context.Context, taskID string, msg *aip.Message) error
	// SetProducts replaces the products. When the products ceiling is exceeded the task
	// is transitioned to failed instead and its products are left unchanged.
	SetProducts(ctx context.Context, taskID string, products []aip.Product) (*aip.Task, error)
	// AppendProductChunk adds or extends a single product under the same ceiling as SetProducts.
	AppendProductChunk(ctx context.Context, taskID string, product aip.Product, appendChunk, lastChunk bool) (*aip.Task, error)
	// Update runs fn while holding the task lock so that check-then-act sequences are atomic.
	Update(ctx context.Context, taskID string, fn func(tx TaskTx) error) (*aip.Task, error)
}

// TaskTx mutates one task inside TaskStore.Update.
type TaskTx interface {
	// Task returns the current state of the task including changes made in this transaction.
	// The returned value must not be modified.
	Task() *aip.Task
	AppendMessage(msg *aip.Message)
	Transition(state aip.TaskState, items ...aip.DataItem)
}

// TaskObserver receives every stream event produced by store mutations.
// Observers run after the task lock is released; events of distinct tasks may arrive concurrently.
type TaskObserver interface {
	ObserveTaskEvent(ctx context.Context, event aip.StreamEvent)
}

// TaskObserverFunc adapts a function to TaskObserver.
type TaskObserverFunc func(ctx context.Context, event aip.StreamEvent)

// ObserveTaskEvent implements TaskObserver
func (f TaskObserverFunc) ObserveTaskEvent(ctx context.Context, event aip.StreamEvent) {
	f(ctx, event)
}
