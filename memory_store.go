package aipkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Songmu/flextime"
	"github.com/mashiike/aipkit/aip"
)

// InMemoryTaskStore is a process-local TaskStore.
//
// Committed task records are never modified in place: each mutation works on a copy
// which replaces the record when the mutation succeeds. Every mutation appends its
// payloads to Events while the task lock is held, so event order matches mutation order.
type InMemoryTaskStore struct {
	// Locker serializes mutations per task. Defaults to an InMemoryTaskLocker.
	Locker TaskLocker
	// Events receives the stream events of every mutation. Optional.
	Events EventLog
	// MaxProductsBytes is the default products ceiling. 0 disables the check.
	MaxProductsBytes int
	Logger           *slog.Logger

	initOnce  sync.Once
	mu        sync.RWMutex
	tasks     map[string]*taskRecord
	observers []TaskObserver
}

type taskRecord struct {
	task             *aip.Task
	maxProductsBytes int
}

// NewInMemoryTaskStore creates a store with an in-memory locker and event log.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		Locker: NewInMemoryTaskLocker(),
		Events: NewInMemoryEventLog(),
		Logger: slog.Default(),
	}
}

func (s *InMemoryTaskStore) init() {
	s.initOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.tasks == nil {
			s.tasks = make(map[string]*taskRecord)
		}
		if s.Locker == nil {
			s.Locker = NewInMemoryTaskLocker()
		}
	})
}

func (s *InMemoryTaskStore) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// AddObserver registers an observer of stream events.
func (s *InMemoryTaskStore) AddObserver(o TaskObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Get implements TaskStore
func (s *InMemoryTaskStore) Get(ctx context.Context, taskID string) (*aip.Task, error) {
	s.init()
	s.mu.RLock()
	rec, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrTaskNotFound
	}
	return rec.task.Clone(), nil
}

// Create implements TaskStore
func (s *InMemoryTaskStore) Create(ctx context.Context, msg *aip.Message, optFns ...func(*CreateTaskOptions)) (*aip.Task, error) {
	if msg == nil || msg.TaskID == "" {
		return nil, ErrMissingTaskID
	}
	s.init()
	opts := &CreateTaskOptions{
		InitialState: aip.TaskStateAccepted,
	}
	for _, fn := range optFns {
		fn(opts)
	}
	if opts.InitialState == "" {
		opts.InitialState = aip.TaskStateAccepted
	}

	taskID := msg.TaskID
	unlock, err := s.Locker.Lock(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("lock task %s: %w", taskID, err)
	}
	defer unlock()

	s.mu.RLock()
	_, exists := s.tasks[taskID]
	s.mu.RUnlock()
	if exists {
		return nil, ErrDuplicateTask
	}

	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = taskID
	}
	status := aip.TaskStatus{
		State:          opts.InitialState,
		StateChangedAt: aip.Now(),
	}
	for _, item := range opts.DataItems {
		status.DataItems = append(status.DataItems, item.Clone())
	}
	task := &aip.Task{
		Type:           aip.TypeTask,
		ID:             taskID,
		SenderID:       opts.SenderID,
		Status:         status,
		MessageHistory: []aip.Message{msg.Clone()},
		StatusHistory:  []aip.TaskStatus{status.Clone()},
		GroupID:        msg.GroupID,
		SessionID:      sessionID,
	}

	s.mu.Lock()
	s.tasks[taskID] = &taskRecord{task: task, maxProductsBytes: opts.MaxProductsBytes}
	s.mu.Unlock()

	events := s.appendEvents(ctx, taskID, []aip.EventData{task.Clone()})
	unlock()
	s.notify(ctx, events)

	s.logger().DebugContext(ctx, "task created", "taskID", taskID, "state", opts.InitialState)
	return task.Clone(), nil
}

// Transition implements TaskStore
func (s *InMemoryTaskStore) Transition(ctx context.Context, taskID string, state aip.TaskState, items ...aip.DataItem) (*aip.Task, error) {
	return s.update(ctx, taskID, func(tx *storeTx) error {
		tx.Transition(state, items...)
		return nil
	})
}

// AppendMessage implements TaskStore
func (s *InMemoryTaskStore) AppendMessage(ctx context.Context, taskID string, msg *aip.Message) error {
	_, err := s.update(ctx, taskID, func(tx *storeTx) error {
		tx.AppendMessage(msg)
		return nil
	})
	if errors.Is(err, ErrTaskNotFound) {
		return nil
	}
	return err
}

// SetProducts implements TaskStore
func (s *InMemoryTaskStore) SetProducts(ctx context.Context, taskID string, products []aip.Product) (*aip.Task, error) {
	return s.update(ctx, taskID, func(tx *storeTx) error {
		tx.setProducts(products)
		return nil
	})
}

// AppendProductChunk implements TaskStore
func (s *InMemoryTaskStore) AppendProductChunk(ctx context.Context, taskID string, product aip.Product, appendChunk, lastChunk bool) (*aip.Task, error) {
	return s.update(ctx, taskID, func(tx *storeTx) error {
		tx.appendProductChunk(product, appendChunk, lastChunk)
		return nil
	})
}

// Update implements TaskStore
func (s *InMemoryTaskStore) Update(ctx context.Context, taskID string, fn func(tx TaskTx) error) (*aip.Task, error) {
	return s.update(ctx, taskID, func(tx *storeTx) error {
		return fn(tx)
	})
}

func (s *InMemoryTaskStore) update(ctx context.Context, taskID string, fn func(tx *storeTx) error) (*aip.Task, error) {
	s.init()
	unlock, err := s.Locker.Lock(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("lock task %s: %w", taskID, err)
	}
	defer unlock()

	s.mu.RLock()
	rec, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrTaskNotFound
	}

	limit := rec.maxProductsBytes
	if limit == 0 {
		limit = s.MaxProductsBytes
	}
	tx := &storeTx{task: rec.task.Clone(), limit: limit}
	if err := fn(tx); err != nil {
		return nil, err
	}
	if len(tx.payloads) == 0 {
		return tx.task, nil
	}

	s.mu.Lock()
	s.tasks[taskID] = &taskRecord{task: tx.task, maxProductsBytes: rec.maxProductsBytes}
	s.mu.Unlock()

	events := s.appendEvents(ctx, taskID, tx.payloads)
	unlock()
	s.notify(ctx, events)

	return tx.task.Clone(), nil
}

func (s *InMemoryTaskStore) appendEvents(ctx context.Context, taskID string, payloads []aip.EventData) []aip.StreamEvent {
	ctx = context.WithoutCancel(ctx)
	events := make([]aip.StreamEvent, 0, len(payloads))
	for _, data := range payloads {
		if s.Events == nil {
			events = append(events, aip.StreamEvent{EventData: data})
			continue
		}
		ev, err := s.Events.Append(ctx, taskID, data)
		if err != nil {
			s.logger().WarnContext(ctx, "failed to append stream event", "taskID", taskID, "type", data.EventType(), "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (s *InMemoryTaskStore) notify(ctx context.Context, events []aip.StreamEvent) {
	s.mu.RLock()
	observers := append([]TaskObserver(nil), s.observers...)
	s.mu.RUnlock()
	if len(observers) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		for _, o := range observers {
			o.ObserveTaskEvent(ctx, ev)
		}
	}
}

// storeTx implements TaskTx over a working copy of the task.
type storeTx struct {
	task     *aip.Task
	limit    int
	payloads []aip.EventData
}

func (tx *storeTx) Task() *aip.Task {
	return tx.task
}

func (tx *storeTx) AppendMessage(msg *aip.Message) {
	if msg == nil {
		return
	}
	tx.task.MessageHistory = append(tx.task.MessageHistory, msg.Clone())
	payload := msg.Clone()
	tx.payloads = append(tx.payloads, &payload)
}

func (tx *storeTx) Transition(state aip.TaskState, items ...aip.DataItem) {
	status := aip.TaskStatus{
		State:          state,
		StateChangedAt: nextStateChangedAt(tx.task.Status.StateChangedAt),
	}
	for _, item := range items {
		status.DataItems = append(status.DataItems, item.Clone())
	}
	tx.task.Status = status
	tx.task.StatusHistory = append(tx.task.StatusHistory, status.Clone())
	tx.payloads = append(tx.payloads, aip.NewStatusUpdateEvent(tx.task))
}

func (tx *storeTx) setProducts(products []aip.Product) {
	if !tx.acceptProducts(products) {
		return
	}
	next := make([]aip.Product, len(products))
	for i, p := range products {
		next[i] = p.Clone()
	}
	tx.task.Products = next
	for _, p := range next {
		tx.payloads = append(tx.payloads, aip.NewProductChunkEvent(tx.task, p, false, true))
	}
}

func (tx *storeTx) appendProductChunk(product aip.Product, appendChunk, lastChunk bool) {
	chunk := product.Clone()
	next := append([]aip.Product(nil), tx.task.Products...)
	idx := -1
	for i := range next {
		if next[i].ID == chunk.ID {
			idx = i
			break
		}
	}
	switch {
	case idx < 0:
		next = append(next, chunk.Clone())
	case appendChunk:
		items := append([]aip.DataItem(nil), next[idx].DataItems...)
		next[idx].DataItems = append(items, chunk.Clone().DataItems...)
	default:
		next[idx] = chunk.Clone()
	}
	if !tx.acceptProducts(next) {
		return
	}
	tx.task.Products = next
	tx.payloads = append(tx.payloads, aip.NewProductChunkEvent(tx.task, chunk, appendChunk, lastChunk))
}

// acceptProducts enforces the products ceiling, failing the task when it is exceeded.
func (tx *storeTx) acceptProducts(products []aip.Product) bool {
	if tx.limit <= 0 {
		return true
	}
	size, err := aip.ProductsByteSize(products)
	if err != nil {
		tx.Transition(aip.TaskStateFailed, aip.NewTextItem(productsSizeErrorText))
		return false
	}
	if size > tx.limit {
		tx.Transition(aip.TaskStateFailed, aip.NewTextItem(fmt.Sprintf(productsSizeExceededFormat, size, tx.limit)))
		return false
	}
	return true
}

// nextStateChangedAt returns the current timestamp, clamped so that it never precedes prev.
func nextStateChangedAt(prev string) string {
	now := flextime.Now()
	if prevAt, err := aip.ParseTimestamp(prev); err == nil && now.Before(prevAt) {
		return prev
	}
	return aip.FormatTimestamp(now)
}
