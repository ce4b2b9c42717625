package aipkit

import (
	"context"
	"errors"
	"sync"

	"github.com/mashiike/aipkit/aip"
)

// EventLog error variables
var (
	// ErrReplayUnavailable is returned when events after the requested sequence are no longer retained
	ErrReplayUnavailable = errors.New("stream replay unavailable")
)

// DefaultMaxEventsPerTask is the retention window of InMemoryEventLog
const DefaultMaxEventsPerTask = 1000

// EventLog stores the sequenced stream events of each task.
// Sequence numbers start at 1 per task and increase by one.
type EventLog interface {
	// Append assigns the next sequence number of taskID to data.
	Append(ctx context.Context, taskID string, data aip.EventData) (aip.StreamEvent, error)
	// Load returns up to limit events with EventSeq greater than afterSeq. limit <= 0 means no limit.
	// It returns ErrReplayUnavailable when some of those events have been discarded.
	Load(ctx context.Context, taskID string, afterSeq int64, limit int) ([]aip.StreamEvent, error)
	// LastSeq returns the sequence number of the newest event of taskID, or 0 when there is none.
	LastSeq(ctx context.Context, taskID string) (int64, error)
}

// InMemoryEventLog keeps a bounded window of events per task.
type InMemoryEventLog struct {
	MaxEventsPerTask int

	mu     sync.RWMutex
	events map[string]*eventWindow
}

type eventWindow struct {
	events  []aip.StreamEvent
	lastSeq int64
}

// NewInMemoryEventLog creates an event log with DefaultMaxEventsPerTask retention.
func NewInMemoryEventLog() *InMemoryEventLog {
	return &InMemoryEventLog{
		MaxEventsPerTask: DefaultMaxEventsPerTask,
		events:           make(map[string]*eventWindow),
	}
}

// Append implements EventLog
func (l *InMemoryEventLog) Append(ctx context.Context, taskID string, data aip.EventData) (aip.StreamEvent, error) {
	if err := ctx.Err(); err != nil {
		return aip.StreamEvent{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.events == nil {
		l.events = make(map[string]*eventWindow)
	}
	w, ok := l.events[taskID]
	if !ok {
		w = &eventWindow{}
		l.events[taskID] = w
	}
	w.lastSeq++
	ev := aip.StreamEvent{EventSeq: w.lastSeq, EventData: data}
	w.events = append(w.events, ev)
	if l.MaxEventsPerTask > 0 && len(w.events) > l.MaxEventsPerTask {
		w.events = append([]aip.StreamEvent(nil), w.events[len(w.events)-l.MaxEventsPerTask:]...)
	}
	return ev, nil
}

// Load implements EventLog
func (l *InMemoryEventLog) Load(ctx context.Context, taskID string, afterSeq int64, limit int) ([]aip.StreamEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if afterSeq < 0 {
		afterSeq = 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.events[taskID]
	if !ok || afterSeq >= w.lastSeq {
		return nil, nil
	}
	if len(w.events) == 0 || w.events[0].EventSeq > afterSeq+1 {
		return nil, ErrReplayUnavailable
	}
	start := int(afterSeq + 1 - w.events[0].EventSeq)
	end := len(w.events)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return append([]aip.StreamEvent(nil), w.events[start:end]...), nil
}

// LastSeq implements EventLog
func (l *InMemoryEventLog) LastSeq(ctx context.Context, taskID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if w, ok := l.events[taskID]; ok {
		return w.lastSeq, nil
	}
	return 0, nil
}
