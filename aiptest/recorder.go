package aiptest

import (
	"context"
	"slices"
	"sync"

	"github.com/mashiike/aipkit/aip"
)

// EventRecorder is an aipkit.TaskObserver that records stream events,
// similar to how httptest.ResponseRecorder records a response.
type EventRecorder struct {
	mu      sync.Mutex
	events  []aip.StreamEvent
	changed chan struct{}
}

// NewEventRecorder creates an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{changed: make(chan struct{})}
}

// ObserveTaskEvent implements aipkit.TaskObserver
func (r *EventRecorder) ObserveTaskEvent(ctx context.Context, event aip.StreamEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	close(r.changed)
	r.changed = make(chan struct{})
}

// Events returns every recorded event of taskID in arrival order. An empty taskID selects all tasks.
func (r *EventRecorder) Events(taskID string) []aip.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(taskID)
}

func (r *EventRecorder) filter(taskID string) []aip.StreamEvent {
	out := make([]aip.StreamEvent, 0, len(r.events))
	for _, e := range r.events {
		if taskID == "" || eventTaskID(e) == taskID {
			out = append(out, e)
		}
	}
	return out
}

// States returns the states announced by the task snapshots and status updates of taskID.
func (r *EventRecorder) States(taskID string) []aip.TaskState {
	var states []aip.TaskState
	for _, e := range r.Events(taskID) {
		if state, ok := EventState(e); ok {
			states = append(states, state)
		}
	}
	return states
}

// EventState returns the task state carried by e, if any.
func EventState(e aip.StreamEvent) (aip.TaskState, bool) {
	switch d := e.EventData.(type) {
	case *aip.TaskStatusUpdateEvent:
		return d.Status.State, true
	case *aip.Task:
		return d.Status.State, true
	}
	return "", false
}

// ProductChunks returns the product chunks recorded for taskID.
func (r *EventRecorder) ProductChunks(taskID string) []*aip.ProductChunkEvent {
	var chunks []*aip.ProductChunkEvent
	for _, e := range r.Events(taskID) {
		if c, ok := e.EventData.(*aip.ProductChunkEvent); ok {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// WaitForState blocks until an event of taskID announces state or ctx is done.
func (r *EventRecorder) WaitForState(ctx context.Context, taskID string, state aip.TaskState) error {
	for {
		r.mu.Lock()
		changed := r.changed
		found := slices.ContainsFunc(r.filter(taskID), func(e aip.StreamEvent) bool {
			got, ok := EventState(e)
			return ok && got == state
		})
		r.mu.Unlock()
		if found {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reset discards every recorded event.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func eventTaskID(e aip.StreamEvent) string {
	switch d := e.EventData.(type) {
	case *aip.TaskStatusUpdateEvent:
		return d.TaskID
	case *aip.ProductChunkEvent:
		return d.TaskID
	case *aip.Task:
		return d.ID
	case *aip.Message:
		return d.TaskID
	}
	return ""
}
