package aip

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventData is the payload of a stream event and of an rpc result.
// The set of implementations is closed: *Task, *Message, *TaskStatusUpdateEvent and *ProductChunkEvent.
type EventData interface {
	EventType() Type
	isEventData()
}

// EventType implements EventData.
func (*Task) EventType() Type { return TypeTask }
func (*Task) isEventData()    {}

// EventType implements EventData.
func (*Message) EventType() Type { return TypeMessage }
func (*Message) isEventData()    {}

// TaskStatusUpdateEvent announces a status transition.
type TaskStatusUpdateEvent struct {
	Type      Type       `json:"type"`
	TaskID    string     `json:"taskId"`
	Status    TaskStatus `json:"status"`
	SessionID string     `json:"sessionId"`
}

// EventType implements EventData.
func (*TaskStatusUpdateEvent) EventType() Type { return TypeStatusUpdate }
func (*TaskStatusUpdateEvent) isEventData()    {}

// ProductChunkEvent delivers a product, or part of one, before the task finishes.
type ProductChunkEvent struct {
	Type    Type    `json:"type"`
	TaskID  string  `json:"taskId"`
	Product Product `json:"product"`
	// Append adds the chunk's items to the product with the same id instead of replacing it.
	Append bool `json:"append"`
	// LastChunk marks the end of the product stream.
	LastChunk bool   `json:"lastChunk"`
	SessionID string `json:"sessionId"`
}

// EventType implements EventData.
func (*ProductChunkEvent) EventType() Type { return TypeProductChunk }
func (*ProductChunkEvent) isEventData()    {}

// StreamEvent is a sequenced out-of-band update. EventSeq starts at 1 per task.
type StreamEvent struct {
	EventSeq  int64     `json:"eventSeq"`
	EventData EventData `json:"eventData"`

	// Err ends a stream with a JSON-RPC error frame in place of an event.
	Err *JSONRPCError `json:"-"`
}

// UnmarshalJSON decodes the payload according to its type field.
func (e *StreamEvent) UnmarshalJSON(b []byte) error {
	var raw struct {
		EventSeq  int64           `json:"eventSeq"`
		EventData json.RawMessage `json:"eventData"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	data, err := UnmarshalEventData(raw.EventData)
	if err != nil {
		return fmt.Errorf("eventData: %w", err)
	}
	e.EventSeq = raw.EventSeq
	e.EventData = data
	return nil
}

// TaskID returns the id of the task the event belongs to.
func (e *StreamEvent) TaskID() string {
	switch d := e.EventData.(type) {
	case *Task:
		return d.ID
	case *Message:
		return d.TaskID
	case *TaskStatusUpdateEvent:
		return d.TaskID
	case *ProductChunkEvent:
		return d.TaskID
	default:
		return ""
	}
}

// IsTerminal reports whether the event carries a terminal task state.
func (e *StreamEvent) IsTerminal() bool {
	switch d := e.EventData.(type) {
	case *Task:
		return d.Status.State.IsTerminal()
	case *TaskStatusUpdateEvent:
		return d.Status.State.IsTerminal()
	default:
		return false
	}
}

// UnmarshalEventData peeks the type field and decodes the matching payload.
func UnmarshalEventData(b []byte) (EventData, error) {
	var probe struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, err
	}
	var data EventData
	switch probe.Type {
	case TypeTask:
		data = &Task{}
	case TypeMessage:
		data = &Message{}
	case TypeStatusUpdate:
		data = &TaskStatusUpdateEvent{}
	case TypeProductChunk:
		data = &ProductChunkEvent{}
	case "":
		return nil, errors.New("type is required")
	default:
		return nil, fmt.Errorf("unknown event data type %q", probe.Type)
	}
	if err := json.Unmarshal(b, data); err != nil {
		return nil, err
	}
	return data, nil
}

// UnmarshalResult decodes an rpc result, which is either a Task or a Message.
func UnmarshalResult(b []byte) (EventData, error) {
	data, err := UnmarshalEventData(b)
	if err != nil {
		return nil, err
	}
	switch data.(type) {
	case *Task, *Message:
		return data, nil
	default:
		return nil, fmt.Errorf("unexpected result type %q", data.EventType())
	}
}

// NewStatusUpdateEvent creates a status-update payload for the task's current status.
func NewStatusUpdateEvent(task *Task) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{
		Type:      TypeStatusUpdate,
		TaskID:    task.ID,
		Status:    task.Status.Clone(),
		SessionID: task.SessionID,
	}
}

// NewProductChunkEvent creates a product-chunk payload.
func NewProductChunkEvent(task *Task, product Product, appendChunk, lastChunk bool) *ProductChunkEvent {
	return &ProductChunkEvent{
		Type:      TypeProductChunk,
		TaskID:    task.ID,
		Product:   product.Clone(),
		Append:    appendChunk,
		LastChunk: lastChunk,
		SessionID: task.SessionID,
	}
}

// =============================================================================
// COPY HELPERS
// =============================================================================

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Status = t.Status.Clone()
	c.Products = cloneSlice(t.Products, Product.Clone)
	c.MessageHistory = cloneSlice(t.MessageHistory, Message.Clone)
	c.StatusHistory = cloneSlice(t.StatusHistory, TaskStatus.Clone)
	return &c
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	c := m
	if m.Mentions != nil {
		mentions := Mentions{All: m.Mentions.All, IDs: cloneSlice(m.Mentions.IDs, func(s string) string { return s })}
		c.Mentions = &mentions
	}
	c.CommandParams = cloneMap(m.CommandParams)
	c.DataItems = cloneSlice(m.DataItems, DataItem.Clone)
	return c
}

// Clone returns a deep copy of the status.
func (ts TaskStatus) Clone() TaskStatus {
	c := ts
	c.DataItems = cloneSlice(ts.DataItems, DataItem.Clone)
	return c
}

// Clone returns a deep copy of the product.
func (p Product) Clone() Product {
	c := p
	c.DataItems = cloneSlice(p.DataItems, DataItem.Clone)
	return c
}

// Clone returns a deep copy of the item.
func (d DataItem) Clone() DataItem {
	c := d
	c.Data = cloneMap(d.Data)
	c.Metadata = cloneMap(d.Metadata)
	return c
}

func cloneSlice[T any](s []T, fn func(T) T) []T {
	if s == nil {
		return nil
	}
	c := make([]T, len(s))
	for i, v := range s {
		c[i] = fn(v)
	}
	return c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := maps.Clone(m)
	for k, v := range c {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		return cloneSlice(v, cloneValue)
	default:
		return v
	}
}
