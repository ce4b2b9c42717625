package aipkit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mashiike/aipkit/aip"
)

// DeliveryQueue error variables
var (
	// ErrDeliveryQueueClosed is returned when attempting to use a closed delivery queue
	ErrDeliveryQueueClosed = errors.New("delivery queue is closed")
	// ErrDeliveryQueueFull is returned when a bounded queue has no room for a delivery
	ErrDeliveryQueueFull = errors.New("delivery queue is full")
)

// DeliveryConfig describes one notification to deliver.
type DeliveryConfig struct {
	TaskID   string
	ConfigID string
	Event    aip.StreamEvent
	// Attempt counts previous delivery attempts. 0 for a fresh delivery.
	Attempt int
}

// Delivery is a dequeued notification.
type Delivery struct {
	TaskID   string
	ConfigID string
	Event    aip.StreamEvent
	Attempt  int

	// CompleteFunc acknowledges the delivery.
	CompleteFunc func() error
	// FailFunc releases the delivery without acknowledging it.
	FailFunc func() error
}

// DeliveryQueue provides an interface for notification delivery scheduling
type DeliveryQueue interface {
	// Enqueue adds a new delivery to the queue. It must not wait for queue capacity.
	// Deliveries with Attempt > 0 are retries and may be made visible later.
	Enqueue(ctx context.Context, config DeliveryConfig) error

	// Dequeue retrieves a delivery from the queue, blocking until one is available
	Dequeue(ctx context.Context) (*Delivery, error)

	// Close gracefully shuts down the queue
	Close() error
}

// DefaultRetryDelay is the retry delay of the in-memory queue a Server creates.
const DefaultRetryDelay = time.Second

// InMemoryDeliveryQueue is a simple in-memory implementation of DeliveryQueue using channels.
// Enqueue never blocks: a full buffer rejects the delivery with ErrDeliveryQueueFull.
type InMemoryDeliveryQueue struct {
	// RetryDelay holds back retried deliveries before they become visible.
	RetryDelay time.Duration
	Logger     *slog.Logger

	deliveries chan *Delivery
	closed     bool
	mu         sync.RWMutex
}

// NewInMemoryDeliveryQueue creates a new in-memory delivery queue with the specified buffer size
func NewInMemoryDeliveryQueue(size int) *InMemoryDeliveryQueue {
	return &InMemoryDeliveryQueue{
		deliveries: make(chan *Delivery, size),
	}
}

func (q *InMemoryDeliveryQueue) logger() *slog.Logger {
	if q.Logger == nil {
		return slog.Default()
	}
	return q.Logger
}

// Enqueue adds a new delivery to the queue
func (q *InMemoryDeliveryQueue) Enqueue(ctx context.Context, config DeliveryConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := &Delivery{
		TaskID:   config.TaskID,
		ConfigID: config.ConfigID,
		Event:    config.Event,
		Attempt:  config.Attempt,
		// nothing to acknowledge in memory
		CompleteFunc: func() error { return nil },
		FailFunc:     func() error { return nil },
	}
	if config.Attempt == 0 || q.RetryDelay <= 0 {
		return q.push(d)
	}

	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrDeliveryQueueClosed
	}
	time.AfterFunc(q.RetryDelay, func() {
		if err := q.push(d); err != nil {
			q.logger().Warn("retried notification dropped", "taskID", d.TaskID, "configID", d.ConfigID, "attempt", d.Attempt, "error", err)
		}
	})
	return nil
}

func (q *InMemoryDeliveryQueue) push(d *Delivery) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrDeliveryQueueClosed
	}
	select {
	case q.deliveries <- d:
		return nil
	default:
		return ErrDeliveryQueueFull
	}
}

// Dequeue retrieves a delivery from the queue, blocking until one is available
func (q *InMemoryDeliveryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	select {
	case d, ok := <-q.deliveries:
		if !ok {
			return nil, ErrDeliveryQueueClosed
		}
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close gracefully shuts down the queue
func (q *InMemoryDeliveryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		close(q.deliveries)
		q.closed = true
	}
	return nil
}
