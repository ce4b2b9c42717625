package aipkit

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/mashiike/aipkit/aip"
)

//go:generate go tool mockgen -source=notification_store.go -destination=mock_notification_store_test.go -package=aipkit

// ErrNotificationConfigNotFound is returned when a notification config does not exist
var ErrNotificationConfigNotFound = errors.New("notification config not found")

// Subscription is a registered notification config and its activation state.
type Subscription struct {
	Config aip.NotificationConfig `json:"config"`
	// Active is set by notification/start. Inactive subscriptions receive nothing.
	Active         bool            `json:"active"`
	NotifyOnStates []aip.TaskState `json:"notifyOnStates,omitempty"`
}

// Matches reports whether a transition into state is delivered to the subscription.
func (s *Subscription) Matches(state aip.TaskState) bool {
	if !s.Active {
		return false
	}
	p := aip.NotificationStartParams{NotifyOnStates: s.NotifyOnStates}
	return p.Matches(state)
}

// NotificationStore persists subscriptions per task.
type NotificationStore interface {
	// Put creates or replaces the subscription identified by sub.Config.TaskID and sub.Config.ID.
	Put(ctx context.Context, sub Subscription) error
	// Get returns one subscription or ErrNotificationConfigNotFound.
	Get(ctx context.Context, taskID, configID string) (*Subscription, error)
	// List returns the subscriptions of a task in registration order.
	List(ctx context.Context, taskID string) ([]Subscription, error)
	// Delete removes one subscription, or all of the task when configID is empty.
	// It reports whether anything was removed.
	Delete(ctx context.Context, taskID, configID string) (bool, error)
}

// InMemoryNotificationStore is a process-local NotificationStore.
type InMemoryNotificationStore struct {
	mu   sync.RWMutex
	subs map[string][]Subscription
}

// NewInMemoryNotificationStore creates an empty store.
func NewInMemoryNotificationStore() *InMemoryNotificationStore {
	return &InMemoryNotificationStore{
		subs: make(map[string][]Subscription),
	}
}

// Put implements NotificationStore
func (s *InMemoryNotificationStore) Put(ctx context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[string][]Subscription)
	}
	sub.NotifyOnStates = slices.Clone(sub.NotifyOnStates)
	list := s.subs[sub.Config.TaskID]
	for i := range list {
		if list[i].Config.ID == sub.Config.ID {
			list[i] = sub
			return nil
		}
	}
	s.subs[sub.Config.TaskID] = append(list, sub)
	return nil
}

// Get implements NotificationStore
func (s *InMemoryNotificationStore) Get(ctx context.Context, taskID, configID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs[taskID] {
		if sub.Config.ID == configID {
			sub.NotifyOnStates = slices.Clone(sub.NotifyOnStates)
			return &sub, nil
		}
	}
	return nil, ErrNotificationConfigNotFound
}

// List implements NotificationStore
func (s *InMemoryNotificationStore) List(ctx context.Context, taskID string) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.subs[taskID]
	out := make([]Subscription, len(list))
	for i, sub := range list {
		sub.NotifyOnStates = slices.Clone(sub.NotifyOnStates)
		out[i] = sub
	}
	return out, nil
}

// Delete implements NotificationStore
func (s *InMemoryNotificationStore) Delete(ctx context.Context, taskID, configID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.subs[taskID]
	if !ok {
		return false, nil
	}
	if configID == "" {
		delete(s.subs, taskID)
		return len(list) > 0, nil
	}
	kept := slices.DeleteFunc(list, func(sub Subscription) bool {
		return sub.Config.ID == configID
	})
	if len(kept) == len(list) {
		return false, nil
	}
	if len(kept) == 0 {
		delete(s.subs, taskID)
	} else {
		s.subs[taskID] = kept
	}
	return true, nil
}
