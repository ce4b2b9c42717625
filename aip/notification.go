package aip

import (
	"errors"
	"fmt"
	"net/url"
)

// =============================================================================
// NOTIFICATION TYPES
// =============================================================================

// NotificationConfig is a webhook subscription for a task.
// It is the params of notification/set and the result of notification/set and notification/get.
type NotificationConfig struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url"`
	Token  string `json:"token"`
	TaskID string `json:"taskId"`
}

// NotificationIDParams are the params of notification/get and notification/delete.
// An empty NotificationConfigID selects every config of the task.
type NotificationIDParams struct {
	TaskID               string `json:"taskId"`
	NotificationConfigID string `json:"notificationConfigId,omitempty"`
}

// NotificationDeleteResult is the result of notification/delete.
type NotificationDeleteResult struct {
	Success bool `json:"success"`
}

// NotificationStartParams are the commandParams of the message sent with notification/start.
// An empty NotifyOnStates subscribes to every state.
type NotificationStartParams struct {
	NotificationConfigID string      `json:"notificationConfigId"`
	NotifyOnStates       []TaskState `json:"notifyOnStates,omitempty"`
}

// Validate validates a NotificationConfig structure.
func (c *NotificationConfig) Validate() error {
	if c.TaskID == "" {
		return errors.New("taskId is required")
	}
	if c.URL == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url host is required")
	}
	return nil
}

// Validate validates a NotificationIDParams structure.
func (p *NotificationIDParams) Validate() error {
	if p.TaskID == "" {
		return errors.New("taskId is required")
	}
	return nil
}

// Validate validates a NotificationStartParams structure.
func (p *NotificationStartParams) Validate() error {
	if p.NotificationConfigID == "" {
		return errors.New("notificationConfigId is required")
	}
	for i, state := range p.NotifyOnStates {
		if !state.IsValid() {
			return fmt.Errorf("notifyOnStates[%d]: invalid task state %q, must be one of: %s", i, state, commasJoin(validTaskStates()))
		}
	}
	return nil
}

// Matches reports whether a transition into state should be notified.
func (p *NotificationStartParams) Matches(state TaskState) bool {
	if len(p.NotifyOnStates) == 0 {
		return true
	}
	for _, s := range p.NotifyOnStates {
		if s == state {
			return true
		}
	}
	return false
}
