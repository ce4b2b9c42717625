package aipkit

import "github.com/google/uuid"

// IDGenerator provides unique ID generation for protocol entities
type IDGenerator interface {
	// GenerateTaskID generates a unique task identifier
	GenerateTaskID() string
	// GenerateMessageID generates a unique message identifier
	GenerateMessageID() string
	// GenerateNotificationConfigID generates a unique notification config identifier
	GenerateNotificationConfigID() string
}

// DefaultIDGenerator implements IDGenerator using prefixed UUID v7
type DefaultIDGenerator struct{}

// GenerateTaskID generates a task ID of the form task-<uuid>
func (g *DefaultIDGenerator) GenerateTaskID() string {
	return "task-" + uuid.Must(uuid.NewV7()).String()
}

// GenerateMessageID generates a message ID of the form msg-<uuid>
func (g *DefaultIDGenerator) GenerateMessageID() string {
	return "msg-" + uuid.Must(uuid.NewV7()).String()
}

// GenerateNotificationConfigID generates a notification config ID of the form notif-<uuid>
func (g *DefaultIDGenerator) GenerateNotificationConfigID() string {
	return "notif-" + uuid.Must(uuid.NewV7()).String()
}
