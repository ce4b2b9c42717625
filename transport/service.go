package transport

import (
	"context"

	"github.com/mashiike/aipkit/aip"
)

//go:generate go tool mockgen -source=service.go -destination=./mock_service_test.go -package transport

// Service is what a partner exposes over the protocol.
// Errors returned as *aip.JSONRPCError are written as they are; any other error becomes -32603.
type Service interface {
	// HandleMessage dispatches a message and returns the resulting task (rpc).
	HandleMessage(ctx context.Context, msg *aip.Message) (*aip.Task, error)

	// StreamMessage dispatches a message and returns the events of its task (stream).
	// The channel is closed when the stream ends. An event with Err set is written
	// as an error frame and ends the stream.
	StreamMessage(ctx context.Context, msg *aip.Message) (<-chan aip.StreamEvent, error)

	// SetNotification registers a webhook for a task (notification/set).
	SetNotification(ctx context.Context, config aip.NotificationConfig) (*aip.NotificationConfig, error)

	// GetNotifications lists the webhooks of a task (notification/get).
	GetNotifications(ctx context.Context, params aip.NotificationIDParams) ([]aip.NotificationConfig, error)

	// DeleteNotification removes webhooks of a task (notification/delete).
	DeleteNotification(ctx context.Context, params aip.NotificationIDParams) (*aip.NotificationDeleteResult, error)

	// StartNotification activates a registered webhook (notification/start).
	StartNotification(ctx context.Context, msg *aip.Message) (*aip.Task, error)

	// JoinGroup accepts an invitation to a group (group).
	JoinGroup(ctx context.Context, params aip.GroupJoinParams) (*aip.GroupJoinResult, error)
}
