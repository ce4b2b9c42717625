package aipkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/mashiike/aipkit/aip"
	"github.com/mashiike/aipkit/transport"
)

// RemotePartner is a CommandHandler that relays every message to an upstream partner
// and mirrors the upstream task into the local store: status, products and partner messages.
type RemotePartner struct {
	Store  TaskStore
	Logger *slog.Logger

	client *transport.Client
}

// NewRemotePartner creates a relay to the partner at endpoint.
// The client's leader id, when set, becomes the sender of relayed messages.
func NewRemotePartner(store TaskStore, endpoint string, opts ...transport.ClientOption) *RemotePartner {
	return &RemotePartner{
		Store:  store,
		Logger: slog.Default(),
		client: transport.NewClient(endpoint, opts...),
	}
}

func (r *RemotePartner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Handlers relays every command, including messages without one, to the upstream partner.
func (r *RemotePartner) Handlers() CommandHandlers {
	return CommandHandlers{
		Start:    r,
		Get:      r,
		Cancel:   r,
		Complete: r,
		Continue: r,
		Message:  r,
	}
}

// HandleCommand implements CommandHandler
func (r *RemotePartner) HandleCommand(ctx context.Context, msg *aip.Message, task *aip.Task) (*aip.Task, error) {
	out := msg.Clone()
	if id := r.client.LeaderID(); id != "" {
		out.SenderRole = aip.RoleLeader
		out.SenderID = id
	}
	result, err := r.client.SendMessage(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("relay %q to upstream partner: %w", msg.Command, err)
	}
	upstream, ok := result.(*aip.Task)
	if !ok {
		return nil, fmt.Errorf("upstream partner replied with %s instead of a task", result.EventType())
	}
	r.logger().DebugContext(ctx, "relayed message", "taskID", msg.TaskID, "command", msg.Command, "upstreamState", upstream.Status.State)

	switch {
	case task == nil:
		_, err := r.Store.Create(ctx, msg, func(opts *CreateTaskOptions) {
			opts.InitialState = upstream.Status.State
			opts.DataItems = upstream.Status.DataItems
			opts.SenderID = upstream.SenderID
		})
		if err != nil && !errors.Is(err, ErrDuplicateTask) {
			return nil, err
		}
	case msg.Command != aip.CommandGet:
		if err := r.Store.AppendMessage(ctx, msg.TaskID, msg); err != nil {
			return nil, err
		}
	}
	return r.mirror(ctx, msg.TaskID, upstream)
}

// mirror copies the upstream status, products and partner messages into the local task.
func (r *RemotePartner) mirror(ctx context.Context, taskID string, upstream *aip.Task) (*aip.Task, error) {
	var terminal bool
	local, err := r.Store.Update(ctx, taskID, func(tx TaskTx) error {
		current := tx.Task()
		if current.Status.State.IsTerminal() {
			terminal = true
			return nil
		}
		seen := make(map[string]bool, len(current.MessageHistory))
		for _, m := range current.MessageHistory {
			seen[m.ID] = true
		}
		for _, m := range upstream.MessageHistory {
			if m.SenderRole == aip.RolePartner && !seen[m.ID] {
				tx.AppendMessage(&m)
			}
		}
		if current.Status.State != upstream.Status.State {
			tx.Transition(upstream.Status.State, upstream.Status.DataItems...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if terminal {
		r.logger().DebugContext(ctx, "local task is terminal, upstream state not mirrored", "taskID", taskID, "upstreamState", upstream.Status.State)
		return local, nil
	}
	if len(upstream.Products) > 0 && !reflect.DeepEqual(local.Products, upstream.Products) {
		return r.Store.SetProducts(ctx, taskID, upstream.Products)
	}
	return local, nil
}
