package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mashiike/aipkit/aip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestClient(t *testing.T, options ...HandlerOption) (*Client, *MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockService := NewMockService(ctrl)
	server := httptest.NewServer(NewHandler(mockService, options...))
	t.Cleanup(server.Close)
	return NewClient(server.URL, WithLeaderID("leader-1")), mockService
}

func TestClient_SendMessage(t *testing.T) {
	client, mockService := newTestClient(t)
	ctx := context.Background()

	mockService.EXPECT().HandleMessage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, msg *aip.Message) (*aip.Task, error) {
			task := aip.NewTask(msg.TaskID, msg.SessionID, aip.TaskStateAwaitingCompletion)
			return &task, nil
		})

	msg := client.NewMessage("T1", "S1", aip.CommandStart, "hello")
	result, err := client.SendMessage(ctx, msg)
	require.NoError(t, err)
	task, ok := result.(*aip.Task)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, "T1", task.ID)
	assert.Equal(t, "S1", task.SessionID)
	assert.Equal(t, aip.TaskStateAwaitingCompletion, task.Status.State)
}

func TestClient_NewMessage(t *testing.T) {
	client := NewClient("http://partner.example.com", WithLeaderID("leader-1"))

	msg := client.NewMessage("T1", "S1", aip.CommandGet, "", func(o *aip.MessageOptions) {
		o.TaskID = "ignored"
		o.GroupID = "g1"
	})
	require.NoError(t, msg.Validate())
	assert.True(t, strings.HasPrefix(msg.ID, "msg-"), msg.ID)
	assert.Equal(t, aip.RoleLeader, msg.SenderRole)
	assert.Equal(t, "leader-1", msg.SenderID)
	assert.Equal(t, "T1", msg.TaskID, "task id is not overridden by options")
	assert.Equal(t, "S1", msg.SessionID)
	assert.Equal(t, "g1", msg.GroupID)
	assert.Equal(t, aip.CommandGet, msg.Command)
	assert.Equal(t, "get", msg.Text(), "a command without text carries its name")
}

func TestClient_Commands(t *testing.T) {
	client, mockService := newTestClient(t)
	ctx := context.Background()

	var commands []aip.TaskCommand
	mockService.EXPECT().HandleMessage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, msg *aip.Message) (*aip.Task, error) {
			commands = append(commands, msg.Command)
			assert.Equal(t, "leader-1", msg.SenderID)
			task := aip.NewTask(msg.TaskID, msg.SessionID, aip.TaskStateWorking)
			return &task, nil
		}).Times(5)

	task, err := client.StartTask(ctx, "S1", "write a haiku", func(o *aip.MessageOptions) {
		o.CommandParams = map[string]any{"timeout": 30}
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(task.ID, "task-"), task.ID)

	_, err = client.ContinueTask(ctx, task.ID, "S1", "more")
	require.NoError(t, err)
	_, err = client.GetTask(ctx, task.ID, "S1")
	require.NoError(t, err)
	_, err = client.CompleteTask(ctx, task.ID, "S1")
	require.NoError(t, err)
	_, err = client.CancelTask(ctx, task.ID, "S1")
	require.NoError(t, err)

	assert.Equal(t, []aip.TaskCommand{
		aip.CommandStart, aip.CommandContinue, aip.CommandGet, aip.CommandComplete, aip.CommandCancel,
	}, commands)
}

func TestClient_ProtocolError(t *testing.T) {
	client, mockService := newTestClient(t)

	mockService.EXPECT().HandleMessage(gomock.Any(), gomock.Any()).Return(nil, aip.NewJSONRPCTaskNotFoundError("T404"))

	_, err := client.GetTask(context.Background(), "T404", "S1")
	var rpcErr *aip.JSONRPCError
	require.True(t, errors.As(err, &rpcErr), "got %v", err)
	assert.Equal(t, aip.ErrorCodeTaskNotFound, rpcErr.Code)
}

func TestClient_ResponseIDMismatch(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr func(t *testing.T, err error)
	}{
		{
			name: "different id",
			body: `{"jsonrpc":"2.0","id":"req-other","result":{"type":"task","id":"T1","sessionId":"S1","status":{"state":"working","stateChangedAt":"2025-06-01T09:00:00Z"}}}`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrResponseIDMismatch)
			},
		},
		{
			name: "error field wins over id",
			body: `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`,
			wantErr: func(t *testing.T, err error) {
				var rpcErr *aip.JSONRPCError
				require.True(t, errors.As(err, &rpcErr), "got %v", err)
				assert.Equal(t, aip.ErrorCodeParseError, rpcErr.Code)
				assert.NotErrorIs(t, err, ErrResponseIDMismatch)
			},
		},
		{
			name: "not JSON",
			body: `<html>bad gateway</html>`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "failed to parse JSON-RPC response")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(server.URL, WithLeaderID("leader-1"))
			_, err := client.GetTask(context.Background(), "T1", "S1")
			require.Error(t, err)
			tt.wantErr(t, err)
		})
	}
}

func TestClient_RequestHeaders(t *testing.T) {
	var got http.Header
	var request struct {
		ID     string `json:"id"`
		Method string `json:"method"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(aip.NewJSONRPCResponse(aip.NotificationDeleteResult{Success: true}, request.ID))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithBearerToken("tok"), WithHeader("X-Trace", "abc"), WithUserAgent("leader/1.0"))
	removed, err := client.DeleteNotification(context.Background(), "T1", "")
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "abc", got.Get("X-Trace"))
	assert.Equal(t, "leader/1.0", got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, aip.MethodNotificationDelete, request.Method)
	assert.True(t, strings.HasPrefix(request.ID, "req-"), request.ID)
}

func TestClient_Stream(t *testing.T) {
	client, mockService := newTestClient(t)
	ctx := context.Background()

	task := aip.NewTask("T1", "S1", aip.TaskStateAccepted)
	completed := task
	completed.Status = aip.TaskStatus{State: aip.TaskStateCompleted}
	mockService.EXPECT().StreamMessage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, msg *aip.Message) (<-chan aip.StreamEvent, error) {
			assert.Equal(t, aip.CommandStart, msg.Command)
			ch := make(chan aip.StreamEvent, 2)
			ch <- aip.StreamEvent{EventSeq: 1, EventData: &task}
			ch <- aip.StreamEvent{EventSeq: 2, EventData: aip.NewStatusUpdateEvent(&completed)}
			close(ch)
			return ch, nil
		})

	stream, err := client.Stream(ctx, client.NewMessage("T1", "S1", aip.CommandStart, "hello"))
	require.NoError(t, err)
	defer stream.Close()

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.EventSeq)
	assert.Equal(t, aip.TypeTask, ev.EventData.EventType())

	ev, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, int64(2), ev.EventSeq)
	assert.True(t, ev.IsTerminal())

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClient_ReStream(t *testing.T) {
	client, mockService := newTestClient(t)
	ctx := context.Background()

	mockService.EXPECT().StreamMessage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, msg *aip.Message) (<-chan aip.StreamEvent, error) {
			assert.Equal(t, aip.CommandReStream, msg.Command)
			var params aip.ReStreamCommandParams
			assert.NoError(t, msg.DecodeCommandParams(&params))
			assert.Equal(t, int64(4), params.LastEventSeq)
			return nil, aip.NewJSONRPCError(aip.ErrorCodeReplayUnavailable, map[string]any{"taskId": "T1", "lastEventSeq": 4})
		})

	stream, err := client.ReStream(ctx, "T1", "S1", 4)
	require.NoError(t, err, "the error arrives as a stream frame")
	defer stream.Close()

	_, err = stream.Recv()
	var rpcErr *aip.JSONRPCError
	require.True(t, errors.As(err, &rpcErr), "got %v", err)
	assert.Equal(t, aip.ErrorCodeReplayUnavailable, rpcErr.Code)
}

func TestClient_StreamUnauthorized(t *testing.T) {
	auth := AuthenticatorFunc(func(ctx context.Context, r *http.Request) (*http.Request, error) {
		return nil, NewAuthError(AuthErrorCodeMissingCredentials, "missing token")
	})
	client, _ := newTestClient(t, WithAuthenticator(auth))

	_, err := client.Stream(context.Background(), client.NewMessage("T1", "S1", aip.CommandStart, "hello"))
	var rpcErr *aip.JSONRPCError
	require.True(t, errors.As(err, &rpcErr), "got %v", err)
	assert.Equal(t, ErrorCodeUnauthorized, rpcErr.Code)
	assert.Equal(t, "missing token", rpcErr.Message)
}

func TestClient_Notifications(t *testing.T) {
	client, mockService := newTestClient(t)
	ctx := context.Background()

	config := aip.NotificationConfig{URL: "https://hooks.example.com/aip", Token: "secret", TaskID: "T1"}
	registered := config
	registered.ID = "notif-1"

	mockService.EXPECT().SetNotification(gomock.Any(), config).Return(&registered, nil)
	mockService.EXPECT().GetNotifications(gomock.Any(), aip.NotificationIDParams{TaskID: "T1"}).Return([]aip.NotificationConfig{registered}, nil)
	mockService.EXPECT().StartNotification(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, msg *aip.Message) (*aip.Task, error) {
			assert.NoError(t, msg.Validate())
			var params aip.NotificationStartParams
			assert.NoError(t, msg.DecodeCommandParams(&params))
			assert.Equal(t, "notif-1", params.NotificationConfigID)
			assert.Equal(t, []aip.TaskState{aip.TaskStateCompleted, aip.TaskStateFailed}, params.NotifyOnStates)
			task := aip.NewTask(msg.TaskID, msg.SessionID, aip.TaskStateWorking)
			return &task, nil
		})
	mockService.EXPECT().DeleteNotification(gomock.Any(), aip.NotificationIDParams{TaskID: "T1", NotificationConfigID: "notif-1"}).
		Return(&aip.NotificationDeleteResult{Success: false}, nil)

	got, err := client.SetNotification(ctx, config)
	require.NoError(t, err)
	assert.Equal(t, registered, *got)

	configs, err := client.GetNotifications(ctx, "T1", "")
	require.NoError(t, err)
	assert.Equal(t, []aip.NotificationConfig{registered}, configs)

	task, err := client.StartNotification(ctx, "T1", "S1", "notif-1", aip.TaskStateCompleted, aip.TaskStateFailed)
	require.NoError(t, err)
	assert.Equal(t, "T1", task.ID)

	removed, err := client.DeleteNotification(ctx, "T1", "notif-1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestClient_JoinGroup(t *testing.T) {
	client, mockService := newTestClient(t)
	params := aip.GroupJoinParams{
		Protocol: "amqp",
		Group:    aip.GroupInfo{GroupID: "g1", Leader: aip.ACSObject{AIC: "leader-1"}},
		Server:   aip.RabbitMQServerConfig{Host: "mq.example.com", Port: 5672, VHost: "/"},
		AMQP:     aip.AMQPConfig{Exchange: "g1", ExchangeType: "topic", RoutingKey: "g1.#"},
	}
	mockService.EXPECT().JoinGroup(gomock.Any(), params).Return(&aip.GroupJoinResult{QueueName: "q-partner-1", VHost: "/"}, nil)

	res, err := client.JoinGroup(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "q-partner-1", res.QueueName)
}
