package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mashiike/aipkit/aip"
)

// ErrResponseIDMismatch is returned when a response carries a different id than its request.
var ErrResponseIDMismatch = errors.New("response id does not match request id")

// DefaultClientTimeout is the timeout of the default HTTP client for non-streaming calls.
const DefaultClientTimeout = 30 * time.Second

// ClientOption defines configuration option for Client
type ClientOption func(*clientConfig)

// clientConfig holds internal configuration for Client
type clientConfig struct {
	httpClient   *http.Client
	streamClient *http.Client
	leaderID     string
	logger       *slog.Logger
	userAgent    string
	header       http.Header
}

// WithLeaderID sets the sender id of the messages built by the client
func WithLeaderID(id string) ClientOption {
	return func(c *clientConfig) {
		c.leaderID = id
	}
}

// WithHTTPClient sets a custom HTTP client used for every call, streams included
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
		c.streamClient = client
	}
}

// WithClientLogger sets an optional logger for debug output
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(userAgent string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = userAgent
	}
}

// WithHeader adds a header sent with every request
func WithHeader(key, value string) ClientOption {
	return func(c *clientConfig) {
		c.header.Add(key, value)
	}
}

// WithBearerToken sends Authorization: Bearer <token> with every request
func WithBearerToken(token string) ClientOption {
	return func(c *clientConfig) {
		c.header.Set("Authorization", "Bearer "+token)
	}
}

// Client is a leader-side JSON-RPC client of one partner endpoint
type Client struct {
	endpoint string
	config   clientConfig
}

// NewClient creates a new client for the partner at endpoint
func NewClient(endpoint string, options ...ClientOption) *Client {
	config := clientConfig{
		httpClient:   &http.Client{Timeout: DefaultClientTimeout},
		streamClient: &http.Client{},
		logger:       slog.Default(),
		userAgent:    "aipkit-client/1.0",
		header:       make(http.Header),
	}

	for _, option := range options {
		option(&config)
	}

	return &Client{
		endpoint: endpoint,
		config:   config,
	}
}

// LeaderID returns the sender id used for built messages
func (c *Client) LeaderID() string {
	return c.config.leaderID
}

// NewTaskID generates a task id of the form task-<uuid>
func NewTaskID() string {
	return "task-" + uuid.Must(uuid.NewV7()).String()
}

// NewMessageID generates a message id of the form msg-<uuid>
func NewMessageID() string {
	return "msg-" + uuid.Must(uuid.NewV7()).String()
}

func newRequestID() string {
	return "req-" + uuid.Must(uuid.NewV7()).String()
}

// rpcResponse is a JSON-RPC response whose result is decoded by the caller.
type rpcResponse struct {
	JSONRpc string            `json:"jsonrpc"`
	Result  json.RawMessage   `json:"result,omitempty"`
	Error   *aip.JSONRPCError `json:"error,omitempty"`
	ID      any               `json:"id"`
}

// check returns the response error, then verifies the correlation id.
func (r *rpcResponse) check(requestID string) error {
	if r.Error != nil {
		return r.Error
	}
	if id, ok := r.ID.(string); !ok || id != requestID {
		return fmt.Errorf("%w: sent %q, got %v", ErrResponseIDMismatch, requestID, r.ID)
	}
	return nil
}

func (c *Client) newHTTPRequest(ctx context.Context, method string, params any, accept string) (*http.Request, string, error) {
	id := newRequestID()
	reqBody, err := json.Marshal(aip.NewJSONRPCRequest(method, params, id))
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal JSON-RPC request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for key, values := range c.config.header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Content-Type", mediaTypeJSON)
	httpReq.Header.Set("Accept", accept)
	if c.config.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.userAgent)
	}

	c.config.logger.Debug("sending JSON-RPC request", "method", method, "url", c.endpoint, "id", id)
	return httpReq, id, nil
}

// call sends a JSON-RPC request and decodes its result into result
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	httpReq, id, err := c.newHTTPRequest(ctx, method, params, mediaTypeJSON)
	if err != nil {
		return err
	}

	httpResp, err := c.config.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.config.logger.Debug("received JSON-RPC response",
		"status", httpResp.StatusCode,
		"contentType", httpResp.Header.Get("Content-Type"),
		"bodySize", len(respBody))

	var resp rpcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected HTTP status %d: %s", httpResp.StatusCode, bytes.TrimSpace(respBody))
		}
		return fmt.Errorf("failed to parse JSON-RPC response: %w", err)
	}
	if err := resp.check(id); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("failed to parse %s result: %w", method, err)
	}
	return nil
}

// resultHolder decodes the Task or Message union of an rpc result.
type resultHolder struct {
	data aip.EventData
}

func (h *resultHolder) UnmarshalJSON(b []byte) error {
	data, err := aip.UnmarshalResult(b)
	if err != nil {
		return err
	}
	h.data = data
	return nil
}

// SendMessage sends msg with the rpc method. The result is a *aip.Task or a *aip.Message.
func (c *Client) SendMessage(ctx context.Context, msg aip.Message) (aip.EventData, error) {
	var result resultHolder
	if err := c.call(ctx, aip.MethodRPC, aip.MessageParams{Message: msg}, &result); err != nil {
		return nil, err
	}
	return result.data, nil
}

// NewMessage builds a leader message for a task. A message needs at least one data item,
// so a command without text carries the command name as its text.
func (c *Client) NewMessage(taskID, sessionID string, command aip.TaskCommand, text string, optFns ...func(*aip.MessageOptions)) aip.Message {
	if text == "" {
		text = command.String()
	}
	fns := append([]func(*aip.MessageOptions){func(o *aip.MessageOptions) {
		o.SessionID = sessionID
	}}, optFns...)
	fns = append(fns, func(o *aip.MessageOptions) {
		o.TaskID = taskID
		o.Command = command
	})
	return aip.NewMessage(NewMessageID(), aip.RoleLeader, c.config.leaderID, []aip.DataItem{aip.NewTextItem(text)}, fns...)
}

func (c *Client) sendCommand(ctx context.Context, msg aip.Message) (*aip.Task, error) {
	data, err := c.SendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	task, ok := data.(*aip.Task)
	if !ok {
		return nil, fmt.Errorf("expected task result, got %s", data.EventType())
	}
	return task, nil
}

// StartTask starts a new task with a generated task-<uuid> id.
func (c *Client) StartTask(ctx context.Context, sessionID, input string, optFns ...func(*aip.MessageOptions)) (*aip.Task, error) {
	return c.sendCommand(ctx, c.NewMessage(NewTaskID(), sessionID, aip.CommandStart, input, optFns...))
}

// ContinueTask sends more input to a task that is awaiting it.
func (c *Client) ContinueTask(ctx context.Context, taskID, sessionID, input string) (*aip.Task, error) {
	return c.sendCommand(ctx, c.NewMessage(taskID, sessionID, aip.CommandContinue, input))
}

// CompleteTask accepts the products of a task awaiting completion.
func (c *Client) CompleteTask(ctx context.Context, taskID, sessionID string) (*aip.Task, error) {
	return c.sendCommand(ctx, c.NewMessage(taskID, sessionID, aip.CommandComplete, ""))
}

// GetTask retrieves the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID, sessionID string) (*aip.Task, error) {
	return c.sendCommand(ctx, c.NewMessage(taskID, sessionID, aip.CommandGet, ""))
}

// CancelTask cancels a task.
func (c *Client) CancelTask(ctx context.Context, taskID, sessionID string) (*aip.Task, error) {
	return c.sendCommand(ctx, c.NewMessage(taskID, sessionID, aip.CommandCancel, ""))
}

// StreamReader reads the events of a stream call.
type StreamReader struct {
	body      io.ReadCloser
	decoder   *SSEDecoder
	requestID string
}

// Recv returns the next event. It returns io.EOF when the partner closes the stream
// and a *aip.JSONRPCError when the partner sends an error frame.
func (s *StreamReader) Recv() (*aip.StreamEvent, error) {
	for {
		event, err := s.decoder.Decode()
		if err != nil {
			return nil, err
		}
		if event.Data == "" {
			continue
		}
		var resp rpcResponse
		if err := json.Unmarshal([]byte(event.Data), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse stream frame: %w", err)
		}
		if err := resp.check(s.requestID); err != nil {
			return nil, err
		}
		var ev aip.StreamEvent
		if err := json.Unmarshal(resp.Result, &ev); err != nil {
			return nil, fmt.Errorf("failed to parse stream event: %w", err)
		}
		return &ev, nil
	}
}

// Close releases the connection.
func (s *StreamReader) Close() error {
	return s.body.Close()
}

// Stream sends msg with the stream method.
func (c *Client) Stream(ctx context.Context, msg aip.Message) (*StreamReader, error) {
	httpReq, id, err := c.newHTTPRequest(ctx, aip.MethodStream, aip.MessageParams{Message: msg}, mediaTypeEventStream)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Cache-Control", "no-cache")

	httpResp, err := c.config.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if !MatchesMediaType(mediaTypeEventStream, mediaTypeOf(httpResp.Header.Get("Content-Type"))) {
		// errors that are not framed as events, such as authentication failures
		defer httpResp.Body.Close()
		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		var resp rpcResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("unexpected stream response (HTTP %d): %s", httpResp.StatusCode, bytes.TrimSpace(respBody))
		}
		if err := resp.check(id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected stream response content type %q", httpResp.Header.Get("Content-Type"))
	}

	return &StreamReader{
		body:      httpResp.Body,
		decoder:   NewSSEDecoder(httpResp.Body),
		requestID: id,
	}, nil
}

func mediaTypeOf(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mediaType)
}

// ReStream resumes the events of a task after lastEventSeq.
func (c *Client) ReStream(ctx context.Context, taskID, sessionID string, lastEventSeq int64) (*StreamReader, error) {
	msg := c.NewMessage(taskID, sessionID, aip.CommandReStream, "", func(o *aip.MessageOptions) {
		o.CommandParams = map[string]any{"lastEventSeq": lastEventSeq}
	})
	return c.Stream(ctx, msg)
}

// SetNotification registers a webhook for a task.
func (c *Client) SetNotification(ctx context.Context, config aip.NotificationConfig) (*aip.NotificationConfig, error) {
	var result aip.NotificationConfig
	if err := c.call(ctx, aip.MethodNotificationSet, config, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetNotifications lists the webhooks of a task, or the one named by configID.
func (c *Client) GetNotifications(ctx context.Context, taskID, configID string) ([]aip.NotificationConfig, error) {
	var result []aip.NotificationConfig
	params := aip.NotificationIDParams{TaskID: taskID, NotificationConfigID: configID}
	if err := c.call(ctx, aip.MethodNotificationGet, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteNotification removes the webhook named by configID, or every webhook of the task.
// It reports whether anything was removed.
func (c *Client) DeleteNotification(ctx context.Context, taskID, configID string) (bool, error) {
	var result aip.NotificationDeleteResult
	params := aip.NotificationIDParams{TaskID: taskID, NotificationConfigID: configID}
	if err := c.call(ctx, aip.MethodNotificationDelete, params, &result); err != nil {
		return false, err
	}
	return result.Success, nil
}

// StartNotification activates a registered webhook. No states means every state.
func (c *Client) StartNotification(ctx context.Context, taskID, sessionID, configID string, states ...aip.TaskState) (*aip.Task, error) {
	commandParams := map[string]any{"notificationConfigId": configID}
	if len(states) > 0 {
		commandParams["notifyOnStates"] = states
	}
	msg := aip.NewMessage(NewMessageID(), aip.RoleLeader, c.config.leaderID, []aip.DataItem{aip.NewTextItem("notification/start")}, func(o *aip.MessageOptions) {
		o.TaskID = taskID
		o.SessionID = sessionID
		o.CommandParams = commandParams
	})
	var result aip.Task
	if err := c.call(ctx, aip.MethodNotificationStart, aip.MessageParams{Message: msg}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// JoinGroup invites the partner to a group.
func (c *Client) JoinGroup(ctx context.Context, params aip.GroupJoinParams) (*aip.GroupJoinResult, error) {
	var result aip.GroupJoinResult
	if err := c.call(ctx, aip.MethodGroup, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
