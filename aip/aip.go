// Package aip provides the wire model of the agent interoperability protocol used by aipkit.
// It covers data items, messages, tasks, products, command parameters and the JSON-RPC 2.0 envelope.
package aip

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Songmu/flextime"
)

// =============================================================================
// BASIC TYPES AND ENUMS
// =============================================================================

// Type is the discriminator carried in the "type" field of protocol objects.
type Type string

const (
	// Data item variants
	TypeText Type = "text"
	TypeFile Type = "file"
	TypeData Type = "data"

	// Top-level objects
	TypeMessage          Type = "message"
	TypeTask             Type = "task"
	TypeStatusUpdate     Type = "status-update"
	TypeProductChunk     Type = "product-chunk"
	TypeGroupMgmtMessage Type = "group-mgmt-message"
)

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// Role represents the role of a message sender.
type Role string

const (
	RoleLeader  Role = "leader"
	RolePartner Role = "partner"
)

// IsValid returns true if the role is valid.
func (r Role) IsValid() bool {
	switch r {
	case RoleLeader, RolePartner:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// TaskState represents the possible states of a Task.
type TaskState string

const (
	TaskStateAccepted           TaskState = "accepted"
	TaskStateWorking            TaskState = "working"
	TaskStateAwaitingInput      TaskState = "awaiting-input"
	TaskStateAwaitingCompletion TaskState = "awaiting-completion"
	TaskStateCompleted          TaskState = "completed"
	TaskStateCanceled           TaskState = "canceled"
	TaskStateFailed             TaskState = "failed"
	TaskStateRejected           TaskState = "rejected"
)

// IsValid returns true if the task state is valid.
func (state TaskState) IsValid() bool {
	switch state {
	case TaskStateAccepted, TaskStateWorking, TaskStateAwaitingInput,
		TaskStateAwaitingCompletion, TaskStateCompleted, TaskStateCanceled,
		TaskStateFailed, TaskStateRejected:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transition is permitted from the state.
func (state TaskState) IsTerminal() bool {
	switch state {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected:
		return true
	default:
		return false
	}
}

// IsAwaiting returns true if the task is waiting on the leader.
func (state TaskState) IsAwaiting() bool {
	switch state {
	case TaskStateAwaitingInput, TaskStateAwaitingCompletion:
		return true
	default:
		return false
	}
}

// String returns the string representation of the task state.
func (state TaskState) String() string {
	return string(state)
}

// TaskCommand is the control command carried by a message.
type TaskCommand string

const (
	CommandGet      TaskCommand = "get"
	CommandStart    TaskCommand = "start"
	CommandContinue TaskCommand = "continue"
	CommandCancel   TaskCommand = "cancel"
	CommandComplete TaskCommand = "complete"
	CommandReStream TaskCommand = "re-stream"
)

// IsValid returns true if the command is one of the known commands.
func (c TaskCommand) IsValid() bool {
	switch c {
	case CommandGet, CommandStart, CommandContinue, CommandCancel, CommandComplete, CommandReStream:
		return true
	default:
		return false
	}
}

// String returns the string representation of the command.
func (c TaskCommand) String() string {
	return string(c)
}

// Protocol version literal of the JSON-RPC envelope.
const (
	JSONRPCVersion = "2.0"
)

// method names
const (
	MethodRPC                = "rpc"
	MethodStream             = "stream"
	MethodNotificationSet    = "notification/set"
	MethodNotificationGet    = "notification/get"
	MethodNotificationDelete = "notification/delete"
	MethodNotificationStart  = "notification/start"
	MethodGroup              = "group"
)

// JSON-RPC error codes
const (
	// Standard JSON-RPC error codes
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternalError  = -32603

	// Protocol specific error codes
	ErrorCodeTaskNotFound               = -32001
	ErrorCodeReplayUnavailable          = -32002
	ErrorCodeNotificationConfigNotFound = -32003
)

// ErrorCodeText returns the text description for an error code.
func ErrorCodeText(code int) string {
	switch code {
	case ErrorCodeParseError:
		return "Parse error"
	case ErrorCodeInvalidRequest:
		return "Invalid Request"
	case ErrorCodeMethodNotFound:
		return "Method not found"
	case ErrorCodeInvalidParams:
		return "Invalid params"
	case ErrorCodeInternalError:
		return "Internal error"
	case ErrorCodeTaskNotFound:
		return "Task not found"
	case ErrorCodeReplayUnavailable:
		return "Stream replay unavailable"
	case ErrorCodeNotificationConfigNotFound:
		return "Notification config not found"
	default:
		return "Unknown error"
	}
}

// =============================================================================
// JSON-RPC TYPES
// =============================================================================

// JSONRPCRequest represents a JSON-RPC 2.0 Request object.
type JSONRPCRequest struct {
	JSONRpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      any    `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 Response object.
type JSONRPCResponse struct {
	JSONRpc string        `json:"jsonrpc"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
	ID      any           `json:"id"`
}

// JSONRPCError represents a JSON-RPC 2.0 Error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface for JSONRPCError
func (e *JSONRPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("JSON-RPC error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// Validate checks the envelope fields of a request.
func (r *JSONRPCRequest) Validate() error {
	if r.JSONRpc != JSONRPCVersion {
		return fmt.Errorf("jsonrpc must be %q, got %q", JSONRPCVersion, r.JSONRpc)
	}
	if r.Method == "" {
		return errors.New("method is required")
	}
	return nil
}

// =============================================================================
// JSON-RPC PARAMETER TYPES
// =============================================================================

// MessageParams is the params object of the rpc, stream and notification/start methods.
type MessageParams struct {
	Message Message `json:"message"`
}

// GetCommandParams are the commandParams of a get command.
type GetCommandParams struct {
	LastMessageSentAt  string `json:"lastMessageSentAt,omitempty"`
	LastStateChangedAt string `json:"lastStateChangedAt,omitempty"`
}

// StartCommandParams are the commandParams of a start command.
type StartCommandParams struct {
	// Timeout in seconds applied to the start handler.
	Timeout          int `json:"timeout,omitempty"`
	MaxProductsBytes int `json:"maxProductsBytes,omitempty"`
}

// ReStreamCommandParams are the commandParams of a re-stream command.
type ReStreamCommandParams struct {
	LastEventSeq int64 `json:"lastEventSeq"`
}

// =============================================================================
// CORE TYPES
// =============================================================================

// DataItem is a unit of payload content. Type selects the active variant:
// text uses Text, file uses Name, MimeType, URI and Bytes, data uses Data.
type DataItem struct {
	Type     Type
	Text     string
	Name     string
	MimeType string
	URI      string
	Bytes    string
	Data     map[string]any
	Metadata map[string]any
}

type textItemJSON struct {
	Type     Type           `json:"type"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type fileItemJSON struct {
	Type     Type           `json:"type"`
	Name     string         `json:"name,omitempty"`
	MimeType string         `json:"mimeType,omitempty"`
	URI      string         `json:"uri,omitempty"`
	Bytes    string         `json:"bytes,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type dataItemJSON struct {
	Type     Type           `json:"type"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON emits only the fields of the active variant.
func (d DataItem) MarshalJSON() ([]byte, error) {
	switch d.Type {
	case TypeText:
		return json.Marshal(textItemJSON{Type: d.Type, Text: d.Text, Metadata: d.Metadata})
	case TypeFile:
		return json.Marshal(fileItemJSON{
			Type:     d.Type,
			Name:     d.Name,
			MimeType: d.MimeType,
			URI:      d.URI,
			Bytes:    d.Bytes,
			Metadata: d.Metadata,
		})
	case TypeData:
		data := d.Data
		if data == nil {
			data = map[string]any{}
		}
		return json.Marshal(dataItemJSON{Type: d.Type, Data: data, Metadata: d.Metadata})
	default:
		return nil, fmt.Errorf("invalid data item type %q", d.Type)
	}
}

// UnmarshalJSON decodes a data item, rejecting unknown or missing type tags.
func (d *DataItem) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type     Type           `json:"type"`
		Text     *string        `json:"text"`
		Name     string         `json:"name"`
		MimeType string         `json:"mimeType"`
		URI      string         `json:"uri"`
		Bytes    string         `json:"bytes"`
		Data     map[string]any `json:"data"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	item := DataItem{Type: raw.Type, Metadata: raw.Metadata}
	switch raw.Type {
	case TypeText:
		if raw.Text == nil {
			return errors.New("text data item requires text")
		}
		item.Text = *raw.Text
	case TypeFile:
		item.Name = raw.Name
		item.MimeType = raw.MimeType
		item.URI = raw.URI
		item.Bytes = raw.Bytes
	case TypeData:
		if raw.Data == nil {
			return errors.New("data data item requires data")
		}
		item.Data = raw.Data
	case "":
		return errors.New("data item type is required")
	default:
		return fmt.Errorf("invalid data item type %q, must be one of: %s", raw.Type, commasJoin(validItemTypes()))
	}
	*d = item
	return nil
}

// Mentions addresses a message either to everyone or to an explicit list of ids.
type Mentions struct {
	All bool
	IDs []string
}

const mentionAll = "all"

// MentionAll returns mentions addressing every participant.
func MentionAll() *Mentions {
	return &Mentions{All: true}
}

// MentionIDs returns mentions addressing the given participants.
func MentionIDs(ids ...string) *Mentions {
	return &Mentions{IDs: ids}
}

// MarshalJSON encodes mentions as "all" or a list of ids.
func (m Mentions) MarshalJSON() ([]byte, error) {
	if m.All {
		return json.Marshal(mentionAll)
	}
	ids := m.IDs
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

// UnmarshalJSON decodes the "all" literal or a list of ids.
func (m *Mentions) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != mentionAll {
			return fmt.Errorf("mentions must be %q or a list of ids, got %q", mentionAll, s)
		}
		*m = Mentions{All: true}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return fmt.Errorf("mentions: %w", err)
	}
	*m = Mentions{IDs: ids}
	return nil
}

// Includes reports whether the mentions address the given id.
func (m *Mentions) Includes(id string) bool {
	if m == nil {
		return false
	}
	if m.All {
		return true
	}
	for _, v := range m.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// Message is an atomic communication unit, optionally carrying a control command.
type Message struct {
	Type          Type           `json:"type"`
	ID            string         `json:"id"`
	SentAt        string         `json:"sentAt"`
	SenderRole    Role           `json:"senderRole"`
	SenderID      string         `json:"senderId"`
	Mentions      *Mentions      `json:"mentions,omitempty"`
	Command       TaskCommand    `json:"command,omitempty"`
	CommandParams map[string]any `json:"commandParams,omitempty"`
	DataItems     []DataItem     `json:"dataItems"`
	TaskID        string         `json:"taskId,omitempty"`
	GroupID       string         `json:"groupId,omitempty"`
	SessionID     string         `json:"sessionId,omitempty"`
}

// TaskStatus is the state of a task along with the items attached at the transition.
type TaskStatus struct {
	State          TaskState  `json:"state"`
	StateChangedAt string     `json:"stateChangedAt"`
	DataItems      []DataItem `json:"dataItems,omitempty"`
}

// Task is the unit of long-running work.
type Task struct {
	Type           Type         `json:"type"`
	ID             string       `json:"id"`
	SenderID       string       `json:"senderId,omitempty"`
	Status         TaskStatus   `json:"status"`
	Products       []Product    `json:"products,omitempty"`
	MessageHistory []Message    `json:"messageHistory,omitempty"`
	StatusHistory  []TaskStatus `json:"statusHistory,omitempty"`
	GroupID        string       `json:"groupId,omitempty"`
	SessionID      string       `json:"sessionId"`
}

// Product is a deliverable attached to a task.
type Product struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	DataItems   []DataItem `json:"dataItems"`
}

// =============================================================================
// VALIDATION METHODS
// =============================================================================

// Validate validates a Message structure.
func (m *Message) Validate() error {
	if m.Type != TypeMessage {
		return fmt.Errorf("message type must be %q, got %q", TypeMessage, m.Type)
	}

	if m.ID == "" {
		return errors.New("id is required")
	}

	if m.SentAt == "" {
		return errors.New("sentAt is required")
	}

	if !m.SenderRole.IsValid() {
		return fmt.Errorf("invalid senderRole %q, must be one of: %s", m.SenderRole, commasJoin(validRoles()))
	}

	if m.SenderID == "" {
		return errors.New("senderId is required")
	}

	if m.Command != "" && !m.Command.IsValid() {
		return fmt.Errorf("invalid command %q, must be one of: %s", m.Command, commasJoin(validCommands()))
	}

	if len(m.DataItems) == 0 {
		return errors.New("dataItems is required and must not be empty")
	}

	for i, item := range m.DataItems {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("dataItems[%d]: %w", i, err)
		}
	}

	return nil
}

// Validate validates a DataItem according to its variant.
func (d *DataItem) Validate() error {
	switch d.Type {
	case TypeText:
		if d.Name != "" || d.MimeType != "" || d.URI != "" || d.Bytes != "" || d.Data != nil {
			return errors.New("text item cannot have file or data fields")
		}
	case TypeFile:
		if d.Text != "" || d.Data != nil {
			return errors.New("file item cannot have text or data fields")
		}
	case TypeData:
		if d.Data == nil {
			return errors.New("data is required for data item")
		}
		if d.Text != "" || d.URI != "" || d.Bytes != "" {
			return errors.New("data item cannot have text or file fields")
		}
	case "":
		return errors.New("type is required")
	default:
		return fmt.Errorf("invalid data item type %q, must be one of: %s", d.Type, commasJoin(validItemTypes()))
	}
	return nil
}

// Validate validates a Task structure.
func (t *Task) Validate() error {
	if t.Type != TypeTask {
		return fmt.Errorf("task type must be %q, got %q", TypeTask, t.Type)
	}

	if t.ID == "" {
		return errors.New("id is required")
	}

	if t.SessionID == "" {
		return errors.New("sessionId is required")
	}

	if err := t.Status.Validate(); err != nil {
		return fmt.Errorf("status: %w", err)
	}

	for i, product := range t.Products {
		if err := product.Validate(); err != nil {
			return fmt.Errorf("products[%d]: %w", i, err)
		}
	}

	for i, msg := range t.MessageHistory {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("messageHistory[%d]: %w", i, err)
		}
	}

	return nil
}

// Validate validates a TaskStatus structure.
func (ts *TaskStatus) Validate() error {
	if ts.State == "" {
		return errors.New("state is required")
	}

	if !ts.State.IsValid() {
		return fmt.Errorf("invalid task state %q, must be one of: %s", ts.State, commasJoin(validTaskStates()))
	}

	for i, item := range ts.DataItems {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("dataItems[%d]: %w", i, err)
		}
	}

	return nil
}

// Validate validates a Product structure.
func (p *Product) Validate() error {
	if p.ID == "" {
		return errors.New("id is required")
	}

	if len(p.DataItems) == 0 {
		return errors.New("dataItems is required and must not be empty")
	}

	for i, item := range p.DataItems {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("dataItems[%d]: %w", i, err)
		}
	}

	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// DecodeCommandParams converts the free-form commandParams into v.
// v is left untouched when the message carries no parameters.
func (m *Message) DecodeCommandParams(v any) error {
	if len(m.CommandParams) == 0 {
		return nil
	}
	b, err := json.Marshal(m.CommandParams)
	if err != nil {
		return fmt.Errorf("encode commandParams: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode commandParams: %w", err)
	}
	return nil
}

// Texts returns the non-empty text items of the message in order.
func (m *Message) Texts() []string {
	var texts []string
	for _, item := range m.DataItems {
		if item.Type == TypeText && item.Text != "" {
			texts = append(texts, item.Text)
		}
	}
	return texts
}

// Text joins the text items of the message with newlines.
func (m *Message) Text() string {
	return strings.TrimSpace(strings.Join(m.Texts(), "\n"))
}

// HasText reports whether the message carries at least one non-blank text item.
func (m *Message) HasText() bool {
	for _, text := range m.Texts() {
		if strings.TrimSpace(text) != "" {
			return true
		}
	}
	return false
}

// ChangedAt parses StateChangedAt.
func (ts *TaskStatus) ChangedAt() (time.Time, error) {
	return ParseTimestamp(ts.StateChangedAt)
}

// ByteSize returns the payload size counted against the products ceiling:
// UTF-8 length of text plus the length of inline bytes.
func (d *DataItem) ByteSize() (int, error) {
	switch d.Type {
	case TypeText:
		return len(d.Text), nil
	case TypeFile:
		return len(d.Bytes), nil
	case TypeData:
		return 0, nil
	default:
		return 0, fmt.Errorf("invalid data item type %q", d.Type)
	}
}

// ProductsByteSize sums ByteSize over every item of every product.
func ProductsByteSize(products []Product) (int, error) {
	total := 0
	for i, product := range products {
		for j, item := range product.DataItems {
			n, err := item.ByteSize()
			if err != nil {
				return 0, fmt.Errorf("products[%d].dataItems[%d]: %w", i, j, err)
			}
			total += n
		}
	}
	return total, nil
}

// =============================================================================
// TIMESTAMPS
// =============================================================================

const localTimestampLayout = "2006-01-02T15:04:05.999999999"

// FormatTimestamp renders t as an RFC 3339 UTC timestamp with sub-second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses an RFC 3339 timestamp. Timestamps without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localTimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

// Now returns the current timestamp string.
func Now() string {
	return FormatTimestamp(flextime.Now())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func commasJoin[T fmt.Stringer](items []T) string {
	strs := make([]string, len(items))
	for i, item := range items {
		strs[i] = item.String()
	}
	return strings.Join(strs, ", ")
}

func validRoles() []Role {
	return []Role{RoleLeader, RolePartner}
}

func validItemTypes() []Type {
	return []Type{TypeText, TypeFile, TypeData}
}

func validCommands() []TaskCommand {
	return []TaskCommand{CommandGet, CommandStart, CommandContinue, CommandCancel, CommandComplete, CommandReStream}
}

func validTaskStates() []TaskState {
	return []TaskState{
		TaskStateAccepted, TaskStateWorking, TaskStateAwaitingInput, TaskStateAwaitingCompletion,
		TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateRejected,
	}
}

// =============================================================================
// HELPER CONSTRUCTORS
// =============================================================================

// NewTextItem creates a new text item.
func NewTextItem(text string) DataItem {
	return DataItem{
		Type: TypeText,
		Text: text,
	}
}

// NewFileItem creates a new file item referring to a URI.
func NewFileItem(uri, name, mimeType string) DataItem {
	return DataItem{
		Type:     TypeFile,
		URI:      uri,
		Name:     name,
		MimeType: mimeType,
	}
}

// NewFileItemWithBytes creates a new file item with inline base64 bytes.
func NewFileItemWithBytes(bytes, name, mimeType string) DataItem {
	return DataItem{
		Type:     TypeFile,
		Bytes:    bytes,
		Name:     name,
		MimeType: mimeType,
	}
}

// NewDataItem creates a new structured data item.
func NewDataItem(data map[string]any) DataItem {
	return DataItem{
		Type: TypeData,
		Data: data,
	}
}

// MessageOptions represents optional fields for message creation.
type MessageOptions struct {
	Command       TaskCommand
	CommandParams map[string]any
	TaskID        string
	GroupID       string
	SessionID     string
	Mentions      *Mentions
}

// NewMessage creates a new message stamped with the current time.
func NewMessage(id string, role Role, senderID string, items []DataItem, optFns ...func(*MessageOptions)) Message {
	msg := Message{
		Type:       TypeMessage,
		ID:         id,
		SentAt:     Now(),
		SenderRole: role,
		SenderID:   senderID,
		DataItems:  items,
	}

	if len(optFns) > 0 {
		opts := &MessageOptions{}
		for _, fn := range optFns {
			fn(opts)
		}

		msg.Command = opts.Command
		msg.CommandParams = opts.CommandParams
		msg.TaskID = opts.TaskID
		msg.GroupID = opts.GroupID
		msg.SessionID = opts.SessionID
		msg.Mentions = opts.Mentions
	}

	return msg
}

// NewTask creates a new task in the given state.
func NewTask(id string, sessionID string, state TaskState) Task {
	return Task{
		Type:      TypeTask,
		ID:        id,
		SessionID: sessionID,
		Status: TaskStatus{
			State:          state,
			StateChangedAt: Now(),
		},
	}
}

// =============================================================================
// JSON-RPC CONSTRUCTOR FUNCTIONS
// =============================================================================

// NewJSONRPCError creates a new JSON-RPC error with the specified code and optional data
func NewJSONRPCError(code int, data any) *JSONRPCError {
	return &JSONRPCError{
		Code:    code,
		Message: ErrorCodeText(code),
		Data:    data,
	}
}

// NewJSONRPCErrorWithMessage creates a new JSON-RPC error with a custom message
func NewJSONRPCErrorWithMessage(code int, message string, data any) *JSONRPCError {
	return &JSONRPCError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func NewJSONRPCParseError(data any) *JSONRPCError {
	return NewJSONRPCError(ErrorCodeParseError, data)
}

func NewJSONRPCInternalError(data any) *JSONRPCError {
	return NewJSONRPCError(ErrorCodeInternalError, data)
}

func NewJSONRPCInvalidParamsError(data any) *JSONRPCError {
	return NewJSONRPCError(ErrorCodeInvalidParams, data)
}

func NewJSONRPCTaskNotFoundError(taskID string) *JSONRPCError {
	return NewJSONRPCError(ErrorCodeTaskNotFound, map[string]string{"taskId": taskID})
}

func NewJSONRPCMethodNotFoundError(method string) *JSONRPCError {
	return NewJSONRPCError(ErrorCodeMethodNotFound, map[string]string{"method": method})
}

// NewJSONRPCRequest creates a new JSON-RPC request.
func NewJSONRPCRequest(method string, params any, id any) JSONRPCRequest {
	return JSONRPCRequest{
		JSONRpc: JSONRPCVersion,
		Method:  method,
		Params:  params,
		ID:      id,
	}
}

// NewJSONRPCResponse creates a new JSON-RPC success response.
func NewJSONRPCResponse(result any, id any) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRpc: JSONRPCVersion,
		Result:  result,
		ID:      id,
	}
}

// NewJSONRPCErrorResponse creates a new JSON-RPC error response.
func NewJSONRPCErrorResponse(err *JSONRPCError, id any) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRpc: JSONRPCVersion,
		Error:   err,
		ID:      id,
	}
}
