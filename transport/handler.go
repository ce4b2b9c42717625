package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mashiike/aipkit/aip"
)

// ErrorCodeUnauthorized is the server-defined JSON-RPC code of authentication failures.
const ErrorCodeUnauthorized = -32000

// DefaultMaxBodyBytes limits the size of a request body.
const DefaultMaxBodyBytes = 10 << 20

// DefaultRPCPath is the JSON-RPC endpoint path used when none is configured.
const DefaultRPCPath = "/"

// JSONRPCMethodHandler defines the signature for JSON-RPC method handlers
type JSONRPCMethodHandler func(ctx context.Context, params json.RawMessage) (any, error)

// HandlerOption defines configuration option for Handler
type HandlerOption func(*handlerConfig)

// handlerConfig holds internal configuration for Handler
type handlerConfig struct {
	rpcPath       string
	logger        *slog.Logger
	authenticator Authenticator
	maxBodyBytes  int64
}

// WithRPCPath sets the JSON-RPC endpoint path (default: "/")
func WithRPCPath(path string) HandlerOption {
	return func(c *handlerConfig) {
		c.rpcPath = path
	}
}

// WithAuthenticator sets the authenticator for the handler
func WithAuthenticator(auth Authenticator) HandlerOption {
	return func(c *handlerConfig) {
		c.authenticator = auth
	}
}

// WithLogger sets an optional logger for debug output
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(c *handlerConfig) {
		c.logger = logger
	}
}

// WithMaxBodyBytes sets the request body limit (default: DefaultMaxBodyBytes)
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(c *handlerConfig) {
		c.maxBodyBytes = n
	}
}

// methodDescriptor represents a protocol method with its properties and handler
type methodDescriptor struct {
	method    string                                                                                 // Method name (e.g., "rpc")
	mediaType string                                                                                 // Response media type ("application/json" or "text/event-stream")
	handler   func(ctx context.Context, params json.RawMessage, w http.ResponseWriter, id any) error // Handler function
}

// rpcRequest is a JSON-RPC request whose params are decoded by the method handler.
type rpcRequest struct {
	JSONRpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id"`
}

// Handler wraps a Service and provides JSON-RPC over HTTP handling
type Handler struct {
	mu             sync.RWMutex
	service        Service
	methodRegistry map[string]methodDescriptor
	config         handlerConfig
}

// NewHandler creates a new JSON-RPC handler with options
func NewHandler(service Service, options ...HandlerOption) *Handler {
	config := handlerConfig{
		rpcPath:      DefaultRPCPath,
		logger:       slog.Default(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}

	for _, option := range options {
		option(&config)
	}

	h := &Handler{
		service: service,
		config:  config,
	}
	h.initMethodRegistry()
	return h
}

// initMethodRegistry initializes the method registry with all supported methods
func (h *Handler) initMethodRegistry() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.methodRegistry = make(map[string]methodDescriptor)

	h.registerJSONMethod(aip.MethodRPC, h.handleRPC)
	h.registerJSONMethod(aip.MethodNotificationSet, h.handleNotificationSet)
	h.registerJSONMethod(aip.MethodNotificationGet, h.handleNotificationGet)
	h.registerJSONMethod(aip.MethodNotificationDelete, h.handleNotificationDelete)
	h.registerJSONMethod(aip.MethodNotificationStart, h.handleNotificationStart)
	h.registerJSONMethod(aip.MethodGroup, h.handleGroup)

	h.registerStreamMethod(aip.MethodStream, h.handleStream)
}

// RegisterMethod registers an additional JSON-RPC method
func (h *Handler) RegisterMethod(method string, handler JSONRPCMethodHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.methodRegistry[method]; exists {
		panic(fmt.Sprintf("method %s already registered", method))
	}
	h.registerJSONMethod(method, handler)
}

// registerJSONMethod registers a JSON-RPC method (internal use)
func (h *Handler) registerJSONMethod(method string, handler JSONRPCMethodHandler) {
	wrappedHandler := func(ctx context.Context, params json.RawMessage, w http.ResponseWriter, id any) error {
		result, err := handler(ctx, params)
		if err != nil {
			h.writeErrorResponse(w, id, toJSONRPCError(err))
			return nil
		}

		h.writeSuccessResponse(w, id, result)
		return nil
	}

	h.methodRegistry[method] = methodDescriptor{
		method:    method,
		mediaType: mediaTypeJSON,
		handler:   wrappedHandler,
	}
}

// registerStreamMethod registers a streaming method (internal use only)
func (h *Handler) registerStreamMethod(method string, handler func(ctx context.Context, params json.RawMessage, w http.ResponseWriter, id any) error) {
	h.methodRegistry[method] = methodDescriptor{
		method:    method,
		mediaType: mediaTypeEventStream,
		handler:   handler,
	}
}

func (h *Handler) lookupMethod(method string) (methodDescriptor, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entity, exists := h.methodRegistry[method]
	return entity, exists
}

// toJSONRPCError keeps protocol errors and converts anything else to an internal error.
func toJSONRPCError(err error) *aip.JSONRPCError {
	var jsonrpcErr *aip.JSONRPCError
	if errors.As(err, &jsonrpcErr) {
		return jsonrpcErr
	}
	return aip.NewJSONRPCInternalError(err.Error())
}

// ServeHTTP implements http.Handler interface
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != h.config.rpcPath {
		http.NotFound(w, r)
		return
	}

	// Only accept POST requests for JSON-RPC
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.config.authenticator != nil {
		newReq, err := h.config.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			h.config.logger.Debug("authentication failed", "error", err)
			h.writeAuthError(w, err)
			return
		}
		r = newReq
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.maxBodyBytes))
	if err != nil {
		h.writeErrorResponse(w, nil, aip.NewJSONRPCParseError(err.Error()))
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeErrorResponse(w, nil, aip.NewJSONRPCParseError(err.Error()))
		return
	}

	envelope := aip.JSONRPCRequest{JSONRpc: req.JSONRpc, Method: req.Method, ID: req.ID}
	if err := envelope.Validate(); err != nil {
		h.writeErrorResponse(w, req.ID, aip.NewJSONRPCError(aip.ErrorCodeInvalidRequest, err.Error()))
		return
	}

	ctx := WithHTTPHeaders(r.Context(), r.Header)
	ctx = WithRequestID(ctx, req.ID)
	h.config.logger.Debug("handling JSON-RPC request", "method", req.Method, "id", req.ID)
	h.routeMethodByRegistry(ctx, req, w, r.Header.Get("Accept"))
}

// routeMethodByRegistry routes the method using the method registry
func (h *Handler) routeMethodByRegistry(ctx context.Context, req rpcRequest, w http.ResponseWriter, acceptHeader string) {
	entity, exists := h.lookupMethod(req.Method)

	if !exists {
		// Method not found - only use SSE if explicitly requested (not for */* or text/*)
		notFound := aip.NewJSONRPCMethodNotFoundError(req.Method)
		if clientAcceptsSSE(acceptHeader, false) {
			h.setupSSEHeaders(w)
			h.writeSSEError(w, req.ID, notFound)
		} else {
			h.writeErrorResponse(w, req.ID, notFound)
		}
		return
	}

	isSSEMethod := entity.mediaType == mediaTypeEventStream
	if isSSEMethod && !clientAcceptsSSE(acceptHeader, true) {
		// SSE method but client doesn't accept SSE
		h.writeErrorResponse(w, req.ID, aip.NewJSONRPCMethodNotFoundError(req.Method))
		return
	}

	if isSSEMethod {
		h.setupSSEHeaders(w)
	}

	if err := entity.handler(ctx, req.Params, w, req.ID); err != nil {
		if isSSEMethod {
			h.writeSSEError(w, req.ID, toJSONRPCError(err))
		} else {
			h.writeErrorResponse(w, req.ID, toJSONRPCError(err))
		}
	}
}

// decodeParams unmarshals params into v, reporting missing or malformed params as invalid params.
func decodeParams(params json.RawMessage, v any, what string) error {
	if len(params) == 0 || string(params) == "null" {
		return aip.NewJSONRPCInvalidParamsError(what + " parameters are required")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return aip.NewJSONRPCInvalidParamsError(fmt.Sprintf("Failed to parse %s parameters: %v", what, err))
	}
	return nil
}

func decodeMessageParams(params json.RawMessage, what string) (*aip.Message, error) {
	var req aip.MessageParams
	if err := decodeParams(params, &req, what); err != nil {
		return nil, err
	}
	return &req.Message, nil
}

// handleRPC handles rpc as JSONRPCMethodHandler
func (h *Handler) handleRPC(ctx context.Context, params json.RawMessage) (any, error) {
	msg, err := decodeMessageParams(params, "rpc")
	if err != nil {
		return nil, err
	}
	return h.service.HandleMessage(ctx, msg)
}

// handleNotificationSet handles notification/set as JSONRPCMethodHandler
func (h *Handler) handleNotificationSet(ctx context.Context, params json.RawMessage) (any, error) {
	var req aip.NotificationConfig
	if err := decodeParams(params, &req, "notification config"); err != nil {
		return nil, err
	}
	return h.service.SetNotification(ctx, req)
}

// handleNotificationGet handles notification/get as JSONRPCMethodHandler
func (h *Handler) handleNotificationGet(ctx context.Context, params json.RawMessage) (any, error) {
	var req aip.NotificationIDParams
	if err := decodeParams(params, &req, "notification id"); err != nil {
		return nil, err
	}
	return h.service.GetNotifications(ctx, req)
}

// handleNotificationDelete handles notification/delete as JSONRPCMethodHandler
func (h *Handler) handleNotificationDelete(ctx context.Context, params json.RawMessage) (any, error) {
	var req aip.NotificationIDParams
	if err := decodeParams(params, &req, "notification id"); err != nil {
		return nil, err
	}
	return h.service.DeleteNotification(ctx, req)
}

// handleNotificationStart handles notification/start as JSONRPCMethodHandler
func (h *Handler) handleNotificationStart(ctx context.Context, params json.RawMessage) (any, error) {
	msg, err := decodeMessageParams(params, "notification start")
	if err != nil {
		return nil, err
	}
	return h.service.StartNotification(ctx, msg)
}

// handleGroup handles group as JSONRPCMethodHandler
func (h *Handler) handleGroup(ctx context.Context, params json.RawMessage) (any, error) {
	var req aip.GroupJoinParams
	if err := decodeParams(params, &req, "group"); err != nil {
		return nil, err
	}
	return h.service.JoinGroup(ctx, req)
}

// handleStream handles the stream method with SSE
func (h *Handler) handleStream(ctx context.Context, params json.RawMessage, w http.ResponseWriter, id any) error {
	msg, err := decodeMessageParams(params, "stream")
	if err != nil {
		return err
	}

	streamChan, err := h.service.StreamMessage(ctx, msg)
	if err != nil {
		return err
	}

	if err := writeSSEStream(w, id, streamChan); err != nil {
		h.config.logger.Warn("stream aborted", "taskID", msg.TaskID, "error", err)
		// drain so the producer is not blocked until its context ends
		for range streamChan {
		}
	}
	return nil
}

func (h *Handler) writeSuccessResponse(w http.ResponseWriter, id any, result any) {
	resp := aip.NewJSONRPCResponse(result, id)

	w.Header().Set("Content-Type", mediaTypeJSON)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.config.logger.Error("failed to write JSON-RPC response", "error", err)
	}
}

// writeErrorResponse writes a JSON-RPC error. Protocol errors are always HTTP 200.
func (h *Handler) writeErrorResponse(w http.ResponseWriter, id any, rpcErr *aip.JSONRPCError) {
	resp := aip.NewJSONRPCErrorResponse(rpcErr, id)

	w.Header().Set("Content-Type", mediaTypeJSON)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.config.logger.Error("failed to write JSON-RPC error response", "error", err)
	}
}

func (h *Handler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", mediaTypeEventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func (h *Handler) writeSSEError(w http.ResponseWriter, id any, rpcErr *aip.JSONRPCError) {
	if err := WriteSSEError(w, id, rpcErr); err != nil {
		h.config.logger.Error("failed to write SSE error response", "error", err)
	}
}

// canHandle checks if the handler can process the request
func (h *Handler) canHandle(r *http.Request) bool {
	return r.Method == http.MethodPost && r.URL.Path == h.config.rpcPath
}

// Middleware creates middleware that handles protocol requests and passes others to next handler
func Middleware(service Service, options ...HandlerOption) func(http.Handler) http.Handler {
	aipHandler := NewHandler(service, options...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if aipHandler.canHandle(r) {
				aipHandler.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeSSEStream writes every stream event from the channel as a JSON-RPC response event
func writeSSEStream(w http.ResponseWriter, id any, streamChan <-chan aip.StreamEvent) error {
	sse, err := NewSSEWriter(w)
	if err != nil {
		return err
	}

	for event := range streamChan {
		if event.Err != nil {
			if err := sse.WriteJSON(aip.NewJSONRPCErrorResponse(event.Err, id)); err != nil {
				return err
			}
			// nothing follows an error frame
			for range streamChan {
			}
			return nil
		}
		respBytes, err := json.Marshal(aip.NewJSONRPCResponse(event, id))
		if err != nil {
			// Write error event and continue
			errorResp := aip.NewJSONRPCErrorResponse(aip.NewJSONRPCInternalError(err.Error()), id)
			if err := sse.WriteJSON(errorResp); err != nil {
				return err
			}
			continue
		}

		if err := sse.WriteData(respBytes); err != nil {
			return err
		}
	}

	return nil
}

// WriteSSEError writes a JSON-RPC error as one Server-Sent Event
func WriteSSEError(w http.ResponseWriter, id any, rpcErr *aip.JSONRPCError) error {
	sse, err := NewSSEWriter(w)
	if err != nil {
		return err
	}
	return sse.WriteJSON(aip.NewJSONRPCErrorResponse(rpcErr, id))
}

// writeAuthError writes an authentication error response
func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	rpcErr := aip.NewJSONRPCErrorWithMessage(ErrorCodeUnauthorized, "Authentication required", nil)

	var authErr *AuthError
	if errors.As(err, &authErr) {
		rpcErr = aip.NewJSONRPCErrorWithMessage(ErrorCodeUnauthorized, authErr.Message, map[string]any{
			"code":   authErr.Code,
			"scheme": authErr.Scheme,
		})
		if authErr.Scheme != "" {
			w.Header().Set("WWW-Authenticate", authErr.Scheme)
		}
	}

	w.Header().Set("Content-Type", mediaTypeJSON)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(aip.NewJSONRPCErrorResponse(rpcErr, nil)); err != nil {
		h.config.logger.Error("failed to write authentication error", "error", err)
	}
}
