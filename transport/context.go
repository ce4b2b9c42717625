package transport

import (
	"context"
	"net/http"
)

// Context keys for the transport package
type contextKey string

const (
	// HTTP headers from original request
	httpHeadersKey contextKey = "http-headers"

	// JSON-RPC request id
	requestIDKey contextKey = "request-id"
)

// WithHTTPHeaders adds HTTP headers to the context
func WithHTTPHeaders(ctx context.Context, headers http.Header) context.Context {
	if headers == nil {
		return ctx
	}
	return context.WithValue(ctx, httpHeadersKey, headers)
}

// GetHTTPHeaders retrieves HTTP headers from the context
func GetHTTPHeaders(ctx context.Context) http.Header {
	if headers, ok := ctx.Value(httpHeadersKey).(http.Header); ok {
		return headers
	}
	return nil
}

// WithRequestID adds the JSON-RPC request id to the context
func WithRequestID(ctx context.Context, id any) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the JSON-RPC request id from the context
func GetRequestID(ctx context.Context) (any, bool) {
	id := ctx.Value(requestIDKey)
	return id, id != nil
}
