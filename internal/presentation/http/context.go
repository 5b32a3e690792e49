package http

import (
	"context"
	stdhttp "net/http"
)

type contextKey string

const (
	requestIDContextKey contextKey = "notebook/request-id"
	requestContextKey   contextKey = "notebook/request"
)

// RequestIDFromContext extracts the request identifier from the context when available.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDContextKey).(string); ok {
		return value
	}
	return ""
}

func requestFromContext(ctx context.Context) *stdhttp.Request {
	if ctx == nil {
		return nil
	}
	req, _ := ctx.Value(requestContextKey).(*stdhttp.Request)
	return req
}
