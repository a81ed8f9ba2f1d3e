// Package api holds the wire types shared by the intermediary service
// and its client.
package api

import "context"

const (
	RequestIDHeader = "X-Request-ID"

	MediaTypeJSON   = "application/json"
	MediaTypeNDJSON = "application/x-ndjson"
)

func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

type requestIDKey struct{}

type Error struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

// ObjectInfo describes one object under a table prefix.
type ObjectInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}
