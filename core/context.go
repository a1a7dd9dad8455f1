package core

import "context"

// Context keys for scan options
type contextKey string

const suppressProgressKey contextKey = "suppressProgress"

// withSuppressProgress sets whether progress output should be suppressed in the context
func withSuppressProgress(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressProgressKey, true)
}

// shouldSuppressProgress returns whether progress output should be suppressed from context
func shouldSuppressProgress(ctx context.Context) bool {
	val := ctx.Value(suppressProgressKey)
	if val == nil {
		return false // default: show progress
	}
	suppress, ok := val.(bool)
	return ok && suppress
}
