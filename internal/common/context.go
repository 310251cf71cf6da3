package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyUploadID contextKey = "upload_id"
	ContextKeyStoreID  contextKey = "store_id"
	ContextKeyLogger   contextKey = "logger"
)

// WithUploadID adds the upload being processed to the context
func WithUploadID(ctx context.Context, uploadID string) context.Context {
	return context.WithValue(ctx, ContextKeyUploadID, uploadID)
}

// UploadIDFromContext extracts the upload ID from context
func UploadIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyUploadID).(string); ok {
		return id
	}
	return ""
}

// WithStoreID adds the owning store to the context
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, ContextKeyStoreID, storeID)
}

// StoreIDFromContext extracts the store ID from context
func StoreIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyStoreID).(string); ok {
		return id
	}
	return ""
}

// LogAttrs returns the upload/store attributes carried by ctx, for log calls
// made below the pipeline.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id := UploadIDFromContext(ctx); id != "" {
		attrs = append(attrs, "upload_id", id)
	}
	if id := StoreIDFromContext(ctx); id != "" {
		attrs = append(attrs, "store_id", id)
	}
	return attrs
}

// WithLogger stores a request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, logger)
}

// LoggerFromContext returns the request-scoped logger or fallback.
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(ContextKeyLogger).(*slog.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
