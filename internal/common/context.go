package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID     contextKey = "request_id"
	ContextKeyTransactionID contextKey = "transaction_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithTransactionID adds an extraction transaction ID to the context
func WithTransactionID(ctx context.Context, transactionID string) context.Context {
	return context.WithValue(ctx, ContextKeyTransactionID, transactionID)
}

// TransactionIDFromContext extracts the extraction transaction ID from context
func TransactionIDFromContext(ctx context.Context) string {
	if transactionID, ok := ctx.Value(ContextKeyTransactionID).(string); ok {
		return transactionID
	}
	return ""
}
