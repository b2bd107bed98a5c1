package services

import "context"

type ctxKey int

const (
	rowKey ctxKey = iota
	stageKey
	passIDKey
	requestIDKey
)

// WithRow records the head row position of the group being processed.
// Positions are 1-based sheet rows; non-positive values are ignored.
func WithRow(ctx context.Context, position int) context.Context {
	if position <= 0 {
		return ctx
	}
	return context.WithValue(ctx, rowKey, position)
}

// RowFromContext returns the head row position, if any.
func RowFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(rowKey).(int)
	return v, ok
}

// WithStage records the pass step (enrich, writeback, publish, status).
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, stageKey)
}

// WithPassID records the identifier of the running pass.
func WithPassID(ctx context.Context, id string) context.Context {
	return withString(ctx, passIDKey, id)
}

func PassIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, passIDKey)
}

// WithRequestID records the API request that led to the current work.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, requestIDKey)
}

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
