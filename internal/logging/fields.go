package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// OperationFields returns the fields identifying op.
func OperationFields(op operation.Operation) []zap.Field {
	return []zap.Field{
		zap.Int64("conn_id", op.ConnectionID()),
		zap.Int64("op_id", op.OperationID()),
		zap.Int("msg_id", op.MessageID()),
		zap.Stringer("op_type", op.Type()),
	}
}

type loggerContextKey struct{}

// NewContext returns a new context carrying log.
func NewContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext returns the logger carried by ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}
