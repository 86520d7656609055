package zap

import (
	"context"
	"time"

	"github.com/fwojciec/adharvest"
	"go.uber.org/zap"
)

// Ensure LoggingMirror implements adharvest.Mirror.
var _ adharvest.Mirror = (*LoggingMirror)(nil)

// LoggingMirror wraps a Mirror with debug logging.
type LoggingMirror struct {
	next   adharvest.Mirror
	logger *zap.Logger
}

// NewLoggingMirror creates a new LoggingMirror.
func NewLoggingMirror(next adharvest.Mirror, logger *zap.Logger) *LoggingMirror {
	return &LoggingMirror{next: next, logger: logger}
}

// Get delegates to the wrapped mirror and logs the size and revision read.
func (m *LoggingMirror) Get(ctx context.Context) (state *adharvest.MirrorState, err error) {
	defer func(begin time.Time) {
		fields := []zap.Field{zap.Duration("duration", time.Since(begin))}
		if state != nil {
			fields = append(fields, zap.Int("bytes", len(state.Content)), zap.String("revision", state.Revision))
		}
		if err != nil {
			fields = append(fields, zap.String("code", adharvest.ErrorCode(err)), zap.Error(err))
		}
		m.logger.Debug("mirror get", fields...)
	}(time.Now())
	return m.next.Get(ctx)
}

// Put delegates to the wrapped mirror and logs the push.
func (m *LoggingMirror) Put(ctx context.Context, content []byte, revision string, message string) (err error) {
	defer func(begin time.Time) {
		fields := []zap.Field{
			zap.Int("bytes", len(content)),
			zap.String("revision", revision),
			zap.String("message", message),
			zap.Duration("duration", time.Since(begin)),
		}
		if err != nil {
			fields = append(fields, zap.String("code", adharvest.ErrorCode(err)), zap.Error(err))
		}
		m.logger.Debug("mirror put", fields...)
	}(time.Now())
	return m.next.Put(ctx, content, revision, message)
}
