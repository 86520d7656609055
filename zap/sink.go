package zap

import (
	"context"
	"time"

	"github.com/fwojciec/adharvest"
	"go.uber.org/zap"
)

// Ensure LoggingSink implements adharvest.RecordSink.
var _ adharvest.RecordSink = (*LoggingSink)(nil)

// LoggingSink wraps a RecordSink with logging.
type LoggingSink struct {
	next   adharvest.RecordSink
	logger *zap.Logger
}

// NewLoggingSink creates a new LoggingSink.
func NewLoggingSink(next adharvest.RecordSink, logger *zap.Logger) *LoggingSink {
	return &LoggingSink{next: next, logger: logger}
}

// Save delegates to the wrapped sink and logs the batch.
func (s *LoggingSink) Save(ctx context.Context, records []*adharvest.ListingRecord) (err error) {
	defer func(begin time.Time) {
		if err != nil {
			s.logger.Error("sink save",
				zap.Int("records", len(records)),
				zap.Duration("duration", time.Since(begin)),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("sink save",
			zap.Int("records", len(records)),
			zap.Duration("duration", time.Since(begin)),
		)
	}(time.Now())
	return s.next.Save(ctx, records)
}
