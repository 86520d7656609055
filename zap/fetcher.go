package zap

import (
	"context"
	"time"

	"github.com/fwojciec/adharvest"
	"go.uber.org/zap"
)

// Ensure LoggingFetcher implements adharvest.Fetcher.
var _ adharvest.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with debug logging.
type LoggingFetcher struct {
	next   adharvest.Fetcher
	logger *zap.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next adharvest.Fetcher, logger *zap.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the operation.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (body string, err error) {
	defer func(begin time.Time) {
		fields := []zap.Field{
			zap.String("url", url),
			zap.Int("bytes", len(body)),
			zap.Duration("duration", time.Since(begin)),
		}
		if err != nil {
			f.logger.Warn("fetch", append(fields, zap.String("code", adharvest.ErrorCode(err)), zap.Error(err))...)
			return
		}
		f.logger.Debug("fetch", fields...)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}
