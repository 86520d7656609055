package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/adharvest"
	"go.uber.org/zap"
)

// Ensure Sink implements adharvest.RecordSink at compile time.
var _ adharvest.RecordSink = (*Sink)(nil)

// Sink appends each batch to the local store and then pushes the merged
// content to the remote mirror. Only a local failure fails the batch.
type Sink struct {
	Local   adharvest.RecordStore
	Mirror  adharvest.Mirror
	Archive []adharvest.RecordSink
	Logger  *zap.Logger

	// Now stamps mirror commit messages. Defaults to time.Now.
	Now func() time.Time
}

// Save persists records. Returns ESINK if the local append failed; the
// mirror and archives are best-effort.
func (s *Sink) Save(ctx context.Context, records []*adharvest.ListingRecord) error {
	if len(records) == 0 {
		return nil
	}

	if err := s.Local.Save(ctx, records); err != nil {
		if adharvest.ErrorCode(err) == adharvest.ESINK {
			return err
		}
		return adharvest.Errorf(adharvest.ESINK, "local append of %d records: %v", len(records), err)
	}

	for _, a := range s.Archive {
		if err := a.Save(ctx, records); err != nil {
			s.logger().Warn("archive save failed", zap.Int("records", len(records)), zap.Error(err))
		}
	}

	if s.Mirror != nil {
		if err := s.push(ctx, len(records)); err != nil {
			s.logger().Warn("mirror push failed",
				zap.String("code", adharvest.ErrorCode(err)),
				zap.Int("records", len(records)),
				zap.Error(err),
			)
		}
	}
	return nil
}

// push replaces the remote content with the remote content followed by
// the entire local store.
func (s *Sink) push(ctx context.Context, n int) error {
	var remote []byte
	var revision string
	state, err := s.Mirror.Get(ctx)
	switch {
	case err == nil:
		remote, revision = state.Content, state.Revision
	case adharvest.ErrorCode(err) == adharvest.ENOTFOUND:
	default:
		return fmt.Errorf("read mirror: %w", err)
	}

	local, err := s.Local.Content(ctx)
	if err != nil {
		return fmt.Errorf("read local store: %w", err)
	}

	merged := make([]byte, 0, len(remote)+len(local))
	merged = append(merged, remote...)
	merged = append(merged, local...)

	msg := fmt.Sprintf("Append %d listings (%s)", n, s.now().UTC().Format(time.RFC3339))
	return s.Mirror.Put(ctx, merged, revision, msg)
}

func (s *Sink) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Sink) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
