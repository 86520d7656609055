package mock

import (
	"context"

	"github.com/fwojciec/adharvest"
)

var _ adharvest.RecordSink = (*RecordSink)(nil)

// RecordSink is a mock implementation of adharvest.RecordSink.
type RecordSink struct {
	SaveFn func(ctx context.Context, records []*adharvest.ListingRecord) error
}

func (s *RecordSink) Save(ctx context.Context, records []*adharvest.ListingRecord) error {
	return s.SaveFn(ctx, records)
}

var _ adharvest.RecordStore = (*RecordStore)(nil)

// RecordStore is a mock implementation of adharvest.RecordStore.
type RecordStore struct {
	SaveFn    func(ctx context.Context, records []*adharvest.ListingRecord) error
	ContentFn func(ctx context.Context) ([]byte, error)
}

func (s *RecordStore) Save(ctx context.Context, records []*adharvest.ListingRecord) error {
	return s.SaveFn(ctx, records)
}

func (s *RecordStore) Content(ctx context.Context) ([]byte, error) {
	return s.ContentFn(ctx)
}

var _ adharvest.Mirror = (*Mirror)(nil)

// Mirror is a mock implementation of adharvest.Mirror.
type Mirror struct {
	GetFn func(ctx context.Context) (*adharvest.MirrorState, error)
	PutFn func(ctx context.Context, content []byte, revision string, message string) error
}

func (m *Mirror) Get(ctx context.Context) (*adharvest.MirrorState, error) {
	return m.GetFn(ctx)
}

func (m *Mirror) Put(ctx context.Context, content []byte, revision string, message string) error {
	return m.PutFn(ctx, content, revision, message)
}
