package mock

import (
	"context"

	"github.com/fwojciec/adharvest"
)

var _ adharvest.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore is a mock implementation of adharvest.CheckpointStore.
type CheckpointStore struct {
	LoadFn  func(ctx context.Context) (adharvest.Checkpoint, error)
	SaveFn  func(ctx context.Context, cp adharvest.Checkpoint) error
	ResetFn func(ctx context.Context) error
}

func (s *CheckpointStore) Load(ctx context.Context) (adharvest.Checkpoint, error) {
	return s.LoadFn(ctx)
}

func (s *CheckpointStore) Save(ctx context.Context, cp adharvest.Checkpoint) error {
	return s.SaveFn(ctx, cp)
}

func (s *CheckpointStore) Reset(ctx context.Context) error {
	return s.ResetFn(ctx)
}
