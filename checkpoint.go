package adharvest

import "context"

// CheckpointStore persists the singleton crawl checkpoint. Stores are
// constructed with the checkpoint of the first unit of the crawl space.
type CheckpointStore interface {
	// Load returns the stored checkpoint, or the initial checkpoint if
	// none has been stored. Returns ECORRUPT, along with the initial
	// checkpoint, if the stored value cannot be decoded.
	Load(ctx context.Context) (Checkpoint, error)

	// Save replaces the stored checkpoint.
	Save(ctx context.Context, cp Checkpoint) error

	// Reset replaces the stored checkpoint with the initial one.
	Reset(ctx context.Context) error
}
