package crawl

import (
	"context"
	"sync"

	"github.com/fwojciec/adharvest"
)

// Phase is the coordinator's position in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseDispatching
	PhaseWaiting
	PhaseCompleted
	PhaseFailed
	PhaseDraining
	PhasePersisted
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseDispatching:
		return "dispatching"
	case PhaseWaiting:
		return "waiting"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseDraining:
		return "draining"
	case PhasePersisted:
		return "persisted"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// CrawlState is the progress shared by the crawl loop and the interrupt
// watcher. Checkpoints committed through it never move backwards, and once
// sealed no further commits reach the store.
type CrawlState struct {
	store adharvest.CheckpointStore

	mu        sync.Mutex
	unit      adharvest.CrawlUnit
	hasUnit   bool
	committed *adharvest.CrawlUnit
	phase     Phase
	sealed    bool
}

// NewCrawlState returns an idle state persisting to store.
func NewCrawlState(store adharvest.CheckpointStore) *CrawlState {
	return &CrawlState{store: store}
}

// Begin records u as the unit in flight unless the state has been sealed.
func (s *CrawlState) Begin(u adharvest.CrawlUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.unit = u
	s.hasUnit = true
	s.phase = PhaseDispatching
}

// SetPhase moves the state to p unless it has been sealed.
func (s *CrawlState) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.phase = p
}

// Snapshot returns the unit in flight, whether one has begun, and the phase.
func (s *CrawlState) Snapshot() (adharvest.CrawlUnit, bool, Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unit, s.hasUnit, s.phase
}

// Sealed reports whether the state has been sealed by an interrupt.
func (s *CrawlState) Sealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed
}

// Commit persists u as the checkpoint. Commits after Seal are dropped.
// Returns EINVALID if u precedes the last committed unit.
func (s *CrawlState) Commit(ctx context.Context, u adharvest.CrawlUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return nil
	}
	if s.committed != nil && u.Less(*s.committed) {
		return adharvest.Errorf(adharvest.EINVALID, "checkpoint %s precedes %s", u, *s.committed)
	}
	if err := s.store.Save(ctx, u.Checkpoint()); err != nil {
		return err
	}
	s.committed = &u
	return nil
}

// Seal persists the unit in flight and blocks further commits. The write
// is detached from ctx so it survives the cancellation that triggered it.
// Sealing after Reset or a previous Seal does nothing.
func (s *CrawlState) Seal(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed || s.phase == PhaseTerminated {
		return nil
	}
	s.sealed = true
	s.phase = PhaseDraining
	if s.hasUnit {
		if err := s.store.Save(context.WithoutCancel(ctx), s.unit.Checkpoint()); err != nil {
			return err
		}
	}
	s.phase = PhasePersisted
	return nil
}

// Reset returns the stored checkpoint to the initial unit and terminates
// the state. Returns EINTERRUPTED without touching the store once sealed.
func (s *CrawlState) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return adharvest.Errorf(adharvest.EINTERRUPTED, "checkpoint reset skipped after interrupt")
	}
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.phase = PhaseTerminated
	return nil
}
