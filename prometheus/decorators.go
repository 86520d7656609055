package prometheus

import (
	"context"

	"github.com/fwojciec/adharvest"
)

// Ensure decorators implement their interfaces at compile time.
var (
	_ adharvest.Fetcher         = (*Fetcher)(nil)
	_ adharvest.Extractor       = (*Extractor)(nil)
	_ adharvest.RecordSink      = (*Sink)(nil)
	_ adharvest.Mirror          = (*Mirror)(nil)
	_ adharvest.ScanRunner      = (*Runner)(nil)
	_ adharvest.CheckpointStore = (*CheckpointStore)(nil)
)

// Fetcher counts fetch results.
type Fetcher struct {
	next    adharvest.Fetcher
	metrics *Metrics
}

// NewFetcher wraps next.
func NewFetcher(next adharvest.Fetcher, m *Metrics) *Fetcher {
	return &Fetcher{next: next, metrics: m}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, err := f.next.Fetch(ctx, url)
	if err != nil {
		f.metrics.FetchAttempts.WithLabelValues(ResultError).Inc()
		return body, err
	}
	f.metrics.FetchAttempts.WithLabelValues(ResultOK).Inc()
	return body, nil
}

func (f *Fetcher) Close() error {
	return f.next.Close()
}

// Extractor counts extraction outcomes.
type Extractor struct {
	next    adharvest.Extractor
	metrics *Metrics
}

// NewExtractor wraps next.
func NewExtractor(next adharvest.Extractor, m *Metrics) *Extractor {
	return &Extractor{next: next, metrics: m}
}

func (e *Extractor) Extract(html string) (*adharvest.ListingRecord, error) {
	rec, err := e.next.Extract(html)
	outcome := OutcomeExtracted
	switch {
	case err == nil:
	case adharvest.ErrorCode(err) == adharvest.EINVALID:
		outcome = OutcomeSkipped
	case adharvest.ErrorCode(err) == adharvest.ENOPAYLOAD:
		outcome = OutcomeNoPayload
	default:
		outcome = OutcomeError
	}
	e.metrics.Listings.WithLabelValues(outcome).Inc()
	return rec, err
}

// Sink counts persisted records.
type Sink struct {
	next    adharvest.RecordSink
	metrics *Metrics
}

// NewSink wraps next.
func NewSink(next adharvest.RecordSink, m *Metrics) *Sink {
	return &Sink{next: next, metrics: m}
}

func (s *Sink) Save(ctx context.Context, records []*adharvest.ListingRecord) error {
	if err := s.next.Save(ctx, records); err != nil {
		return err
	}
	s.metrics.Records.Add(float64(len(records)))
	return nil
}

// Mirror counts push results.
type Mirror struct {
	next    adharvest.Mirror
	metrics *Metrics
}

// NewMirror wraps next.
func NewMirror(next adharvest.Mirror, m *Metrics) *Mirror {
	return &Mirror{next: next, metrics: m}
}

func (m *Mirror) Get(ctx context.Context) (*adharvest.MirrorState, error) {
	return m.next.Get(ctx)
}

func (m *Mirror) Put(ctx context.Context, content []byte, revision string, message string) error {
	err := m.next.Put(ctx, content, revision, message)
	switch {
	case err == nil:
		m.metrics.MirrorPushes.WithLabelValues(ResultOK).Inc()
	case adharvest.ErrorCode(err) == adharvest.ECONFLICT:
		m.metrics.MirrorPushes.WithLabelValues(ResultConflict).Inc()
	default:
		m.metrics.MirrorPushes.WithLabelValues(ResultError).Inc()
	}
	return err
}

// Runner counts unit outcomes as scan results arrive.
type Runner struct {
	next    adharvest.ScanRunner
	metrics *Metrics
}

// NewRunner wraps next.
func NewRunner(next adharvest.ScanRunner, m *Metrics) *Runner {
	return &Runner{next: next, metrics: m}
}

func (r *Runner) Start(ctx context.Context, pageURL string) <-chan adharvest.ScanResult {
	in := r.next.Start(ctx, pageURL)
	out := make(chan adharvest.ScanResult, 1)
	go func() {
		defer close(out)
		res, ok := <-in
		if !ok {
			r.metrics.Units.WithLabelValues(StatusFailed).Inc()
			return
		}
		if res.Err != nil {
			r.metrics.Units.WithLabelValues(StatusFailed).Inc()
		} else {
			r.metrics.Units.WithLabelValues(StatusSucceeded).Inc()
		}
		out <- res
	}()
	return out
}

// CheckpointStore publishes every saved checkpoint as a gauge.
type CheckpointStore struct {
	next    adharvest.CheckpointStore
	metrics *Metrics
}

// NewCheckpointStore wraps next.
func NewCheckpointStore(next adharvest.CheckpointStore, m *Metrics) *CheckpointStore {
	return &CheckpointStore{next: next, metrics: m}
}

func (s *CheckpointStore) Load(ctx context.Context) (adharvest.Checkpoint, error) {
	cp, err := s.next.Load(ctx)
	s.metrics.setCheckpoint(cp)
	return cp, err
}

func (s *CheckpointStore) Save(ctx context.Context, cp adharvest.Checkpoint) error {
	if err := s.next.Save(ctx, cp); err != nil {
		return err
	}
	s.metrics.setCheckpoint(cp)
	return nil
}

func (s *CheckpointStore) Reset(ctx context.Context) error {
	if err := s.next.Reset(ctx); err != nil {
		return err
	}
	cp, err := s.next.Load(ctx)
	if err == nil {
		s.metrics.setCheckpoint(cp)
	}
	return nil
}
