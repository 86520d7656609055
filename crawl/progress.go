package crawl

import "github.com/fwojciec/adharvest"

// ProgressEvent reports progress during a crawl run.
type ProgressEvent struct {
	Type      ProgressType
	Unit      adharvest.CrawlUnit
	URL       string
	Records   int
	Completed int
	Total     int
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressUnitStarted ProgressType = iota
	ProgressUnitCompleted
	ProgressUnitFailed
	ProgressRunFinished
)

func (t ProgressType) String() string {
	switch t {
	case ProgressUnitStarted:
		return "started"
	case ProgressUnitCompleted:
		return "completed"
	case ProgressUnitFailed:
		return "failed"
	case ProgressRunFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)
