// Package prometheus provides Prometheus collectors for the crawler and
// decorators that record them around adharvest service interfaces.
package prometheus

import (
	"net/http"

	"github.com/fwojciec/adharvest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for the outcome counters.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"

	OutcomeExtracted = "extracted"
	OutcomeSkipped   = "skipped"
	OutcomeNoPayload = "no_payload"
	OutcomeError     = "error"

	ResultOK       = "ok"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// Metrics holds every collector the crawler reports.
type Metrics struct {
	Units         *prometheus.CounterVec
	Listings      *prometheus.CounterVec
	Records       prometheus.Counter
	FetchAttempts *prometheus.CounterVec
	MirrorPushes  *prometheus.CounterVec
	Checkpoint    *prometheus.GaugeVec
}

// NewMetrics registers the crawler collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Units: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adharvest_units_total",
				Help: "Total number of crawl units processed, labeled by status.",
			},
			[]string{"status"},
		),
		Listings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adharvest_listings_total",
				Help: "Total number of listing pages extracted, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		Records: f.NewCounter(
			prometheus.CounterOpts{
				Name: "adharvest_records_saved_total",
				Help: "Total number of records persisted by the sink.",
			},
		),
		FetchAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adharvest_fetch_attempts_total",
				Help: "Total number of listing fetches, labeled by result.",
			},
			[]string{"result"},
		),
		MirrorPushes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adharvest_mirror_pushes_total",
				Help: "Total number of mirror pushes, labeled by result.",
			},
			[]string{"result"},
		),
		Checkpoint: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "adharvest_checkpoint",
				Help: "Coordinates of the last saved checkpoint.",
			},
			[]string{"field"},
		),
	}
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) setCheckpoint(cp adharvest.Checkpoint) {
	m.Checkpoint.WithLabelValues("region_index").Set(float64(cp.RegionIndex))
	m.Checkpoint.WithLabelValues("category").Set(float64(cp.CategoryCode))
	m.Checkpoint.WithLabelValues("page").Set(float64(cp.PageNumber))
}
