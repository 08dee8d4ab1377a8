// Package counter tracks per-program view and download counts.
//
// Increments are best effort: a failed increment is logged and counted but
// never turned into a request failure.
package counter

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"programhub/internal/logging"
	"programhub/internal/repository"
)

const (
	eventView     = "view"
	eventDownload = "download"
)

// Tracker increments counters through an atomic repository primitive.
type Tracker struct {
	repo     repository.CounterRepository
	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewTracker creates a Tracker and registers its metrics on reg. A nil reg skips registration.
func NewTracker(repo repository.CounterRepository, reg prometheus.Registerer) (*Tracker, error) {
	t := &Tracker{
		repo: repo,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "programhub",
			Name:      "program_events_total",
			Help:      "Program views and downloads recorded.",
		}, []string{"event"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "programhub",
			Name:      "counter_increment_failures_total",
			Help:      "Counter increments that could not be persisted.",
		}, []string{"counter"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{t.events, t.failures} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// IncrementView adds one view. It returns the new count and whether it was persisted.
func (t *Tracker) IncrementView(ctx context.Context, programID string) (int64, bool) {
	return t.record(ctx, eventView, programID, t.repo.IncrementViews)
}

// IncrementDownload adds one download. It returns the new count and whether it was persisted.
func (t *Tracker) IncrementDownload(ctx context.Context, programID string) (int64, bool) {
	return t.record(ctx, eventDownload, programID, t.repo.IncrementDownloads)
}

func (t *Tracker) record(ctx context.Context, event, programID string, inc func(context.Context, string) (int64, error)) (int64, bool) {
	n, err := inc(ctx, programID)
	if err != nil {
		t.failures.WithLabelValues(event).Inc()
		logging.FromContext(ctx).Warn("counter increment failed",
			"counter", event,
			"program_id", programID,
			"error", err,
		)
		return 0, false
	}
	t.events.WithLabelValues(event).Inc()
	return n, true
}
