package metrics

import (
	"context"
	"time"

	"shadowgraph/internal/store"
)

// Recorder is the Run Metrics Recorder (C6): a thin façade over the
// Shadow Store's aggregate query, kept separate from internal/store so
// error classification and summarization can evolve independently of
// raw persistence (spec.md §4.1 vs §4.5).
type Recorder struct {
	store *store.Store
}

// NewRecorder wraps an open Store.
func NewRecorder(s *store.Store) *Recorder {
	return &Recorder{store: s}
}

// Summary is the JSON-serializable shape returned by /metrics/summary.
type Summary struct {
	WindowDays   int              `json:"window_days"`
	Runs         int64            `json:"runs"`
	Seeds        int64            `json:"seeds"`
	SuccessRate  float64          `json:"success_rate"`
	MeanCoverage float64          `json:"mean_coverage"`
	ErrorCounts  map[string]int64 `json:"error_counts"`
}

// Summarize aggregates run metrics over the trailing windowDays.
func (r *Recorder) Summarize(ctx context.Context, windowDays int) (Summary, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	agg, err := r.store.SummarizeRuns(ctx, since)
	if err != nil {
		return Summary{}, err
	}

	errCounts := make(map[string]int64, len(agg.ErrorCounts))
	for et, count := range agg.ErrorCounts {
		errCounts[string(et)] = count
	}

	return Summary{
		WindowDays:   windowDays,
		Runs:         agg.RunCount,
		Seeds:        agg.SeedCount,
		SuccessRate:  agg.SuccessRate,
		MeanCoverage: agg.MeanCoverage,
		ErrorCounts:  errCounts,
	}, nil
}
