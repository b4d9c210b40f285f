package store

import (
	"context"
	"time"

	"shadowgraph/internal/models"
)

// RunSummary aggregates shadow_run_metrics rows over a time window, for
// the Run Metrics Recorder's (C6) operator-facing summary.
type RunSummary struct {
	RunCount     int64
	SeedCount    int64
	SuccessRate  float64
	MeanCoverage float64
	ErrorCounts  map[models.ErrorType]int64
}

// SummarizeRuns aggregates all non-skipped run metrics rows with
// completed_at >= since, grounded on the teacher's
// internal/repository/metrics_stats.go aggregate-query shape.
func (s *Store) SummarizeRuns(ctx context.Context, since time.Time) (RunSummary, error) {
	summary := RunSummary{ErrorCounts: make(map[models.ErrorType]int64)}

	err := withRetry(ctx, func() error {
		summary = RunSummary{ErrorCounts: make(map[models.ErrorType]int64)}

		row := s.pool.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (WHERE NOT skipped),
				COUNT(DISTINCT seed_id) FILTER (WHERE NOT skipped),
				COALESCE(AVG(CASE WHEN error_type IS NULL AND NOT skipped THEN 1.0 ELSE 0.0 END)
					FILTER (WHERE NOT skipped), 0),
				COALESCE(AVG(coverage_ratio) FILTER (WHERE NOT skipped), 0)
			FROM shadow_run_metrics
			WHERE completed_at >= $1`, since)

		if err := row.Scan(&summary.RunCount, &summary.SeedCount, &summary.SuccessRate, &summary.MeanCoverage); err != nil {
			return wrapIntegrity(err)
		}

		rows, err := s.pool.Query(ctx, `
			SELECT error_type, COUNT(*)
			FROM shadow_run_metrics
			WHERE completed_at >= $1 AND error_type IS NOT NULL AND NOT skipped
			GROUP BY error_type`, since)
		if err != nil {
			return wrapIntegrity(err)
		}
		defer rows.Close()

		for rows.Next() {
			var et models.ErrorType
			var count int64
			if err := rows.Scan(&et, &count); err != nil {
				return err
			}
			summary.ErrorCounts[et] = count
		}
		return rows.Err()
	})

	return summary, err
}
