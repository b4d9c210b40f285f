package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"shadowgraph/internal/models"
)

// RecordRunMetrics appends one ScrapeRunMetrics row (spec.md §4.1:
// append-only, never updated).
func (s *Store) RecordRunMetrics(ctx context.Context, m models.ScrapeRunMetrics) error {
	coverage := m.CoverageRatio()
	return withRetry(ctx, func() error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO shadow_run_metrics (
				seed_id, list_type, started_at, completed_at, captured_count, claimed_count,
				coverage_ratio, scroll_rounds, stagnant_rounds, error_type, error_details, skipped
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			m.SeedID, m.ListType, m.StartedAt, m.CompletedAt, m.CapturedCount, m.ClaimedCount,
			coverage, m.ScrollRounds, m.StagnantRounds, m.ErrorType, m.ErrorDetails, m.Skipped,
		)
		return wrapIntegrity(err)
	})
}

// GetLastScrapeMetrics returns the most recent non-skipped metrics row
// for (seedID, listType), or (nil, nil) if none exists.
func (s *Store) GetLastScrapeMetrics(ctx context.Context, seedID string, listType models.ListType) (*models.ScrapeRunMetrics, error) {
	var result *models.ScrapeRunMetrics
	err := withRetry(ctx, func() error {
		result = nil
		row := s.pool.QueryRow(ctx, `
			SELECT seed_id, list_type, started_at, completed_at, captured_count, claimed_count,
				scroll_rounds, stagnant_rounds, error_type, error_details, skipped
			FROM shadow_run_metrics
			WHERE seed_id = $1 AND list_type = $2 AND skipped = FALSE
			ORDER BY completed_at DESC
			LIMIT 1`, seedID, listType)

		var m models.ScrapeRunMetrics
		scanErr := row.Scan(&m.SeedID, &m.ListType, &m.StartedAt, &m.CompletedAt, &m.CapturedCount,
			&m.ClaimedCount, &m.ScrollRounds, &m.StagnantRounds, &m.ErrorType, &m.ErrorDetails, &m.Skipped)
		if scanErr == pgx.ErrNoRows {
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		result = &m
		return nil
	})
	return result, err
}
