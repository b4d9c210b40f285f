package store

import "context"

// AccountIDsMissingBio returns up to limit account IDs whose bio column
// is still NULL, oldest-first-seen first, for the backfill-bios tool to
// drain through the API client.
func (s *Store) AccountIDsMissingBio(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := withRetry(ctx, func() error {
		ids = nil
		rows, err := s.pool.Query(ctx, `
			SELECT account_id FROM shadow_account
			WHERE bio IS NULL
			ORDER BY first_seen_at ASC
			LIMIT $1`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// DeleteRunMetricsForSeed removes every shadow_run_metrics row recorded
// for seedID and returns the number of rows deleted, so a seed's refresh
// history can be reset and its next evaluation treated as never-scraped.
func (s *Store) DeleteRunMetricsForSeed(ctx context.Context, seedID string) (int64, error) {
	var n int64
	err := withRetry(ctx, func() error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM shadow_run_metrics WHERE seed_id = $1`, seedID)
		if err != nil {
			return wrapIntegrity(err)
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}
