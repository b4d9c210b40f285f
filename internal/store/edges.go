package store

import (
	"context"
	"encoding/json"
	"time"

	"shadowgraph/internal/models"
)

// UpsertEdge inserts a ShadowEdge or, if the identity tuple already
// exists, updates captured_at and metadata. Edges are never deleted
// (spec.md §3).
func (s *Store) UpsertEdge(ctx context.Context, edge models.ShadowEdge) error {
	metaJSON, err := json.Marshal(edge.Metadata)
	if err != nil {
		return err
	}
	capturedAt := edge.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}
	return withRetry(ctx, func() error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO shadow_edge (source_id, target_id, direction, list_type, seed_username, captured_at, metadata_json)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (source_id, target_id, direction, list_type) DO UPDATE SET
				captured_at   = EXCLUDED.captured_at,
				metadata_json = EXCLUDED.metadata_json,
				seed_username = EXCLUDED.seed_username`,
			edge.SourceID, edge.TargetID, edge.Direction, edge.ListType, edge.SeedUsername, capturedAt, metaJSON,
		)
		return wrapIntegrity(err)
	})
}

// GetEdgesForSeed returns edges where seed_id participates as source
// (DirectionOutbound) or target (DirectionInbound), ordered by
// captured_at descending.
func (s *Store) GetEdgesForSeed(ctx context.Context, seedID string, direction models.Direction) ([]models.ShadowEdge, error) {
	var edges []models.ShadowEdge
	err := withRetry(ctx, func() error {
		edges = nil
		col := "source_id"
		if direction == models.DirectionInbound {
			col = "target_id"
		}
		rows, err := s.pool.Query(ctx, `
			SELECT source_id, target_id, direction, list_type, seed_username, captured_at, metadata_json
			FROM shadow_edge
			WHERE `+col+` = $1
			ORDER BY captured_at DESC`, seedID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e models.ShadowEdge
			var metaJSON []byte
			if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Direction, &e.ListType, &e.SeedUsername, &e.CapturedAt, &metaJSON); err != nil {
				return err
			}
			if len(metaJSON) > 0 {
				if err := json.Unmarshal(metaJSON, &e.Metadata); err != nil {
					return err
				}
			}
			edges = append(edges, e)
		}
		return rows.Err()
	})
	return edges, err
}

// EdgeSummary aggregates following/followers/reciprocal counts for a
// seed from its edges.
func (s *Store) EdgeSummary(ctx context.Context, seedID string) (models.EdgeSummary, error) {
	var summary models.EdgeSummary
	err := withRetry(ctx, func() error {
		row := s.pool.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (WHERE source_id = $1 AND list_type = 'following'),
				COUNT(*) FILTER (WHERE target_id = $1 AND list_type = 'followers'),
				COUNT(*) FILTER (WHERE list_type = 'followers_you_follow' AND (source_id = $1 OR target_id = $1))
			FROM shadow_edge
			WHERE source_id = $1 OR target_id = $1`, seedID)
		return row.Scan(&summary.FollowingCount, &summary.FollowersCount, &summary.ReciprocalCount)
	})
	return summary, err
}
