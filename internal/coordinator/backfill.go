package coordinator

import (
	"context"
	"log"

	"shadowgraph/internal/models"
)

// drainBackfillQueue runs after all seeds (spec.md §4.5 step 7),
// draining enqueued account_ids through the API Client in batches and
// merge-upserting the resulting profiles. Failures are logged and
// non-fatal (spec.md §4.5: "API backfill failures are logged but
// non-fatal").
func (c *Coordinator) drainBackfillQueue(ctx context.Context) {
	if !c.enableAPIFallback || c.api == nil || len(c.backfillQueue) == 0 {
		return
	}

	ids := dedupe(c.backfillQueue)
	log.Printf("[Coordinator] draining backfill queue: %d accounts", len(ids))

	for start := 0; start < len(ids); start += c.backfillBatchSize {
		end := start + c.backfillBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		profiles, err := c.api.FetchProfilesBatch(ctx, batch, c.backfillBatchSize)
		if err != nil {
			log.Printf("[Coordinator] backfill batch [%d:%d] fetch failed: %v", start, end, err)
			continue
		}
		for accountID, profile := range profiles {
			if _, err := c.store.UpsertAccount(ctx, profile.ToShadowAccount(models.ProvenanceAPI)); err != nil {
				log.Printf("[Coordinator] backfill upsert failed for %s: %v", accountID, err)
			}
		}
	}

	c.backfillQueue = nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
