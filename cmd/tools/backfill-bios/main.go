// Command backfill-bios drains shadow_account rows with a missing bio
// through the API client in batches, for accounts that were only ever
// captured as a list member (account ID, username, tile counts) and never
// had their own profile opened. Grounded on the teacher's
// cmd/tools/backfill_account_keys standalone-backfill idiom: a flag-
// configured, one-shot batch loop reading DB_URL-style env vars.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"shadowgraph/internal/apiclient"
	"shadowgraph/internal/config"
	"shadowgraph/internal/models"
	"shadowgraph/internal/ratelimit"
	"shadowgraph/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "", "path to YAML config (for db/api connection settings)")
		bearerToken = flag.String("bearer-token", "", "API bearer token")
		batchSize   = flag.Int("batch", 100, "account IDs per API call")
		limit       = flag.Int("limit", 1000, "max accounts to backfill this run (0 = no limit)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("[backfill-bios] config error: %v", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("[backfill-bios] store connect failed: %v", err)
		return 1
	}
	defer st.Close()

	limiter, err := ratelimit.New(
		time.Duration(cfg.RateLimitWindowSeconds)*time.Second,
		cfg.RateLimitMax,
		cfg.RateLimitStatePath,
	)
	if err != nil {
		log.Printf("[backfill-bios] rate limiter init failed: %v", err)
		return 1
	}
	api := apiclient.New(apiclient.Config{
		BaseURL:     cfg.APIBaseURL,
		BearerToken: *bearerToken,
		Limiter:     limiter,
	})

	queryLimit := *limit
	if queryLimit <= 0 {
		queryLimit = 1_000_000
	}
	ids, err := st.AccountIDsMissingBio(ctx, queryLimit)
	if err != nil {
		log.Printf("[backfill-bios] query failed: %v", err)
		return 1
	}
	if len(ids) == 0 {
		log.Println("[backfill-bios] no accounts missing a bio")
		return 0
	}
	log.Printf("[backfill-bios] backfilling %d accounts in batches of %d", len(ids), *batchSize)

	var updated, failed int
	for start := 0; start < len(ids); start += *batchSize {
		end := start + *batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		profiles, err := api.FetchProfilesBatch(ctx, batch, *batchSize)
		if err != nil {
			log.Printf("[backfill-bios] batch %d-%d failed: %v", start, end, err)
			failed += len(batch)
			continue
		}
		for _, id := range batch {
			profile, ok := profiles[id]
			if !ok {
				failed++
				continue
			}
			if _, err := st.UpsertAccount(ctx, profile.ToShadowAccount(models.ProvenanceAPI)); err != nil {
				log.Printf("[backfill-bios] upsert %s failed: %v", id, err)
				failed++
				continue
			}
			updated++
		}
		log.Printf("[backfill-bios] progress %d/%d updated=%d failed=%d", end, len(ids), updated, failed)
	}

	log.Printf("[backfill-bios] done updated=%d failed=%d", updated, failed)
	if failed > 0 && updated == 0 {
		return 1
	}
	return 0
}
