// Command reset-seed-metrics deletes every shadow_run_metrics row for a
// given seed, so its next run starts from never-scraped (no
// last-scrape lookup will find history, and the refresh evaluator falls
// back to its never-scraped rule). Grounded on the teacher's
// cmd/tools/reset_checkpoint, which does the analogous single-row
// checkpoint delete for one named service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"shadowgraph/internal/config"
	"shadowgraph/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to YAML config (for db connection settings)")
		seedID     = flag.String("seed-id", "", "account_id of the seed to reset (required)")
	)
	flag.Parse()

	if *seedID == "" {
		log.Println("[reset-seed-metrics] --seed-id is required")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("[reset-seed-metrics] config error: %v", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("[reset-seed-metrics] store connect failed: %v", err)
		return 1
	}
	defer st.Close()

	n, err := st.DeleteRunMetricsForSeed(ctx, *seedID)
	if err != nil {
		log.Printf("[reset-seed-metrics] delete failed: %v", err)
		return 1
	}

	if n == 0 {
		fmt.Printf("no metrics found for seed %q; it may already be unscraped\n", *seedID)
		return 0
	}
	fmt.Printf("deleted %d metrics row(s) for seed %q; next evaluation treats it as never-scraped\n", n, *seedID)
	return 0
}
