package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shadowgraph/internal/apiclient"
	"shadowgraph/internal/collector"
	"shadowgraph/internal/config"
	"shadowgraph/internal/coordinator"
	"shadowgraph/internal/metrics"
	"shadowgraph/internal/models"
	"shadowgraph/internal/ratelimit"
	"shadowgraph/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath          = flag.String("config", "", "path to YAML policy/connection config")
		center              = flag.String("center", "", "seed username to prioritize")
		seedsFile           = flag.String("seeds-file", "", "path to a newline-delimited seed username file")
		maxScrolls          = flag.Int("max-scrolls", 6, "max scroll rounds per list")
		delayMin            = flag.Duration("delay-min", 4*time.Second, "minimum scroll pacing delay")
		delayMax            = flag.Duration("delay-max", 9*time.Second, "maximum scroll pacing delay")
		noReciprocal        = flag.Bool("no-followers-you-follow", false, "skip the followers_you_follow list")
		maxAgeDays          = flag.Int("max-age-days", 0, "override policy max_age_days (0 = use config)")
		deltaThresholdPct   = flag.Float64("delta-threshold-pct", 0, "override policy delta_threshold_pct (0 = use config)")
		requireConfirmation = flag.Bool("require-confirmation", false, "prompt before scraping each seed")
		autoConfirmFirst    = flag.Bool("auto-confirm-first", false, "auto-approve the first seed's confirmation prompt")
		enableAPIFallback   = flag.Bool("enable-api-fallback", false, "backfill missing bios via the API client")
		bearerToken         = flag.String("bearer-token", "", "API bearer token")
		cookiesPath         = flag.String("cookies", "", "path to a JSON cookie export")
		chromeBinary        = flag.String("chrome-binary", "", "path to a Chrome/Chromium binary")
		headless            = flag.Bool("headless", true, "run the browser headless")
		quiet               = flag.Bool("quiet", false, "hide the per-list decision lines shown with each confirmation prompt (per-list run summaries are still logged)")
		metricsAddr         = flag.String("metrics-addr", "", "if set, serve GET /metrics/summary on this address")
	)
	flag.Parse()

	if *cookiesPath == "" {
		log.Println("[CLI] configuration error: --cookies is required")
		return 3
	}
	seeds, err := resolveSeeds(*center, *seedsFile)
	if err != nil {
		log.Printf("[CLI] configuration error: %v", err)
		return 3
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("[CLI] configuration error: %v", err)
		return 3
	}
	applyFlagOverrides(&cfg, *noReciprocal, *maxAgeDays, *deltaThresholdPct)
	if *requireConfirmation {
		cfg.Policy.RequireConfirmation = true
	}

	log.Printf("[CLI] database: %s", redactURL(cfg.DatabaseURL))
	log.Printf("[CLI] api base: %s", cfg.APIBaseURL)
	log.Printf("[CLI] seeds: %d", len(seeds))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("[CLI] store connect failed: %v", err)
		return 3
	}
	defer st.Close()
	if err := st.Migrate(ctx, "internal/store/schema.sql"); err != nil {
		log.Printf("[CLI] store migration failed: %v", err)
		return 3
	}

	session, err := collector.Open(collector.Config{
		ChromeBinary:    *chromeBinary,
		Headless:        *headless,
		CookiesPath:     *cookiesPath,
		DelayMin:        *delayMin,
		DelayMax:        *delayMax,
		MaxScrollRounds: *maxScrolls,
	})
	if err != nil {
		log.Printf("[CLI] browser session failed to open: %v", err)
		return 2
	}
	defer session.Close()

	coll := collector.New(session, cfg.PlatformBaseURL)

	var apiClient *apiclient.Client
	if *enableAPIFallback {
		limiter, err := ratelimit.New(
			time.Duration(cfg.RateLimitWindowSeconds)*time.Second,
			cfg.RateLimitMax,
			cfg.RateLimitStatePath,
		)
		if err != nil {
			log.Printf("[CLI] rate limiter init failed: %v", err)
			return 3
		}
		apiClient = apiclient.New(apiclient.Config{
			BaseURL:     cfg.APIBaseURL,
			BearerToken: *bearerToken,
			Limiter:     limiter,
		})
	}

	if *metricsAddr != "" {
		startMetricsServer(*metricsAddr, metrics.NewRecorder(st))
	}

	co := coordinator.New(coordinator.Config{
		Store:             st,
		Collector:         coll,
		APIClient:         apiClient,
		Policy:            cfg.Policy,
		Confirm:           consoleConfirm(*quiet),
		AutoConfirmFirst:  *autoConfirmFirst,
		EnableAPIFallback: *enableAPIFallback,
		MaxScrollRounds:   *maxScrolls,
		DelayMin:          *delayMin,
		DelayMax:          *delayMax,
	})

	result := co.Run(ctx, seeds)
	log.Printf("[CLI] run complete: attempted=%d failed=%d aborted=%v reason=%q",
		result.SeedsAttempted, result.SeedsFailed, result.Aborted, result.AbortReason)
	return result.ExitCode()
}

func resolveSeeds(center, seedsFile string) ([]string, error) {
	var seeds []string
	if center != "" {
		seeds = append(seeds, center)
	}
	if seedsFile != "" {
		data, err := os.ReadFile(seedsFile)
		if err != nil {
			return nil, fmt.Errorf("read seeds file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || line == center {
				continue
			}
			seeds = append(seeds, line)
		}
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds given: pass --center or --seeds-file")
	}
	return seeds, nil
}

func applyFlagOverrides(cfg *config.Config, noReciprocal bool, maxAgeDays int, deltaThresholdPct float64) {
	if maxAgeDays > 0 {
		cfg.Policy.MaxAgeDays = maxAgeDays
	}
	if deltaThresholdPct > 0 {
		cfg.Policy.DeltaThresholdPct = deltaThresholdPct
	}
	if noReciprocal {
		filtered := cfg.Policy.ListTypes[:0]
		for _, lt := range cfg.Policy.ListTypes {
			if lt != models.ListFollowersYouFollow {
				filtered = append(filtered, lt)
			}
		}
		cfg.Policy.ListTypes = filtered
	}
}

// consoleConfirm implements coordinator.ConfirmFunc as an interactive
// console prompt, matching spec.md §4.4's confirmation-gate contract.
func consoleConfirm(quiet bool) func(preview coordinator.SeedPreview) bool {
	return func(preview coordinator.SeedPreview) bool {
		if !quiet {
			log.Printf("[CLI] seed=%s confirmation requested:", preview.Username)
			for _, d := range preview.Decisions {
				log.Printf("[CLI]   list=%s refresh=%v reason=%q", d.ListType, d.Refresh, d.Reason)
			}
		}
		fmt.Printf("Proceed scraping %s? [y/N] ", preview.Username)
		var answer string
		fmt.Scanln(&answer)
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

func startMetricsServer(addr string, recorder *metrics.Recorder) {
	mux := http.NewServeMux()
	mux.Handle("/metrics/summary", recorder.Handler())
	go func() {
		log.Printf("[CLI] metrics server listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[CLI] metrics server stopped: %v", err)
		}
	}()
}

func redactURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	if u.User != nil {
		user := u.User.Username()
		if user == "" {
			user = "user"
		}
		u.User = url.UserPassword(user, "****")
	}
	return u.String()
}
