// Package coordinator implements the Enrichment Coordinator (C5): the
// only component that combines I/O with orchestration logic, driving
// seeds sequentially through the Policy Evaluator, Collector, API
// Client, and Store. Grounded on the teacher's ingester service loop
// shape (internal/ingester/service.go's Start/process sequencing,
// internal/ingester/worker.go's fetch-and-return-result pattern)
// generalized from block-by-block chain indexing to seed-by-seed graph
// scraping.
package coordinator

import (
	"context"
	"errors"
	"log"
	"time"

	"shadowgraph/internal/apiclient"
	"shadowgraph/internal/collector"
	"shadowgraph/internal/metrics"
	"shadowgraph/internal/models"
	"shadowgraph/internal/policy"
	"shadowgraph/internal/store"
)

// ConfirmFunc previews a seed's scrape decisions and returns whether the
// caller approves proceeding. A false return overrides every REFRESH
// decision to SKIP for this seed (spec.md §4.4).
type ConfirmFunc func(preview SeedPreview) bool

// SeedPreview is the payload handed to ConfirmFunc.
type SeedPreview struct {
	Username  string
	Profile   models.ProfileRecord
	Decisions []policy.Decision
}

// Config wires the Coordinator's dependencies and policy.
type Config struct {
	Store             *store.Store
	Collector         *collector.Collector
	APIClient         *apiclient.Client // nil disables API fallback entirely
	Policy            models.EnrichmentPolicy
	Confirm           ConfirmFunc
	AutoConfirmFirst  bool
	EnableAPIFallback bool
	BackfillBatchSize int
	MaxScrollRounds   int
	DelayMin          time.Duration
	DelayMax          time.Duration
}

// Coordinator is the Enrichment Coordinator (C5).
type Coordinator struct {
	store             *store.Store
	collector         *collector.Collector
	api               *apiclient.Client
	policy            models.EnrichmentPolicy
	confirm           ConfirmFunc
	autoConfirmFirst  bool
	enableAPIFallback bool
	backfillBatchSize int
	maxScrollRounds   int
	delayMin          time.Duration
	delayMax          time.Duration

	backfillQueue []string
	seedsSeen     int
}

// New constructs a Coordinator from Config, applying defaults.
func New(cfg Config) *Coordinator {
	batchSize := cfg.BackfillBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxScrollRounds := cfg.MaxScrollRounds
	if maxScrollRounds <= 0 {
		maxScrollRounds = 6
	}
	delayMin := cfg.DelayMin
	if delayMin <= 0 {
		delayMin = 4 * time.Second
	}
	delayMax := cfg.DelayMax
	if delayMax <= 0 {
		delayMax = 9 * time.Second
	}
	return &Coordinator{
		store:             cfg.Store,
		collector:         cfg.Collector,
		api:               cfg.APIClient,
		policy:            cfg.Policy,
		confirm:           cfg.Confirm,
		autoConfirmFirst:  cfg.AutoConfirmFirst,
		enableAPIFallback: cfg.EnableAPIFallback,
		backfillBatchSize: batchSize,
		maxScrollRounds:   maxScrollRounds,
		delayMin:          delayMin,
		delayMax:          delayMax,
	}
}

// RunResult summarizes one batch invocation, mapping to spec.md §6's
// exit codes: 0 success, 1 partial, 2 aborted, 3 configuration error
// (configuration errors are raised before Run is ever called).
type RunResult struct {
	SeedsAttempted int
	SeedsFailed    int
	Aborted        bool
	AbortReason    string
}

// ExitCode maps RunResult to the CLI's documented exit codes.
func (r RunResult) ExitCode() int {
	switch {
	case r.Aborted:
		return 2
	case r.SeedsFailed > 0:
		return 1
	default:
		return 0
	}
}

// Run drives every seed sequentially within the single shared browser
// session (spec.md §5: no parallelism across seeds). It stops early on
// Blocked, SessionExpired, or context cancellation, and always drains
// the API backfill queue before returning (unless aborted by a session-
// level failure, in which case a best-effort drain is still attempted).
func (c *Coordinator) Run(ctx context.Context, seeds []string) RunResult {
	result := RunResult{}

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			result.Aborted = true
			result.AbortReason = "interrupted"
			break
		}

		result.SeedsAttempted++
		aborted, abortReason, failed := c.processSeed(ctx, seed)
		if failed {
			result.SeedsFailed++
		}
		if aborted {
			result.Aborted = true
			result.AbortReason = abortReason
			break
		}
	}

	c.drainBackfillQueue(ctx)
	return result
}

// processSeed runs the full per-seed procedure (spec.md §4.5). It
// returns (aborted, reason, failed): aborted means the whole run must
// stop; failed means this seed did not complete cleanly but other seeds
// may still proceed.
func (c *Coordinator) processSeed(ctx context.Context, username string) (aborted bool, reason string, failed bool) {
	c.seedsSeen++
	log.Printf("[Coordinator] seed=%s starting", username)

	profile, err := c.collector.OpenProfile(ctx, username)
	if err != nil {
		if isSessionFatal(err) {
			c.recordProfileFailureMetrics(username, err)
			return true, sessionAbortReason(err), true
		}
		log.Printf("[Coordinator] seed=%s profile fetch failed: %v", username, err)
		c.recordProfileFailureMetrics(username, err)
		return false, "", true
	}

	seedAccount, err := c.store.UpsertAccount(ctx, profile.ToShadowAccount(models.ProvenanceScrape))
	if err != nil {
		log.Printf("[Coordinator] seed=%s account upsert failed: %v", username, err)
		return false, "", true
	}

	inputs := make([]policy.Input, 0, len(c.policy.ListTypes))
	now := time.Now().UTC()
	for _, lt := range c.policy.ListTypes {
		lastRun, err := c.store.GetLastScrapeMetrics(ctx, seedAccount.AccountID, lt)
		if err != nil {
			log.Printf("[Coordinator] seed=%s list=%s last-run lookup failed: %v", username, lt, err)
		}
		inputs = append(inputs, policy.Input{
			ListType:          lt,
			LastRun:           lastRun,
			CurrentClaimed:    claimedCountFor(lt, *profile),
			Now:               now,
			MaxAgeDays:        c.policy.MaxAgeDays,
			DeltaThresholdPct: c.policy.DeltaThresholdPct,
		})
	}
	decisions, anyRefresh := policy.EvaluateSeed(inputs)

	if anyRefresh && c.policy.RequireConfirmation && c.confirm != nil {
		autoApprove := c.autoConfirmFirst && c.seedsSeen == 1
		if !autoApprove {
			approved := c.confirm(SeedPreview{Username: username, Profile: *profile, Decisions: decisions})
			decisions = policy.ApplyConfirmation(decisions, approved)
		}
	}

	seedFailed := false
	for _, d := range decisions {
		if !d.Refresh {
			c.recordSkip(ctx, seedAccount.AccountID, d)
			continue
		}
		if err := ctx.Err(); err != nil {
			c.recordInterrupted(seedAccount.AccountID, d.ListType, claimedCountValue(claimedCountFor(d.ListType, *profile)))
			return true, "interrupted", true
		}

		listErr := c.runList(ctx, username, seedAccount.AccountID, d.ListType, claimedCountFor(d.ListType, *profile))
		if listErr != nil {
			if isSessionFatal(listErr) {
				return true, sessionAbortReason(listErr), true
			}
			seedFailed = true
		}
	}

	return false, "", seedFailed
}

// runList executes one REFRESH decision: collect, upsert stub accounts
// and edges in discovery order, enqueue bios for backfill, and record
// the run's metrics row.
func (c *Coordinator) runList(ctx context.Context, seedUsername, seedAccountID string, listType models.ListType, claimed *int64) error {
	startedAt := time.Now().UTC()

	members, stats, err := c.collector.CollectList(ctx, seedUsername, listType, c.maxScrollRounds, c.delayMin, c.delayMax)

	for i, m := range members {
		metadata := map[string]any{"scroll_round": m.ScrollRound, "tile_rank": m.TileRank}
		stub := models.ShadowAccount{
			AccountID:    m.AccountID,
			Username:     m.Username,
			NumFollowers: m.NumFollowers,
			NumFollowing: m.NumFollowing,
			Provenance:   models.ProvenanceScrape,
		}
		stored, upErr := c.store.UpsertAccount(ctx, stub)
		if upErr != nil {
			log.Printf("[Coordinator] seed=%s list=%s member[%d] account upsert failed: %v", seedUsername, listType, i, upErr)
			continue
		}

		edge := edgeFor(seedAccountID, m.AccountID, seedUsername, listType, metadata)
		if edgeErr := c.store.UpsertEdge(ctx, edge); edgeErr != nil {
			log.Printf("[Coordinator] seed=%s list=%s member[%d] edge upsert failed: %v", seedUsername, listType, i, edgeErr)
			continue
		}

		if c.enableAPIFallback && stored.Bio == nil {
			c.backfillQueue = append(c.backfillQueue, m.AccountID)
		}
	}

	completedAt := time.Now().UTC()
	var errType *models.ErrorType
	var errDetails *string
	if err != nil {
		t := metrics.Classify(err)
		errType = &t
		d := err.Error()
		errDetails = &d
	}

	metricsErr := c.store.RecordRunMetrics(ctx, models.ScrapeRunMetrics{
		SeedID:         seedAccountID,
		ListType:       listType,
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
		CapturedCount:  stats.CapturedCount,
		ClaimedCount:   int(claimedCountValue(claimed)),
		ScrollRounds:   stats.ScrollRounds,
		StagnantRounds: stats.StagnantRounds,
		ErrorType:      errType,
		ErrorDetails:   errDetails,
		Skipped:        false,
	})
	if metricsErr != nil {
		log.Printf("[Coordinator] seed=%s list=%s metrics record failed: %v", seedUsername, listType, metricsErr)
	}

	log.Printf("[Coordinator] seed=%s list=%s captured=%d claimed=%d scroll_rounds=%d duration=%s",
		seedUsername, listType, stats.CapturedCount, claimedCountValue(claimed), stats.ScrollRounds, completedAt.Sub(startedAt))

	// Any collection error is propagated after its metrics row is
	// recorded: the caller aborts the run on a session-fatal one
	// (Blocked, SessionExpired) and otherwise marks the seed as partial
	// rather than reporting a clean success (e.g. NavigationFailedError, a
	// dom_parse failure).
	return err
}

func (c *Coordinator) recordSkip(ctx context.Context, seedAccountID string, d policy.Decision) {
	now := time.Now().UTC()
	if err := c.store.RecordRunMetrics(ctx, models.ScrapeRunMetrics{
		SeedID:      seedAccountID,
		ListType:    d.ListType,
		StartedAt:   now,
		CompletedAt: now,
		Skipped:     true,
	}); err != nil {
		log.Printf("[Coordinator] seed=%s list=%s skip metrics record failed: %v", seedAccountID, d.ListType, err)
	}
}

// recordInterrupted always writes against context.Background(): the run
// context is already cancelled by the time this is called, and the
// interrupted-run metrics row (spec.md §5) must still land.
func (c *Coordinator) recordInterrupted(seedAccountID string, listType models.ListType, claimed int64) {
	now := time.Now().UTC()
	errType := models.ErrorInterrupted
	detail := "run cancelled"
	if err := c.store.RecordRunMetrics(context.Background(), models.ScrapeRunMetrics{
		SeedID:       seedAccountID,
		ListType:     listType,
		StartedAt:    now,
		CompletedAt:  now,
		ClaimedCount: int(claimed),
		ErrorType:    &errType,
		ErrorDetails: &detail,
		Skipped:      false,
	}); err != nil {
		log.Printf("[Coordinator] seed=%s list=%s interrupted metrics record failed: %v", seedAccountID, listType, err)
	}
}

// recordProfileFailureMetrics likewise uses context.Background(): the
// seed's profile fetch already failed, and callers may be racing a
// cancelled ctx if that failure was itself a cancellation.
func (c *Coordinator) recordProfileFailureMetrics(username string, err error) {
	errType := metrics.Classify(err)
	detail := err.Error()
	now := time.Now().UTC()
	for _, lt := range c.policy.ListTypes {
		if recErr := c.store.RecordRunMetrics(context.Background(), models.ScrapeRunMetrics{
			SeedID:       username,
			ListType:     lt,
			StartedAt:    now,
			CompletedAt:  now,
			ErrorType:    &errType,
			ErrorDetails: &detail,
			Skipped:      false,
		}); recErr != nil {
			log.Printf("[Coordinator] seed=%s list=%s profile-failure metrics record failed: %v", username, lt, recErr)
		}
	}
}

func isSessionFatal(err error) bool {
	var blocked *collector.BlockedError
	var expired *collector.SessionExpiredError
	return errors.As(err, &blocked) || errors.As(err, &expired)
}

func sessionAbortReason(err error) string {
	var blocked *collector.BlockedError
	if errors.As(err, &blocked) {
		return "blocked"
	}
	return "session_expired"
}

func claimedCountFor(lt models.ListType, profile models.ProfileRecord) *int64 {
	switch lt {
	case models.ListFollowing:
		return profile.NumFollowing
	default:
		return profile.NumFollowers
	}
}

func claimedCountValue(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// edgeFor builds the follow edge for one collected member. For inbound
// edges (ListFollowers: member follows seed) the member is source_id and
// the seed is target_id, matching the Store's read side
// (GetEdgesForSeed, EdgeSummary), which both look up a seed's followers
// by target_id.
func edgeFor(seedAccountID, memberAccountID, seedUsername string, listType models.ListType, metadata map[string]any) models.ShadowEdge {
	if listType == models.ListFollowers {
		return models.ShadowEdge{
			SourceID:     memberAccountID,
			TargetID:     seedAccountID,
			Direction:    models.DirectionInbound,
			ListType:     listType,
			SeedUsername: seedUsername,
			CapturedAt:   time.Now().UTC(),
			Metadata:     metadata,
		}
	}
	return models.ShadowEdge{
		SourceID:     seedAccountID,
		TargetID:     memberAccountID,
		Direction:    models.DirectionOutbound,
		ListType:     listType,
		SeedUsername: seedUsername,
		CapturedAt:   time.Now().UTC(),
		Metadata:     metadata,
	}
}
