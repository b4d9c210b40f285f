package policy

import (
	"testing"
	"time"

	"shadowgraph/internal/models"
)

func claimed(n int64) *int64 { return &n }

func TestEvaluate_NeverScraped(t *testing.T) {
	d := Evaluate(Input{
		ListType:          models.ListFollowing,
		LastRun:           nil,
		Now:               time.Now(),
		MaxAgeDays:        180,
		DeltaThresholdPct: 50,
	})
	if !d.Refresh {
		t.Fatal("expected REFRESH for a seed with no prior metrics")
	}
	if d.Reason != "never scraped" {
		t.Errorf("unexpected reason: %s", d.Reason)
	}
}

func TestEvaluate_SkipFreshWithinDelta(t *testing.T) {
	now := time.Now()
	last := models.ScrapeRunMetrics{
		CompletedAt:  now.Add(-30 * 24 * time.Hour),
		ClaimedCount: 1000,
	}
	d := Evaluate(Input{
		ListType:          models.ListFollowing,
		LastRun:           &last,
		CurrentClaimed:    claimed(1100),
		Now:               now,
		MaxAgeDays:        180,
		DeltaThresholdPct: 50,
	})
	if d.Refresh {
		t.Fatalf("expected SKIP, got REFRESH (%s)", d.Reason)
	}
}

func TestEvaluate_RefreshViaStaleness(t *testing.T) {
	now := time.Now()
	last := models.ScrapeRunMetrics{
		CompletedAt:  now.Add(-200 * 24 * time.Hour),
		ClaimedCount: 1000,
	}
	d := Evaluate(Input{
		ListType:          models.ListFollowing,
		LastRun:           &last,
		CurrentClaimed:    claimed(1000),
		Now:               now,
		MaxAgeDays:        180,
		DeltaThresholdPct: 50,
	})
	if !d.Refresh || d.Reason != "stale" {
		t.Fatalf("expected stale REFRESH, got %+v", d)
	}
}

func TestEvaluate_RefreshViaDelta(t *testing.T) {
	now := time.Now()
	last := models.ScrapeRunMetrics{
		CompletedAt:  now.Add(-10 * 24 * time.Hour),
		ClaimedCount: 100,
	}
	d := Evaluate(Input{
		ListType:          models.ListFollowing,
		LastRun:           &last,
		CurrentClaimed:    claimed(200),
		Now:               now,
		MaxAgeDays:        180,
		DeltaThresholdPct: 50,
	})
	if !d.Refresh {
		t.Fatalf("expected REFRESH via delta, got SKIP")
	}
}

func TestEvaluate_MaxAgeZeroAlwaysRefreshes(t *testing.T) {
	now := time.Now()
	last := models.ScrapeRunMetrics{
		CompletedAt:  now.Add(-1 * time.Hour),
		ClaimedCount: 100,
	}
	d := Evaluate(Input{
		ListType:          models.ListFollowing,
		LastRun:           &last,
		CurrentClaimed:    claimed(100),
		Now:               now,
		MaxAgeDays:        0,
		DeltaThresholdPct: 50,
	})
	if !d.Refresh {
		t.Fatal("expected max_age_days=0 to always refresh when history exists")
	}
}

func TestEvaluate_ZeroLastClaimedNoDivideByZero(t *testing.T) {
	now := time.Now()
	last := models.ScrapeRunMetrics{
		CompletedAt:  now.Add(-1 * 24 * time.Hour),
		ClaimedCount: 0,
	}
	d := Evaluate(Input{
		ListType:          models.ListFollowing,
		LastRun:           &last,
		CurrentClaimed:    claimed(5),
		Now:               now,
		MaxAgeDays:        180,
		DeltaThresholdPct: 50,
	})
	// delta = |5-0|*100/max(0,1) = 500 > 50 -> refresh, and must not panic.
	if !d.Refresh {
		t.Fatalf("expected REFRESH, got %+v", d)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	now := time.Now()
	last := models.ScrapeRunMetrics{CompletedAt: now.Add(-10 * 24 * time.Hour), ClaimedCount: 50}
	in := Input{ListType: models.ListFollowers, LastRun: &last, CurrentClaimed: claimed(55), Now: now, MaxAgeDays: 180, DeltaThresholdPct: 50}
	a := Evaluate(in)
	b := Evaluate(in)
	if a != b {
		t.Fatalf("Evaluate is not pure: %+v != %+v", a, b)
	}
}

func TestApplyConfirmation_DeclinedOverridesRefreshOnly(t *testing.T) {
	decisions := []Decision{
		{ListType: models.ListFollowing, Refresh: true, Reason: "never scraped"},
		{ListType: models.ListFollowers, Refresh: false, Reason: "fresh, within delta"},
	}
	out := ApplyConfirmation(decisions, false)
	if out[0].Refresh {
		t.Error("expected declined confirmation to override REFRESH to SKIP")
	}
	if out[1].Refresh {
		t.Error("existing SKIP must not become REFRESH")
	}
}

func TestEvaluateSeed_AnyRefresh(t *testing.T) {
	now := time.Now()
	fresh := models.ScrapeRunMetrics{CompletedAt: now.Add(-1 * 24 * time.Hour), ClaimedCount: 100}
	inputs := []Input{
		{ListType: models.ListFollowing, LastRun: &fresh, CurrentClaimed: claimed(100), Now: now, MaxAgeDays: 180, DeltaThresholdPct: 50},
		{ListType: models.ListFollowers, LastRun: nil, Now: now, MaxAgeDays: 180, DeltaThresholdPct: 50},
	}
	decisions, any := EvaluateSeed(inputs)
	if !any {
		t.Fatal("expected anyRefresh=true because followers has never been scraped")
	}
	if decisions[0].Refresh {
		t.Error("following should be SKIP")
	}
	if !decisions[1].Refresh {
		t.Error("followers should be REFRESH")
	}
}
