// Package policy implements the Refresh Policy Evaluator: a pure,
// side-effect-free decision over a seed's per-list scrape history and
// current claimed counts. No I/O happens here — the coordinator fetches
// the last-run metrics from the store and passes them in.
package policy

import (
	"fmt"
	"time"

	"shadowgraph/internal/models"
)

// Decision is REFRESH or SKIP, carrying the reason that produced it.
type Decision struct {
	ListType models.ListType
	Refresh  bool
	Reason   string
}

// Input bundles one list type's inputs to Evaluate.
type Input struct {
	ListType           models.ListType
	LastRun            *models.ScrapeRunMetrics // nil if never scraped
	CurrentClaimed     *int64                    // nil if unknown (e.g. the profile did not expose the count)
	Now                time.Time
	MaxAgeDays         int
	DeltaThresholdPct  float64
}

// Evaluate applies spec.md §4.4's four-step decision rule for one list
// type. It is a pure function of its arguments: same input, same output,
// always.
func Evaluate(in Input) Decision {
	if in.LastRun == nil {
		return Decision{ListType: in.ListType, Refresh: true, Reason: "never scraped"}
	}

	ageDays := in.Now.Sub(in.LastRun.CompletedAt).Hours() / 24
	if ageDays > float64(in.MaxAgeDays) {
		return Decision{ListType: in.ListType, Refresh: true, Reason: "stale"}
	}

	if in.CurrentClaimed != nil {
		last := in.LastRun.ClaimedCount
		denom := last
		if denom < 1 {
			denom = 1
		}
		delta := absInt64(*in.CurrentClaimed-int64(last)) * 100 / int64(denom)
		if float64(delta) > in.DeltaThresholdPct {
			return Decision{
				ListType: in.ListType,
				Refresh:  true,
				Reason:   fmt.Sprintf("delta exceeded (%d%% > %.0f%%)", delta, in.DeltaThresholdPct),
			}
		}
	}

	return Decision{ListType: in.ListType, Refresh: false, Reason: "fresh, within delta"}
}

// EvaluateSeed runs Evaluate across every configured list type and also
// reports whether any list would refresh, for gating the confirmation
// callback. Per-list decisions are authoritative; the aggregate never
// downgrades an individual REFRESH to SKIP.
func EvaluateSeed(inputs []Input) (decisions []Decision, anyRefresh bool) {
	decisions = make([]Decision, 0, len(inputs))
	for _, in := range inputs {
		d := Evaluate(in)
		decisions = append(decisions, d)
		if d.Refresh {
			anyRefresh = true
		}
	}
	return decisions, anyRefresh
}

// ApplyConfirmation overrides every REFRESH decision to SKIP when the
// confirmation callback declined. It never changes an existing SKIP.
func ApplyConfirmation(decisions []Decision, confirmed bool) []Decision {
	if confirmed {
		return decisions
	}
	out := make([]Decision, len(decisions))
	for i, d := range decisions {
		if d.Refresh {
			d.Refresh = false
			d.Reason = "confirmation declined"
		}
		out[i] = d
	}
	return out
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
