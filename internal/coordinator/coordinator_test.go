package coordinator

import (
	"errors"
	"testing"

	"shadowgraph/internal/collector"
	"shadowgraph/internal/models"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		r    RunResult
		want int
	}{
		{"success", RunResult{SeedsAttempted: 3}, 0},
		{"partial", RunResult{SeedsAttempted: 3, SeedsFailed: 1}, 1},
		{"aborted", RunResult{SeedsAttempted: 3, SeedsFailed: 1, Aborted: true}, 2},
		{"aborted no failures", RunResult{Aborted: true}, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.r.ExitCode(); got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestClaimedCountFor_FollowingUsesNumFollowing(t *testing.T) {
	following := int64(50)
	followers := int64(100)
	profile := models.ProfileRecord{NumFollowing: &following, NumFollowers: &followers}

	if got := claimedCountFor(models.ListFollowing, profile); *got != 50 {
		t.Errorf("following: got %d, want 50", *got)
	}
	if got := claimedCountFor(models.ListFollowers, profile); *got != 100 {
		t.Errorf("followers: got %d, want 100", *got)
	}
	if got := claimedCountFor(models.ListFollowersYouFollow, profile); *got != 100 {
		t.Errorf("followers_you_follow: got %d, want 100", *got)
	}
}

func TestClaimedCountValue_NilYieldsZero(t *testing.T) {
	if got := claimedCountValue(nil); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestEdgeFor_FollowingIsOutbound(t *testing.T) {
	e := edgeFor("seed-1", "member-1", "alice", models.ListFollowing, nil)
	if e.Direction != models.DirectionOutbound {
		t.Errorf("following: got direction %v, want outbound", e.Direction)
	}
	if e.SourceID != "seed-1" || e.TargetID != "member-1" {
		t.Errorf("unexpected endpoints: %+v", e)
	}
}

func TestEdgeFor_FollowersIsInbound(t *testing.T) {
	e := edgeFor("seed-1", "member-1", "alice", models.ListFollowers, nil)
	if e.Direction != models.DirectionInbound {
		t.Errorf("followers: got direction %v, want inbound", e.Direction)
	}
	if e.SourceID != "member-1" || e.TargetID != "seed-1" {
		t.Errorf("followers: endpoints should be member->seed (source=member, target=seed), got source=%q target=%q", e.SourceID, e.TargetID)
	}
}

func TestEdgeFor_FollowersYouFollowIsOutbound(t *testing.T) {
	e := edgeFor("seed-1", "member-1", "alice", models.ListFollowersYouFollow, nil)
	if e.Direction != models.DirectionOutbound {
		t.Errorf("followers_you_follow: got direction %v, want outbound (plain enum, no special meaning)", e.Direction)
	}
}

func TestIsSessionFatal(t *testing.T) {
	if !isSessionFatal(&collector.BlockedError{Detail: "x"}) {
		t.Error("BlockedError should be session-fatal")
	}
	if !isSessionFatal(&collector.SessionExpiredError{}) {
		t.Error("SessionExpiredError should be session-fatal")
	}
	if isSessionFatal(&collector.NotFoundError{Username: "x"}) {
		t.Error("NotFoundError should not be session-fatal")
	}
	if isSessionFatal(errors.New("plain error")) {
		t.Error("plain error should not be session-fatal")
	}
}

func TestSessionAbortReason(t *testing.T) {
	if got := sessionAbortReason(&collector.BlockedError{Detail: "x"}); got != "blocked" {
		t.Errorf("got %q, want blocked", got)
	}
	if got := sessionAbortReason(&collector.SessionExpiredError{}); got != "session_expired" {
		t.Errorf("got %q, want session_expired", got)
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
