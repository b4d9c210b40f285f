package collector

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"shadowgraph/internal/models"
)

// navBurstRate and navBurstSize bound navigation requests independently
// of the per-scroll human-pacing delay: they're the floor that still
// applies even if a caller passes a near-zero DelayMin/DelayMax, so a
// misconfigured run can't hammer page loads back-to-back.
const (
	navBurstRate = 2 * time.Second
	navBurstSize = 1
)

// Collector drives one Session's page through profile and list
// navigation. All DOM interactions are serialized on the underlying
// page, matching spec.md §5's single-shared-resource model.
type Collector struct {
	session    *Session
	baseURL    string
	rng        *rand.Rand
	navLimiter *rate.Limiter
}

// New wraps an open Session. baseURL is the platform's web root, e.g.
// "https://example-platform.test".
func New(session *Session, baseURL string) *Collector {
	return &Collector{
		session:    session,
		baseURL:    strings.TrimRight(baseURL, "/"),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		navLimiter: rate.NewLimiter(rate.Every(navBurstRate), navBurstSize),
	}
}

// CollectionStats summarizes one CollectList invocation (spec.md §4.3
// step 4).
type CollectionStats struct {
	ScrollRounds   int
	StagnantRounds int
	CapturedCount  int
}

// OpenProfile navigates to a profile page and extracts claimed counts
// plus textual profile fields. Navigation is retried once before
// surfacing NavigationFailedError; a gate suspected as anti-automation
// surfaces BlockedError, which callers must treat as run-aborting.
func (c *Collector) OpenProfile(ctx context.Context, username string) (*models.ProfileRecord, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, username)

	if err := c.navigateWithRetry(ctx, url); err != nil {
		return nil, err
	}

	if c.looksBlocked() {
		return nil, &BlockedError{Detail: "anti-automation gate detected on profile page"}
	}
	if c.looksLikeExpiredSession() {
		return nil, &SessionExpiredError{}
	}
	if c.looksNotFound() {
		return nil, &NotFoundError{Username: username}
	}

	rec, err := extractProfile(c.session.page, username)
	if err != nil {
		return nil, fmt.Errorf("collector: extract profile: %w", err)
	}
	return &rec, nil
}

// CollectList navigates to a list view and scrolls to exhaustion,
// following the algorithm in spec.md §4.3. It returns captured members
// in discovery order plus collection stats. ctx cancellation is checked
// between phases and interrupts the pacing sleep promptly.
func (c *Collector) CollectList(ctx context.Context, username string, listType models.ListType, maxScrollRounds int, delayMin, delayMax time.Duration) ([]models.MemberRecord, CollectionStats, error) {
	if maxScrollRounds < 0 {
		maxScrollRounds = 0
	}

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, username, listPath(listType))
	if err := c.navigateWithRetry(ctx, url); err != nil {
		return nil, CollectionStats{}, err
	}
	if c.looksBlocked() {
		return nil, CollectionStats{}, &BlockedError{Detail: "anti-automation gate detected on list page"}
	}
	if c.looksLikeExpiredSession() {
		return nil, CollectionStats{}, &SessionExpiredError{}
	}

	discovered := make(map[string]models.MemberRecord)
	order := make([]string, 0)

	lastHeight, err := c.pageHeight()
	if err != nil {
		return nil, CollectionStats{}, fmt.Errorf("collector: read page height: %w", err)
	}

	stats := CollectionStats{}
	stagnant := 0

	for round := 0; round <= maxScrollRounds; round++ {
		if err := ctx.Err(); err != nil {
			return orderedMembers(discovered, order), stats, err
		}

		entries, err := extractListEntries(c.session.page, round)
		if err != nil {
			return orderedMembers(discovered, order), stats, fmt.Errorf("collector: extract list entries: %w", err)
		}
		for _, m := range entries {
			if _, seen := discovered[m.AccountID]; !seen {
				order = append(order, m.AccountID)
				discovered[m.AccountID] = m
			}
		}
		stats.ScrollRounds = round

		if round == maxScrollRounds {
			break
		}

		if err := c.scroll(1200); err != nil {
			return orderedMembers(discovered, order), stats, fmt.Errorf("collector: scroll: %w", err)
		}

		if !c.sleepInterruptible(ctx, randomDelay(c.rng, delayMin, delayMax)) {
			stats.CapturedCount = len(discovered)
			return orderedMembers(discovered, order), stats, ctx.Err()
		}

		newHeight, err := c.pageHeight()
		if err != nil {
			return orderedMembers(discovered, order), stats, fmt.Errorf("collector: read page height: %w", err)
		}
		if newHeight <= lastHeight {
			stagnant++
			stats.StagnantRounds = stagnant
			if stagnant >= maxScrollRounds {
				break
			}
		} else {
			stagnant = 0
			stats.StagnantRounds = 0
		}
		lastHeight = newHeight
	}

	stats.CapturedCount = len(discovered)
	return orderedMembers(discovered, order), stats, nil
}

func orderedMembers(discovered map[string]models.MemberRecord, order []string) []models.MemberRecord {
	out := make([]models.MemberRecord, 0, len(order))
	for _, id := range order {
		out = append(out, discovered[id])
	}
	return out
}

func listPath(lt models.ListType) string {
	switch lt {
	case models.ListFollowing:
		return "following"
	case models.ListFollowers:
		return "followers"
	case models.ListFollowersYouFollow:
		return "followers_you_follow"
	default:
		return string(lt)
	}
}

func randomDelay(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := max - min
	return min + time.Duration(rng.Int63n(int64(span)))
}

// sleepInterruptible sleeps for d, or returns false early if ctx is
// cancelled, so pacing delays are cooperative suspension points
// (spec.md §5).
func (c *Collector) sleepInterruptible(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (c *Collector) navigateWithRetry(ctx context.Context, url string) error {
	if err := c.navLimiter.Wait(ctx); err != nil {
		return &NavigationFailedError{URL: url, Cause: err}
	}

	err := c.session.page.Context(ctx).Timeout(30 * time.Second).Navigate(url)
	if err == nil {
		err = c.session.page.Context(ctx).Timeout(30 * time.Second).WaitLoad()
	}
	if err == nil {
		return nil
	}

	// Retry once, per spec.md §4.3.
	err2 := c.session.page.Context(ctx).Timeout(30 * time.Second).Navigate(url)
	if err2 == nil {
		err2 = c.session.page.Context(ctx).Timeout(30 * time.Second).WaitLoad()
	}
	if err2 == nil {
		return nil
	}
	return &NavigationFailedError{URL: url, Cause: err2}
}

func (c *Collector) scroll(offsetPx float64) error {
	_, err := c.session.page.Eval(fmt.Sprintf("() => window.scrollBy(0, %f)", offsetPx))
	return err
}

func (c *Collector) pageHeight() (float64, error) {
	res, err := c.session.page.Eval("() => document.body.scrollHeight")
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (c *Collector) looksBlocked() bool {
	res, err := c.session.page.Eval(`() => !!document.querySelector('[data-testid="challenge"]') || document.title.toLowerCase().includes("unusual traffic")`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func (c *Collector) looksLikeExpiredSession() bool {
	res, err := c.session.page.Eval(`() => !!document.querySelector('[data-testid="login-form"]')`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func (c *Collector) looksNotFound() bool {
	res, err := c.session.page.Eval(`() => !!document.querySelector('[data-testid="profile-not-found"]')`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}
