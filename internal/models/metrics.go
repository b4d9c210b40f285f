package models

import "time"

// ErrorType classifies a failure observed during a scrape run, for
// aggregation by the Run Metrics Recorder.
type ErrorType string

const (
	ErrorNavigation  ErrorType = "navigation"
	ErrorBlocked     ErrorType = "blocked"
	ErrorSession     ErrorType = "session"
	ErrorDOMParse    ErrorType = "dom_parse"
	ErrorRateLimit   ErrorType = "rate_limit"
	ErrorTimeout     ErrorType = "timeout"
	ErrorInterrupted ErrorType = "interrupted"
	ErrorAPIHTTP     ErrorType = "api_http"
	ErrorAPIDecode   ErrorType = "api_decode"
	ErrorUnknown     ErrorType = "unknown"
)

// ScrapeRunMetrics is one append-only row per (seed, list_type, run).
type ScrapeRunMetrics struct {
	SeedID         string
	ListType       ListType
	StartedAt      time.Time
	CompletedAt    time.Time
	CapturedCount  int
	ClaimedCount   int
	ScrollRounds   int
	StagnantRounds int
	ErrorType      *ErrorType
	ErrorDetails   *string
	Skipped        bool
}

// CoverageRatio returns CapturedCount/ClaimedCount, or 0 when either side
// is non-positive (never divides by zero).
func (m ScrapeRunMetrics) CoverageRatio() float64 {
	if m.CapturedCount <= 0 || m.ClaimedCount <= 0 {
		return 0
	}
	ratio := float64(m.CapturedCount) / float64(m.ClaimedCount)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}
