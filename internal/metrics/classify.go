// Package metrics implements the Run Metrics Recorder (C6): classifying
// failures into the ErrorType taxonomy and summarizing recorded runs for
// operator visibility.
package metrics

import (
	"context"
	"errors"
	"strings"

	"shadowgraph/internal/apiclient"
	"shadowgraph/internal/collector"
	"shadowgraph/internal/models"
)

// Classify maps an error returned by the Collector or API client into the
// ErrorType taxonomy recorded on a ScrapeRunMetrics row. Unrecognized
// errors fall back to ErrorUnknown rather than failing the write.
func Classify(err error) models.ErrorType {
	if err == nil {
		return models.ErrorUnknown
	}

	var navErr *collector.NavigationFailedError
	var blockedErr *collector.BlockedError
	var sessionErr *collector.SessionExpiredError
	var rateLimitErr *apiclient.RateLimitedError
	var transientErr *apiclient.TransientServerError
	var unauthorizedErr *apiclient.UnauthorizedError
	var malformedErr *apiclient.MalformedResponseError

	switch {
	case errors.As(err, &navErr):
		return models.ErrorNavigation
	case errors.As(err, &blockedErr):
		return models.ErrorBlocked
	case errors.As(err, &sessionErr):
		return models.ErrorSession
	case errors.As(err, &rateLimitErr):
		return models.ErrorRateLimit
	case errors.As(err, &transientErr), errors.As(err, &unauthorizedErr):
		return models.ErrorAPIHTTP
	case errors.As(err, &malformedErr):
		return models.ErrorAPIDecode
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return models.ErrorTimeout
	case errors.Is(err, context.Canceled):
		return models.ErrorInterrupted
	case isDOMParseError(err):
		return models.ErrorDOMParse
	default:
		return models.ErrorUnknown
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	var t timeouter
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline exceeded")
}

func isDOMParseError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "extract profile") || strings.Contains(msg, "extract list entries")
}
