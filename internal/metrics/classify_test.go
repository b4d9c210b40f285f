package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shadowgraph/internal/apiclient"
	"shadowgraph/internal/collector"
	"shadowgraph/internal/models"
)

func TestClassify_CollectorErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want models.ErrorType
	}{
		{"navigation", &collector.NavigationFailedError{URL: "x", Cause: errors.New("boom")}, models.ErrorNavigation},
		{"blocked", &collector.BlockedError{Detail: "gate"}, models.ErrorBlocked},
		{"session", &collector.SessionExpiredError{}, models.ErrorSession},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(c.err); got != c.want {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestClassify_APIErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want models.ErrorType
	}{
		{"rate_limited", &apiclient.RateLimitedError{RetryAfter: time.Second}, models.ErrorRateLimit},
		{"unauthorized", &apiclient.UnauthorizedError{StatusCode: 401}, models.ErrorAPIHTTP},
		{"transient", &apiclient.TransientServerError{Cause: errors.New("502")}, models.ErrorAPIHTTP},
		{"malformed", &apiclient.MalformedResponseError{Cause: errors.New("bad json")}, models.ErrorAPIDecode},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(c.err); got != c.want {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestClassify_ContextErrors(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got != models.ErrorTimeout {
		t.Errorf("deadline exceeded: got %v, want timeout", got)
	}
	if got := Classify(context.Canceled); got != models.ErrorInterrupted {
		t.Errorf("canceled: got %v, want interrupted", got)
	}
}

func TestClassify_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("collector: extract profile: %w", errors.New("selector vanished"))
	if got := Classify(wrapped); got != models.ErrorDOMParse {
		t.Errorf("got %v, want dom_parse", got)
	}
}

func TestClassify_UnknownFallsBack(t *testing.T) {
	if got := Classify(errors.New("something unmapped")); got != models.ErrorUnknown {
		t.Errorf("got %v, want unknown", got)
	}
}

func TestClassify_NilIsUnknown(t *testing.T) {
	if got := Classify(nil); got != models.ErrorUnknown {
		t.Errorf("got %v, want unknown", got)
	}
}
