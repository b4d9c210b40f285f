// Package apiclient implements the Rate-Limited API Client (C2):
// sliding-window-throttled profile and list-member fetches over a REST
// API, grounded on the teacher's plain net/http request pattern
// (internal/market/cryptocompare.go) and its withRetry exponential
// backoff idiom (internal/flow/client.go).
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"shadowgraph/internal/models"
	"shadowgraph/internal/ratelimit"
)

// Config configures the Client.
type Config struct {
	BaseURL        string
	BearerToken    string
	Limiter        *ratelimit.Limiter
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// Client executes profile and list-member fetches under the sliding
// window rate limiter. All calls are safe to retry (read-only requests).
type Client struct {
	baseURL     string
	bearerToken string
	limiter     *ratelimit.Limiter
	httpClient  *http.Client
	timeout     time.Duration
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		bearerToken: cfg.BearerToken,
		limiter:     cfg.Limiter,
		httpClient:  httpClient,
		timeout:     timeout,
	}
}

type profileResponse struct {
	AccountID       string  `json:"account_id"`
	Username        string  `json:"username"`
	DisplayName     *string `json:"display_name"`
	Bio             *string `json:"bio"`
	Location        *string `json:"location"`
	Website         *string `json:"website"`
	ProfileImageURL *string `json:"profile_image_url"`
	NumFollowers    *int64  `json:"num_followers"`
	NumFollowing    *int64  `json:"num_following"`
	NumTweets       *int64  `json:"num_tweets"`
	NumLikes        *int64  `json:"num_likes"`
}

func (p profileResponse) toRecord() models.ProfileRecord {
	return models.ProfileRecord{
		AccountID:       p.AccountID,
		Username:        p.Username,
		DisplayName:     p.DisplayName,
		Bio:             p.Bio,
		Location:        p.Location,
		Website:         p.Website,
		ProfileImageURL: p.ProfileImageURL,
		NumFollowers:    p.NumFollowers,
		NumFollowing:    p.NumFollowing,
		NumTweets:       p.NumTweets,
		NumLikes:        p.NumLikes,
	}
}

// FetchProfile returns the profile for accountID, or (nil, nil) if the
// API answers 404 (spec.md §4.2: NotFound is not an error).
func (c *Client) FetchProfile(ctx context.Context, accountID string) (*models.ProfileRecord, error) {
	var out *profileResponse
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/accounts/%s", accountID), &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	rec := out.toRecord()
	return &rec, nil
}

// FetchProfilesBatch fetches up to max IDs per API call, returning a
// mapping of account_id to profile. IDs are chunked client-side so one
// logical call maps to one HTTP request per chunk.
func (c *Client) FetchProfilesBatch(ctx context.Context, ids []string, max int) (map[string]models.ProfileRecord, error) {
	if max <= 0 {
		max = 100
	}
	result := make(map[string]models.ProfileRecord, len(ids))
	for start := 0; start < len(ids); start += max {
		end := start + max
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		var out []profileResponse
		err := c.doJSONWithBody(ctx, http.MethodPost, "/v1/accounts/batch", map[string]any{"ids": chunk}, &out)
		if err != nil {
			return nil, err
		}
		for _, p := range out {
			result[p.AccountID] = p.toRecord()
		}
	}
	return result, nil
}

type listMemberResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// FetchListMembers returns the member IDs/usernames of a platform list.
// The Coordinator does not call it; its API use is limited to the
// profile backfill.
func (c *Client) FetchListMembers(ctx context.Context, listID string) ([]models.MemberRecord, error) {
	var out []listMemberResponse
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/lists/%s/members", listID), &out)
	if err != nil {
		return nil, err
	}
	members := make([]models.MemberRecord, 0, len(out))
	for i, m := range out {
		members = append(members, models.MemberRecord{AccountID: m.AccountID, Username: m.Username, TileRank: i})
	}
	return members, nil
}

// doJSON performs a GET and decodes a JSON body into out. A 404 leaves
// *out as the zero value without returning an error (caller distinguishes
// not-found via nil-ness or empty-ness of out).
func (c *Client) doJSON(ctx context.Context, method, path string, out any) error {
	return c.doJSONWithBody(ctx, method, path, nil, out)
}

func (c *Client) doJSONWithBody(ctx context.Context, method, path string, body any, out any) error {
	const maxAttempts = 4 // one initial attempt plus up to three retries
	backoff := time.Second

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx); err != nil {
				return err
			}
		}

		err := c.attempt(ctx, method, path, body, out)
		if err == nil {
			return nil
		}

		var rl *RateLimitedError
		if asRateLimited(err, &rl) {
			if attempt == maxAttempts-1 {
				return err
			}
			if !sleepCtx(ctx, rl.RetryAfter) {
				return ctx.Err()
			}
			continue
		}

		var transient *TransientServerError
		if asTransient(err, &transient) {
			if attempt == maxAttempts-1 {
				return err
			}
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff *= 2
			continue
		}

		// Unauthorized, MalformedResponse, NotFound-as-nil-result, or any
		// other error is not retried.
		return err
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method, path string, body any, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &MalformedResponseError{Cause: err}
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientServerError{Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil // caller's out stays zero-valued; not an error
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &UnauthorizedError{StatusCode: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &TransientServerError{Cause: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("api: unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &MalformedResponseError{Cause: err}
	}
	return nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func asRateLimited(err error, target **RateLimitedError) bool {
	if rl, ok := err.(*RateLimitedError); ok {
		*target = rl
		return true
	}
	return false
}

func asTransient(err error, target **TransientServerError) bool {
	if t, ok := err.(*TransientServerError); ok {
		*target = t
		return true
	}
	return false
}
