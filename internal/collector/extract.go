package collector

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-rod/rod"

	"shadowgraph/internal/models"
)

// embeddedProfilePayload mirrors the structured JSON a profile page
// embeds (e.g. a `<script id="profile-data" type="application/json">`
// tag). Parser tolerates missing optional fields per spec.md §4.3 — none
// of bio/location/website ever fail the whole record.
type embeddedProfilePayload struct {
	AccountID    string `json:"account_id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	Bio          string `json:"bio"`
	Location     string `json:"location"`
	Website      string `json:"website"`
	ProfileImage string `json:"profile_image_url"`
	Followers    *int64 `json:"followers_count"`
	Following    *int64 `json:"following_count"`
	Tweets       *int64 `json:"tweets_count"`
	Likes        *int64 `json:"likes_count"`
}

// profileDataSelector is the documented selector for the embedded JSON
// payload; domSelectors is the fallback set used when it is absent.
const profileDataSelector = `script#profile-data`

var domSelectors = struct {
	DisplayName string
	Bio         string
	Location    string
	Website     string
	Followers   string
	Following   string
	Tweets      string
}{
	DisplayName: `[data-testid="profile-display-name"]`,
	Bio:         `[data-testid="profile-bio"]`,
	Location:    `[data-testid="profile-location"]`,
	Website:     `[data-testid="profile-website"]`,
	Followers:   `[data-testid="profile-followers-count"]`,
	Following:   `[data-testid="profile-following-count"]`,
	Tweets:      `[data-testid="profile-tweets-count"]`,
}

// extractProfile prefers the embedded JSON payload and falls back to DOM
// selectors. A missing optional field never fails the whole record.
func extractProfile(page *rod.Page, username string) (models.ProfileRecord, error) {
	if el, err := page.Element(profileDataSelector); err == nil && el != nil {
		if text, err := el.Text(); err == nil && strings.TrimSpace(text) != "" {
			var payload embeddedProfilePayload
			if err := json.Unmarshal([]byte(text), &payload); err == nil && payload.AccountID != "" {
				return payload.toProfileRecord(), nil
			}
		}
	}
	return extractProfileFromDOM(page, username)
}

func (p embeddedProfilePayload) toProfileRecord() models.ProfileRecord {
	rec := models.ProfileRecord{
		AccountID:    p.AccountID,
		Username:     p.Username,
		NumFollowers: p.Followers,
		NumFollowing: p.Following,
		NumTweets:    p.Tweets,
		NumLikes:     p.Likes,
	}
	if p.DisplayName != "" {
		rec.DisplayName = &p.DisplayName
	}
	if p.Bio != "" {
		rec.Bio = &p.Bio
	}
	if p.Location != "" {
		rec.Location = &p.Location
	}
	if p.Website != "" {
		rec.Website = &p.Website
	}
	if p.ProfileImage != "" {
		rec.ProfileImageURL = &p.ProfileImage
	}
	return rec
}

// extractProfileFromDOM is the documented-selector fallback. Every field
// read is best-effort: an element that fails to resolve is simply
// omitted, never a hard error.
func extractProfileFromDOM(page *rod.Page, username string) (models.ProfileRecord, error) {
	rec := models.ProfileRecord{Username: username}

	if v := textOrNil(page, domSelectors.DisplayName); v != nil {
		rec.DisplayName = v
	}
	if v := textOrNil(page, domSelectors.Bio); v != nil {
		rec.Bio = v
	}
	if v := textOrNil(page, domSelectors.Location); v != nil {
		rec.Location = v
	}
	if v := textOrNil(page, domSelectors.Website); v != nil {
		rec.Website = v
	}
	if v := countOrNil(page, domSelectors.Followers); v != nil {
		rec.NumFollowers = v
	}
	if v := countOrNil(page, domSelectors.Following); v != nil {
		rec.NumFollowing = v
	}
	if v := countOrNil(page, domSelectors.Tweets); v != nil {
		rec.NumTweets = v
	}
	return rec, nil
}

func textOrNil(page *rod.Page, selector string) *string {
	el, err := page.Element(selector)
	if err != nil || el == nil {
		return nil
	}
	text, err := el.Text()
	if err != nil {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &text
}

func countOrNil(page *rod.Page, selector string) *int64 {
	text := textOrNil(page, selector)
	if text == nil {
		return nil
	}
	n, err := parseApproxCount(*text)
	if err != nil {
		return nil
	}
	return &n
}

// parseApproxCount parses platform-formatted counts like "1,234",
// "12.3K", or "4.1M" into an exact-enough int64.
func parseApproxCount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	multiplier := 1.0
	switch suffix := s[len(s)-1:]; suffix {
	case "K", "k":
		multiplier = 1_000
		s = s[:len(s)-1]
	case "M", "m":
		multiplier = 1_000_000
		s = s[:len(s)-1]
	case "B", "b":
		multiplier = 1_000_000_000
		s = s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f * multiplier), nil
}

// listEntrySelector and its member sub-selectors describe one rendered
// row of a following/followers/reciprocal list.
const listEntrySelector = `[data-testid="list-entry"]`

var listEntryFields = struct {
	AccountID   string
	Username    string
	DisplayName string
	Followers   string
}{
	AccountID:   "data-account-id",
	Username:    `[data-testid="list-entry-username"]`,
	DisplayName: `[data-testid="list-entry-display-name"]`,
	Followers:   `[data-testid="list-entry-followers-count"]`,
}

// extractListEntries reads every currently-rendered list row into
// member records, tagging each with the current scroll round for
// provenance (spec.md §10 edge metadata enrichment).
func extractListEntries(page *rod.Page, scrollRound int) ([]models.MemberRecord, error) {
	elements, err := page.Elements(listEntrySelector)
	if err != nil {
		return nil, err
	}
	members := make([]models.MemberRecord, 0, len(elements))
	for i, el := range elements {
		accountID, err := el.Attribute(listEntryFields.AccountID)
		if err != nil || accountID == nil || *accountID == "" {
			continue // tolerate malformed rows rather than failing the whole batch
		}
		member := models.MemberRecord{
			AccountID:   *accountID,
			ScrollRound: scrollRound,
			TileRank:    i,
		}
		if v := textOrNilFromChild(el, listEntryFields.Username); v != nil {
			member.Username = *v
		}
		if v := textOrNilFromChild(el, listEntryFields.DisplayName); v != nil {
			member.DisplayName = v
		}
		if v := countOrNilFromChild(el, listEntryFields.Followers); v != nil {
			member.NumFollowers = v
		}
		members = append(members, member)
	}
	return members, nil
}

func textOrNilFromChild(el *rod.Element, selector string) *string {
	child, err := el.Element(selector)
	if err != nil || child == nil {
		return nil
	}
	text, err := child.Text()
	if err != nil {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &text
}

func countOrNilFromChild(el *rod.Element, selector string) *int64 {
	text := textOrNilFromChild(el, selector)
	if text == nil {
		return nil
	}
	n, err := parseApproxCount(*text)
	if err != nil {
		return nil
	}
	return &n
}
