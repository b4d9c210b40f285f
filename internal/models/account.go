// Package models defines the data types persisted by the shadow store and
// exchanged between the collector, API client, policy evaluator, and
// coordinator.
package models

import "time"

// Provenance records where a ShadowAccount's current field values came
// from.
type Provenance string

const (
	ProvenanceScrape Provenance = "scrape"
	ProvenanceAPI    Provenance = "api"
	ProvenanceMerged Provenance = "merged"
)

// ShadowAccount is a profile on the external platform, identified by an
// opaque, stable account ID. Username is mutable; AccountID is
// authoritative.
type ShadowAccount struct {
	AccountID        string
	Username         string
	DisplayName      *string
	Bio              *string
	Location         *string
	Website          *string
	ProfileImageURL  *string
	NumFollowers     *int64
	NumFollowing     *int64
	NumTweets        *int64
	NumLikes         *int64
	FirstSeenAt      time.Time
	LastUpdatedAt    time.Time
	Provenance       Provenance
}

// Merge applies COALESCE semantics: for each nullable field, a nil value
// in patch leaves the receiver's existing value untouched; a non-nil
// value overwrites it. FirstSeenAt and AccountID are never changed by a
// merge. The caller is responsible for setting LastUpdatedAt and
// Provenance on the result.
func (a ShadowAccount) Merge(patch ShadowAccount) ShadowAccount {
	merged := a
	if patch.Username != "" {
		merged.Username = patch.Username
	}
	merged.DisplayName = coalesce(a.DisplayName, patch.DisplayName)
	merged.Bio = coalesce(a.Bio, patch.Bio)
	merged.Location = coalesce(a.Location, patch.Location)
	merged.Website = coalesce(a.Website, patch.Website)
	merged.ProfileImageURL = coalesce(a.ProfileImageURL, patch.ProfileImageURL)
	merged.NumFollowers = coalesceInt(a.NumFollowers, patch.NumFollowers)
	merged.NumFollowing = coalesceInt(a.NumFollowing, patch.NumFollowing)
	merged.NumTweets = coalesceInt(a.NumTweets, patch.NumTweets)
	merged.NumLikes = coalesceInt(a.NumLikes, patch.NumLikes)
	return merged
}

// coalesce keeps existing unless patch supplies a non-nil replacement.
// Each field is modeled explicitly rather than via a reflection-based
// "copy all non-nil fields" helper, per the merge invariant: a generic
// copier obscures which fields are actually mergeable.
func coalesce(existing, patch *string) *string {
	if patch == nil {
		return existing
	}
	return patch
}

func coalesceInt(existing, patch *int64) *int64 {
	if patch == nil {
		return existing
	}
	return patch
}
