package models

import "time"

// Direction of a follow relationship as observed by a scrape.
type Direction string

const (
	DirectionOutbound Direction = "outbound" // source follows target
	DirectionInbound  Direction = "inbound"  // observed from target's follower-list perspective
)

// ListType identifies which platform list produced an edge.
type ListType string

const (
	ListFollowing          ListType = "following"
	ListFollowers          ListType = "followers"
	ListFollowersYouFollow ListType = "followers_you_follow"
)

// AllListTypes is the default set of lists an EnrichmentPolicy attempts.
func AllListTypes() []ListType {
	return []ListType{ListFollowing, ListFollowers, ListFollowersYouFollow}
}

// ShadowEdge is a directional follow relationship discovered by a scrape.
// Identity is (SourceID, TargetID, Direction, ListType); re-observations
// update CapturedAt and Metadata and never delete the row.
type ShadowEdge struct {
	SourceID     string
	TargetID     string
	Direction    Direction
	ListType     ListType
	SeedUsername string
	CapturedAt   time.Time
	Metadata     map[string]any
}

// EdgeSummary aggregates edge counts for one seed.
type EdgeSummary struct {
	FollowingCount  int64
	FollowersCount  int64
	ReciprocalCount int64
}
