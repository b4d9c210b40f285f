package models

// EnrichmentPolicy is run configuration, not persisted per run.
type EnrichmentPolicy struct {
	MaxAgeDays          int        `yaml:"max_age_days"`
	DeltaThresholdPct   float64    `yaml:"delta_threshold_pct"`
	RequireConfirmation bool       `yaml:"require_confirmation"`
	ListTypes           []ListType `yaml:"list_types"`
}

// DefaultPolicy mirrors spec.md §3's documented defaults.
func DefaultPolicy() EnrichmentPolicy {
	return EnrichmentPolicy{
		MaxAgeDays:          180,
		DeltaThresholdPct:   50,
		RequireConfirmation: false,
		ListTypes:           AllListTypes(),
	}
}

// ProfileRecord is the structured profile data returned by either the
// Collector's profile scrape or the API client's profile fetch.
type ProfileRecord struct {
	AccountID       string
	Username        string
	DisplayName     *string
	Bio             *string
	Location        *string
	Website         *string
	ProfileImageURL *string
	NumFollowers    *int64
	NumFollowing    *int64
	NumTweets       *int64
	NumLikes        *int64
}

// ToShadowAccount converts a freshly fetched profile into a ShadowAccount
// patch suitable for Store.UpsertAccount. FirstSeenAt/LastUpdatedAt are
// left zero; the store fills them in on upsert.
func (p ProfileRecord) ToShadowAccount(prov Provenance) ShadowAccount {
	return ShadowAccount{
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
		Provenance:      prov,
	}
}

// MemberRecord is one entry captured from a follow/follower list.
type MemberRecord struct {
	AccountID    string
	Username     string
	DisplayName  *string
	NumFollowers *int64
	NumFollowing *int64
	ScrollRound  int
	TileRank     int
}
