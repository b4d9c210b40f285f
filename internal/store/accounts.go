package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"shadowgraph/internal/models"
)

// UpsertAccount inserts or merges a ShadowAccount using COALESCE
// semantics (spec.md §4.1): a nil field in patch never overwrites an
// existing non-nil value. first_seen_at is set once, on insert, and
// never changed; last_updated_at is bumped on every call. Returns the
// post-merge row.
func (s *Store) UpsertAccount(ctx context.Context, patch models.ShadowAccount) (models.ShadowAccount, error) {
	var result models.ShadowAccount
	err := withRetry(ctx, func() error {
		r, err := s.upsertAccountOnce(ctx, patch)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

func (s *Store) upsertAccountOnce(ctx context.Context, patch models.ShadowAccount) (models.ShadowAccount, error) {
	now := time.Now().UTC()
	logEntry, err := json.Marshal(map[string]any{
		"provenance": patch.Provenance,
		"at":         now,
	})
	if err != nil {
		return models.ShadowAccount{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO shadow_account (
			account_id, username, display_name, bio, location, website,
			profile_image_url, num_followers, num_following, num_tweets, num_likes,
			first_seen_at, last_updated_at, provenance, provenance_log
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12,$13, jsonb_build_array($14::jsonb))
		ON CONFLICT (account_id) DO UPDATE SET
			username          = COALESCE(NULLIF(EXCLUDED.username, ''), shadow_account.username),
			display_name      = COALESCE(EXCLUDED.display_name, shadow_account.display_name),
			bio               = COALESCE(EXCLUDED.bio, shadow_account.bio),
			location          = COALESCE(EXCLUDED.location, shadow_account.location),
			website           = COALESCE(EXCLUDED.website, shadow_account.website),
			profile_image_url = COALESCE(EXCLUDED.profile_image_url, shadow_account.profile_image_url),
			num_followers     = COALESCE(EXCLUDED.num_followers, shadow_account.num_followers),
			num_following     = COALESCE(EXCLUDED.num_following, shadow_account.num_following),
			num_tweets        = COALESCE(EXCLUDED.num_tweets, shadow_account.num_tweets),
			num_likes         = COALESCE(EXCLUDED.num_likes, shadow_account.num_likes),
			last_updated_at   = EXCLUDED.last_updated_at,
			provenance        = 'merged',
			provenance_log    = shadow_account.provenance_log || jsonb_build_array($14::jsonb)
		RETURNING account_id, username, display_name, bio, location, website,
			profile_image_url, num_followers, num_following, num_tweets, num_likes,
			first_seen_at, last_updated_at, provenance`,
		patch.AccountID, patch.Username, patch.DisplayName, patch.Bio, patch.Location, patch.Website,
		patch.ProfileImageURL, patch.NumFollowers, patch.NumFollowing, patch.NumTweets, patch.NumLikes,
		now, patch.Provenance, logEntry,
	)

	var acc models.ShadowAccount
	if err := row.Scan(
		&acc.AccountID, &acc.Username, &acc.DisplayName, &acc.Bio, &acc.Location, &acc.Website,
		&acc.ProfileImageURL, &acc.NumFollowers, &acc.NumFollowing, &acc.NumTweets, &acc.NumLikes,
		&acc.FirstSeenAt, &acc.LastUpdatedAt, &acc.Provenance,
	); err != nil {
		return models.ShadowAccount{}, wrapIntegrity(err)
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO shadow_username_history (account_id, username, observed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, username) DO NOTHING`,
		acc.AccountID, acc.Username, now,
	); err != nil {
		return models.ShadowAccount{}, wrapIntegrity(err)
	}

	return acc, nil
}

// ResolveUsername performs a case-insensitive lookup and returns the
// account_id of the most recently updated account matching username, or
// ("", false) if none matches.
func (s *Store) ResolveUsername(ctx context.Context, username string) (string, bool, error) {
	var accountID string
	err := withRetry(ctx, func() error {
		row := s.pool.QueryRow(ctx, `
			SELECT account_id FROM shadow_account
			WHERE LOWER(username) = LOWER($1)
			ORDER BY last_updated_at DESC
			LIMIT 1`, username)
		scanErr := row.Scan(&accountID)
		if scanErr == pgx.ErrNoRows {
			accountID = ""
			return nil
		}
		return scanErr
	})
	if err != nil {
		return "", false, err
	}
	return accountID, accountID != "", nil
}

// wrapIntegrity tags constraint-violation errors (programmer errors per
// spec.md §4.1) as fatal IntegrityError so withRetry never retries them.
// Any other error (connection loss, lock contention, timeout) is
// returned unwrapped so withRetry's own classification decides whether
// to retry.
func wrapIntegrity(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503", "23514", "23502": // unique/fk/check/not-null violation
			return &IntegrityError{Cause: err}
		}
	}
	return err
}
