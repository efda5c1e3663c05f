package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/forgelink/forgelink/internal/database/dbretry"
	"github.com/forgelink/forgelink/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SuggestionModel handles database operations for cached AI suggestions.
type SuggestionModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSuggestion creates a SuggestionModel for managing suggestion cache entries.
func NewSuggestion(db *bun.DB, logger *zap.Logger) *SuggestionModel {
	return &SuggestionModel{
		db:     db,
		logger: logger.Named("db_suggestion"),
	}
}

// Get retrieves a user's suggestion cache entry.
// Returns types.ErrSuggestionNotFound when the user has no entry.
func (r *SuggestionModel) Get(ctx context.Context, userID uint64) (*types.SuggestionCache, error) {
	var entry types.SuggestionCache

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&entry).
			Where("user_id = ?", userID).
			Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrSuggestionNotFound
		}

		return nil, fmt.Errorf("failed to get suggestion cache for user %d: %w", userID, err)
	}

	return &entry, nil
}

// Upsert creates or overwrites the cache entry for a user in a single statement.
// The entry comes back valid with both timestamps set to now.
func (r *SuggestionModel) Upsert(
	ctx context.Context, userID uint64, projectIdeas []string, skillRoadmap string,
) (*types.SuggestionCache, error) {
	now := time.Now()
	entry := &types.SuggestionCache{
		UserID:        userID,
		ProjectIdeas:  projectIdeas,
		SkillRoadmap:  skillRoadmap,
		IsValid:       true,
		LastGenerated: now,
		UpdatedAt:     now,
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(entry).
			On("CONFLICT (user_id) DO UPDATE").
			Set("project_ideas = EXCLUDED.project_ideas").
			Set("skill_roadmap = EXCLUDED.skill_roadmap").
			Set("is_valid = EXCLUDED.is_valid").
			Set("last_generated = EXCLUDED.last_generated").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert suggestion cache for user %d: %w", userID, err)
	}

	r.logger.Debug("Stored suggestion cache entry",
		zap.Uint64("userID", userID),
		zap.Int("projectIdeas", len(projectIdeas)))

	return entry, nil
}

// Invalidate flips a user's cache entry to invalid without discarding the
// last good payload. Missing entries are a no-op.
func (r *SuggestionModel) Invalidate(ctx context.Context, userID uint64) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewUpdate().
			Model((*types.SuggestionCache)(nil)).
			Set("is_valid = false").
			Where("user_id = ?", userID).
			Exec(ctx)

		return err
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate suggestion cache for user %d: %w", userID, err)
	}

	r.logger.Debug("Invalidated suggestion cache entry", zap.Uint64("userID", userID))

	return nil
}

// GetStaleUserIDs returns users whose cache entry is invalid or whose last
// generation predates the cutoff. Only active users are considered.
// A limit of 0 means no limit.
func (r *SuggestionModel) GetStaleUserIDs(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error) {
	userIDs, err := dbretry.Operation(ctx, func(ctx context.Context) ([]uint64, error) {
		var ids []uint64

		query := r.db.NewSelect().
			Model((*types.SuggestionCache)(nil)).
			Column("suggestion_cache.user_id").
			Join("JOIN users AS u ON u.id = suggestion_cache.user_id").
			Where("u.is_active = true").
			Where("suggestion_cache.is_valid = false OR suggestion_cache.last_generated < ?", cutoff).
			Order("suggestion_cache.last_generated ASC")

		if limit > 0 {
			query = query.Limit(limit)
		}

		err := query.Scan(ctx, &ids)

		return ids, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get stale suggestion users: %w", err)
	}

	return userIDs, nil
}

// GetActiveUserIDsWithoutCache returns active users that have never had a
// suggestion generated. A limit of 0 means no limit.
func (r *SuggestionModel) GetActiveUserIDsWithoutCache(ctx context.Context, limit int) ([]uint64, error) {
	userIDs, err := dbretry.Operation(ctx, func(ctx context.Context) ([]uint64, error) {
		var ids []uint64

		query := r.db.NewSelect().
			Model((*types.User)(nil)).
			Column("user.id").
			Where("user.is_active = true").
			Where("NOT EXISTS (SELECT 1 FROM suggestion_caches AS sc WHERE sc.user_id = user.id)").
			Order("user.id ASC")

		if limit > 0 {
			query = query.Limit(limit)
		}

		err := query.Scan(ctx, &ids)

		return ids, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get uncached active users: %w", err)
	}

	return userIDs, nil
}
