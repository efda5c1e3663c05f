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

// ProfileModel handles database operations for profile data used to build
// generation prompts.
type ProfileModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewProfile creates a ProfileModel for accessing profile data.
func NewProfile(db *bun.DB, logger *zap.Logger) *ProfileModel {
	return &ProfileModel{
		db:     db,
		logger: logger.Named("db_profile"),
	}
}

// GetProfile assembles all generation-relevant profile data for a user.
// Returns types.ErrProfileNotFound when the user does not exist.
func (r *ProfileModel) GetProfile(ctx context.Context, userID uint64) (*types.Profile, error) {
	var user types.User

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&user).
			Where("id = ?", userID).
			Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrProfileNotFound
		}

		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	profile := &types.Profile{User: &user}

	err = dbretry.NoResult(ctx, func(ctx context.Context) error {
		if err := r.db.NewSelect().
			Model(&profile.Skills).
			Where("user_id = ?", userID).
			Order("name ASC").
			Scan(ctx); err != nil {
			return err
		}

		if err := r.db.NewSelect().
			Model(&profile.Projects).
			Where("owner_id = ?", userID).
			Order("updated_at DESC").
			Scan(ctx); err != nil {
			return err
		}

		if err := r.db.NewSelect().
			Model(&profile.Experiences).
			Where("user_id = ?", userID).
			Order("started_at DESC").
			Scan(ctx); err != nil {
			return err
		}

		return r.db.NewSelect().
			Model(&profile.Educations).
			Where("user_id = ?", userID).
			Order("year DESC").
			Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get profile data for user %d: %w", userID, err)
	}

	r.logger.Debug("Assembled profile",
		zap.Uint64("userID", userID),
		zap.Int("skills", len(profile.Skills)),
		zap.Int("projects", len(profile.Projects)))

	return profile, nil
}

// ReplaceSkills replaces a user's skill set in a single transaction.
func (r *ProfileModel) ReplaceSkills(ctx context.Context, userID uint64, skills []types.Skill) error {
	now := time.Now()
	for i := range skills {
		skills[i].UserID = userID
		skills[i].UpdatedAt = now
	}

	err := dbretry.Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*types.Skill)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx); err != nil {
			return err
		}

		if len(skills) == 0 {
			return nil
		}

		_, err := tx.NewInsert().Model(&skills).Exec(ctx)

		return err
	})
	if err != nil {
		return fmt.Errorf("failed to replace skills for user %d: %w", userID, err)
	}

	r.logger.Debug("Replaced skills",
		zap.Uint64("userID", userID),
		zap.Int("count", len(skills)))

	return nil
}

// UpsertProject creates or updates a project owned by a user.
func (r *ProfileModel) UpsertProject(ctx context.Context, userID uint64, project *types.Project) error {
	project.OwnerID = userID
	project.UpdatedAt = time.Now()

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		if project.ID == 0 {
			_, err := r.db.NewInsert().Model(project).Exec(ctx)

			return err
		}

		_, err := r.db.NewUpdate().
			Model(project).
			WherePK().
			Where("owner_id = ?", userID).
			Exec(ctx)

		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert project for user %d: %w", userID, err)
	}

	r.logger.Debug("Upserted project",
		zap.Uint64("userID", userID),
		zap.Uint64("projectID", project.ID))

	return nil
}
