package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/forgelink/forgelink/internal/database/dbretry"
	"github.com/forgelink/forgelink/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// UserModel handles database operations for platform accounts.
type UserModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUser creates a UserModel.
func NewUser(db *bun.DB, logger *zap.Logger) *UserModel {
	return &UserModel{
		db:     db,
		logger: logger.Named("db_user"),
	}
}

// GetByID retrieves a user by their ID.
// Returns types.ErrUserNotFound when no such user exists.
func (r *UserModel) GetByID(ctx context.Context, userID uint64) (*types.User, error) {
	var user types.User

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&user).
			Where("id = ?", userID).
			Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	return &user, nil
}
