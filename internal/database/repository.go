package database

import (
	"github.com/forgelink/forgelink/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	user       *models.UserModel
	profile    *models.ProfileModel
	suggestion *models.SuggestionModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		user:       models.NewUser(db, logger),
		profile:    models.NewProfile(db, logger),
		suggestion: models.NewSuggestion(db, logger),
	}
}

// User returns the user model repository.
func (r *Repository) User() *models.UserModel {
	return r.user
}

// Profile returns the profile model repository.
func (r *Repository) Profile() *models.ProfileModel {
	return r.profile
}

// Suggestion returns the suggestion cache model repository.
func (r *Repository) Suggestion() *models.SuggestionModel {
	return r.suggestion
}
