package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgelink/forgelink/internal/ai"
	"github.com/forgelink/forgelink/internal/database/types"
	"go.uber.org/zap"
)

// FreshnessWindow is how long a valid cache entry can be served before it
// must be regenerated.
const FreshnessWindow = 24 * time.Hour

// SuggestionStore is the cache persistence surface the service needs.
type SuggestionStore interface {
	Get(ctx context.Context, userID uint64) (*types.SuggestionCache, error)
	Upsert(ctx context.Context, userID uint64, projectIdeas []string, skillRoadmap string) (*types.SuggestionCache, error)
	Invalidate(ctx context.Context, userID uint64) error
}

// ProfileStore loads the profile snapshot generation runs against.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uint64) (*types.Profile, error)
}

// Generator produces a suggestion set from a profile snapshot.
type Generator interface {
	Generate(ctx context.Context, profile *types.Profile) (*ai.Suggestions, error)
}

// Result is a served suggestion set plus where it came from.
type Result struct {
	ProjectIdeas []string  `json:"projectIdeas"`
	SkillRoadmap string    `json:"skillRoadmap"`
	FromCache    bool      `json:"fromCache"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// Service is the read and refresh surface for cached suggestions.
type Service struct {
	store     SuggestionStore
	profiles  ProfileStore
	generator Generator
	logger    *zap.Logger
}

// NewService creates a suggestion service.
func NewService(store SuggestionStore, profiles ProfileStore, generator Generator, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		profiles:  profiles,
		generator: generator,
		logger:    logger.Named("suggest"),
	}
}

// GetSuggestions serves a user's suggestions, regenerating synchronously when
// the cache entry is missing, invalid, or older than the freshness window.
// A generation failure on the regeneration path is returned to the caller
// rather than papered over with stale data.
func (s *Service) GetSuggestions(ctx context.Context, userID uint64) (*Result, error) {
	if userID == 0 {
		return nil, types.ErrInvalidUserID
	}

	entry, err := s.store.Get(ctx, userID)
	if err != nil && !errors.Is(err, types.ErrSuggestionNotFound) {
		return nil, fmt.Errorf("failed to read suggestion cache: %w", err)
	}

	if entry != nil && entry.IsFresh(FreshnessWindow) {
		return &Result{
			ProjectIdeas: entry.ProjectIdeas,
			SkillRoadmap: entry.SkillRoadmap,
			FromCache:    true,
			GeneratedAt:  entry.LastGenerated,
		}, nil
	}

	s.logger.Debug("Cache miss, regenerating synchronously",
		zap.Uint64("userID", userID),
		zap.Bool("hadEntry", entry != nil))

	return s.Regenerate(ctx, userID)
}

// ForceRefresh drops the current entry and regenerates regardless of
// freshness.
func (s *Service) ForceRefresh(ctx context.Context, userID uint64) (*Result, error) {
	if userID == 0 {
		return nil, types.ErrInvalidUserID
	}

	if err := s.store.Invalidate(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to invalidate before refresh: %w", err)
	}

	return s.Regenerate(ctx, userID)
}

// Regenerate runs a full generation for one user and stores the result.
// The profile is snapshotted once; mutations landing mid-generation are
// picked up by the next invalidation instead.
func (s *Service) Regenerate(ctx context.Context, userID uint64) (*Result, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for user %d: %w", userID, err)
	}

	suggestions, err := s.generator.Generate(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to generate suggestions for user %d: %w", userID, err)
	}

	entry, err := s.store.Upsert(ctx, userID, suggestions.ProjectIdeas, suggestions.SkillRoadmap)
	if err != nil {
		return nil, fmt.Errorf("failed to store suggestions for user %d: %w", userID, err)
	}

	s.logger.Info("Regenerated suggestions",
		zap.Uint64("userID", userID),
		zap.Int("projectIdeas", len(entry.ProjectIdeas)))

	return &Result{
		ProjectIdeas: entry.ProjectIdeas,
		SkillRoadmap: entry.SkillRoadmap,
		FromCache:    false,
		GeneratedAt:  entry.LastGenerated,
	}, nil
}
