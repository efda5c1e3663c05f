package types

import (
	"time"

	dbTypes "github.com/forgelink/forgelink/internal/database/types"
)

// GetUserResponse is the payload for account reads.
type GetUserResponse struct {
	User *dbTypes.User `json:"user"`
}

// GetSuggestionsResponse is the payload for suggestion reads and refreshes.
type GetSuggestionsResponse struct {
	ProjectIdeas     []string  `json:"projectIdeas"`
	SkillSuggestions string    `json:"skillSuggestions"`
	FromCache        bool      `json:"fromCache"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

// SkillInput is one skill in a profile update.
type SkillInput struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// ReplaceSkillsRequest replaces the full skill set of a user.
type ReplaceSkillsRequest struct {
	Skills []SkillInput `json:"skills"`
}

// UpsertProjectRequest creates or updates one project. A zero ID creates a
// new project.
type UpsertProjectRequest struct {
	ID          uint64   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// MutationResponse acknowledges a profile write.
type MutationResponse struct {
	Status string `json:"status"`
}
