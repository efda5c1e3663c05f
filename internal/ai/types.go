package ai

import (
	"errors"
	"time"

	"github.com/forgelink/forgelink/pkg/utils"
)

const (
	// ApplicationJSON is the MIME type for JSON content.
	ApplicationJSON = "application/json"

	// GenerationTimeout bounds a single suggestion generation request.
	GenerationTimeout = 3 * time.Minute
)

// ErrProfileEmpty is returned when a profile has no skills or projects to
// base suggestions on.
var ErrProfileEmpty = errors.New("profile has no usable data for suggestions")

// SkillSummary is the prompt representation of one profile skill.
type SkillSummary struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// ProjectSummary is the prompt representation of one profile project.
type ProjectSummary struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ExperienceSummary is the prompt representation of one work history entry.
type ExperienceSummary struct {
	Company string `json:"company"`
	Role    string `json:"role"`
	Summary string `json:"summary"`
}

// EducationSummary is the prompt representation of one education entry.
type EducationSummary struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Field  string `json:"field"`
}

// ProfileData represents the formatted profile for AI analysis.
type ProfileData struct {
	Username    string              `json:"username"`
	Headline    string              `json:"headline"`
	Skills      []SkillSummary      `json:"skills"`
	Projects    []ProjectSummary    `json:"projects"`
	Experiences []ExperienceSummary `json:"experiences"`
	Educations  []EducationSummary  `json:"educations"`
}

// ProjectIdeasResponse is the structured output format for idea generation.
type ProjectIdeasResponse struct {
	ProjectIdeas []string `json:"projectIdeas" jsonschema_description:"Short, concrete project ideas tailored to the profile"`
}

// ProjectIdeasSchema is the JSON schema for project idea responses.
var ProjectIdeasSchema = utils.GenerateSchema[ProjectIdeasResponse]()

// Suggestions holds one full generation result for a user.
type Suggestions struct {
	ProjectIdeas []string `json:"projectIdeas"`
	SkillRoadmap string   `json:"skillRoadmap"`
}
