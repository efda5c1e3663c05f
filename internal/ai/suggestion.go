package ai

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/forgelink/forgelink/internal/ai/client"
	"github.com/forgelink/forgelink/internal/ai/routing"
	"github.com/forgelink/forgelink/internal/database/types"
	"github.com/forgelink/forgelink/pkg/utils"
	"github.com/openai/openai-go"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
	"go.uber.org/zap"
)

// SuggestionAnalyzer turns a user's profile into project ideas and a skill
// roadmap via the inference gateway.
type SuggestionAnalyzer struct {
	chat   client.ChatCompletions
	router *routing.Router
	minify *minify.M
	logger *zap.Logger
}

// NewSuggestionAnalyzer creates a new suggestion analyzer instance.
func NewSuggestionAnalyzer(chat client.ChatCompletions, router *routing.Router, logger *zap.Logger) *SuggestionAnalyzer {
	m := minify.New()
	m.AddFunc(ApplicationJSON, json.Minify)

	return &SuggestionAnalyzer{
		chat:   chat,
		router: router,
		minify: m,
		logger: logger.Named("ai_suggestion"),
	}
}

// Generate produces a full suggestion set for one profile. Both generations
// run against the same profile snapshot; a failure in either fails the whole
// result so the cache never stores a half-filled entry.
func (a *SuggestionAnalyzer) Generate(ctx context.Context, profile *types.Profile) (*Suggestions, error) {
	if profile.IsEmpty() {
		return nil, fmt.Errorf("%w: user %d", ErrProfileEmpty, profile.User.ID)
	}

	profileJSON, err := a.formatProfile(profile)
	if err != nil {
		return nil, err
	}

	ideas, err := a.generateProjectIdeas(ctx, profileJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to generate project ideas: %w", err)
	}

	roadmap, err := a.generateSkillRoadmap(ctx, profileJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to generate skill roadmap: %w", err)
	}

	return &Suggestions{
		ProjectIdeas: ideas,
		SkillRoadmap: roadmap,
	}, nil
}

// formatProfile converts a profile to minified JSON for prompt inclusion.
func (a *SuggestionAnalyzer) formatProfile(profile *types.Profile) (string, error) {
	data := ProfileData{
		Username:    profile.User.Username,
		Headline:    profile.User.Headline,
		Skills:      make([]SkillSummary, 0, len(profile.Skills)),
		Projects:    make([]ProjectSummary, 0, len(profile.Projects)),
		Experiences: make([]ExperienceSummary, 0, len(profile.Experiences)),
		Educations:  make([]EducationSummary, 0, len(profile.Educations)),
	}

	for _, skill := range profile.Skills {
		data.Skills = append(data.Skills, SkillSummary{Name: skill.Name, Level: skill.Level})
	}

	for _, project := range profile.Projects {
		data.Projects = append(data.Projects, ProjectSummary{
			Title:       project.Title,
			Description: project.Description,
			Tags:        project.Tags,
		})
	}

	for _, exp := range profile.Experiences {
		data.Experiences = append(data.Experiences, ExperienceSummary{
			Company: exp.Company,
			Role:    exp.Role,
			Summary: exp.Summary,
		})
	}

	for _, edu := range profile.Educations {
		data.Educations = append(data.Educations, EducationSummary{
			School: edu.School,
			Degree: edu.Degree,
			Field:  edu.Field,
		})
	}

	profileJSON, err := sonic.Marshal(data)
	if err != nil {
		a.logger.Error("failed to marshal profile data", zap.Error(err))
		return "", fmt.Errorf("%w: %w", utils.ErrJSONProcessing, err)
	}

	// Minify JSON to reduce token usage
	profileJSON, err = a.minify.Bytes(ApplicationJSON, profileJSON)
	if err != nil {
		a.logger.Error("failed to minify profile data", zap.Error(err))
		return "", fmt.Errorf("%w: %w", utils.ErrJSONProcessing, err)
	}

	return string(profileJSON), nil
}

// generateProjectIdeas requests structured project ideas for the profile.
func (a *SuggestionAnalyzer) generateProjectIdeas(ctx context.Context, profileJSON string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, GenerationTimeout)
	defer cancel()

	model := a.router.Pick(routing.TaskProjectIdeas)

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(ProjectIdeasSystemPrompt),
			openai.UserMessage(fmt.Sprintf(ProjectIdeasRequestPrompt, profileJSON)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "projectIdeas",
					Description: openai.String("Project ideas tailored to a developer profile"),
					Schema:      ProjectIdeasSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
		Model:               model,
		Temperature:         openai.Float(0.8),
		TopP:                openai.Float(0.9),
		MaxCompletionTokens: openai.Int(1024),
	}

	var result ProjectIdeasResponse

	err := a.chat.NewWithRetry(ctx, params, func(resp *openai.ChatCompletion, err error) error {
		// Handle API error
		if err != nil {
			return fmt.Errorf("openai API error: %w", err)
		}

		// Check for empty response
		if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Content) == 0 {
			return fmt.Errorf("%w: no response from model", utils.ErrModelResponse)
		}

		// Parse response from AI
		message := resp.Choices[0].Message
		if err := sonic.Unmarshal([]byte(message.Content), &result); err != nil {
			return fmt.Errorf("%w: %w", utils.ErrJSONProcessing, err)
		}

		if len(result.ProjectIdeas) == 0 {
			return fmt.Errorf("%w: model returned no project ideas", utils.ErrModelResponse)
		}

		// Ideas render as single-line list items
		for i, idea := range result.ProjectIdeas {
			result.ProjectIdeas[i] = utils.CompressAllWhitespace(idea)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Generated project ideas",
		zap.String("model", model),
		zap.Int("count", len(result.ProjectIdeas)))

	return result.ProjectIdeas, nil
}

// generateSkillRoadmap requests a markdown skill roadmap for the profile.
func (a *SuggestionAnalyzer) generateSkillRoadmap(ctx context.Context, profileJSON string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, GenerationTimeout)
	defer cancel()

	model := a.router.Pick(routing.TaskSkillRoadmap)

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SkillRoadmapSystemPrompt),
			openai.UserMessage(fmt.Sprintf(SkillRoadmapRequestPrompt, profileJSON)),
		},
		Model:               model,
		Temperature:         openai.Float(0.4),
		TopP:                openai.Float(0.7),
		MaxCompletionTokens: openai.Int(2048),
	}

	var roadmap string

	err := a.chat.NewWithRetry(ctx, params, func(resp *openai.ChatCompletion, err error) error {
		// Handle API error
		if err != nil {
			return fmt.Errorf("openai API error: %w", err)
		}

		// Check for empty response
		if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Content) == 0 {
			return fmt.Errorf("%w: no response from model", utils.ErrModelResponse)
		}

		// Extract thought process
		message := resp.Choices[0].Message
		if thought := message.JSON.ExtraFields["reasoning"]; thought.Valid() {
			a.logger.Debug("AI roadmap thought process",
				zap.String("model", resp.Model),
				zap.String("thought", thought.Raw()))
		}

		roadmap = utils.CompressWhitespacePreserveNewlines(message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}

	a.logger.Debug("Generated skill roadmap",
		zap.String("model", model),
		zap.Int("length", len(roadmap)))

	return roadmap, nil
}
