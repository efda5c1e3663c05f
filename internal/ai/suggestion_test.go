package ai_test

import (
	"context"
	"testing"

	"github.com/forgelink/forgelink/internal/ai"
	"github.com/forgelink/forgelink/internal/ai/client"
	"github.com/forgelink/forgelink/internal/ai/limits"
	"github.com/forgelink/forgelink/internal/ai/routing"
	"github.com/forgelink/forgelink/internal/database/types"
	"github.com/forgelink/forgelink/internal/setup/config"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeChat serves canned completions, keyed on whether the request carries a
// structured response format.
type fakeChat struct {
	ideasJSON   string
	roadmapText string
	requests    int
}

func (f *fakeChat) respond(params openai.ChatCompletionNewParams) *openai.ChatCompletion {
	f.requests++

	content := f.roadmapText
	if params.ResponseFormat.OfJSONSchema != nil {
		content = f.ideasJSON
	}

	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{
				FinishReason: "stop",
				Message:      openai.ChatCompletionMessage{Content: content},
			},
		},
	}
}

func (f *fakeChat) New(_ context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return f.respond(params), nil
}

func (f *fakeChat) NewWithRetry(
	_ context.Context, params openai.ChatCompletionNewParams, callback client.RetryCallback,
) error {
	return callback(f.respond(params), nil)
}

func newTestRouter(t *testing.T) *routing.Router {
	t.Helper()

	cfg := &config.OpenAI{
		ProjectIdeasModel: "fast-a",
		SkillRoadmapModel: "heavy-a",
	}

	return routing.NewRouter(cfg, limits.NewTracker(zap.NewNop()), zap.NewNop())
}

func testProfile() *types.Profile {
	return &types.Profile{
		User:   &types.User{ID: 1, Username: "dev", IsActive: true},
		Skills: []types.Skill{{UserID: 1, Name: "Go", Level: "advanced"}},
	}
}

func TestGenerateNormalizesModelOutput(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{
		ideasJSON:   `{"projectIdeas":["  build   a\nlinter  ", "write a pprof wrapper"]}`,
		roadmapText: "## Go\n\nLearn    generics   properly\n",
	}
	analyzer := ai.NewSuggestionAnalyzer(chat, newTestRouter(t), zap.NewNop())

	got, err := analyzer.Generate(t.Context(), testProfile())
	require.NoError(t, err)

	// Idea strings collapse to single lines; the roadmap keeps its structure
	assert.Equal(t, []string{"build a linter", "write a pprof wrapper"}, got.ProjectIdeas)
	assert.Equal(t, "## Go\n\nLearn generics properly", got.SkillRoadmap)
	assert.Equal(t, 2, chat.requests)
}

func TestGenerateRejectsEmptyProfile(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{}
	analyzer := ai.NewSuggestionAnalyzer(chat, newTestRouter(t), zap.NewNop())

	empty := &types.Profile{User: &types.User{ID: 2, Username: "new", IsActive: true}}

	_, err := analyzer.Generate(t.Context(), empty)
	require.ErrorIs(t, err, ai.ErrProfileEmpty)
	assert.Zero(t, chat.requests)
}

func TestGenerateFailsOnEmptyIdeaList(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{
		ideasJSON:   `{"projectIdeas":[]}`,
		roadmapText: "## Go",
	}
	analyzer := ai.NewSuggestionAnalyzer(chat, newTestRouter(t), zap.NewNop())

	_, err := analyzer.Generate(t.Context(), testProfile())
	require.Error(t, err)
}
