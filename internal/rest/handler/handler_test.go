package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/forgelink/forgelink/internal/ai"
	"github.com/forgelink/forgelink/internal/database/types"
	"github.com/forgelink/forgelink/internal/queue"
	"github.com/forgelink/forgelink/internal/rest/handler"
	restTypes "github.com/forgelink/forgelink/internal/rest/types"
	"github.com/forgelink/forgelink/internal/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// fakeStore is an in-memory suggestion cache.
type fakeStore struct {
	entries       map[uint64]*types.SuggestionCache
	invalidations []uint64
}

func (s *fakeStore) Get(_ context.Context, userID uint64) (*types.SuggestionCache, error) {
	entry, ok := s.entries[userID]
	if !ok {
		return nil, types.ErrSuggestionNotFound
	}
	return entry, nil
}

func (s *fakeStore) Upsert(
	_ context.Context, userID uint64, projectIdeas []string, skillRoadmap string,
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
	s.entries[userID] = entry
	return entry, nil
}

func (s *fakeStore) Invalidate(_ context.Context, userID uint64) error {
	s.invalidations = append(s.invalidations, userID)
	return nil
}

// fakeProfiles serves profiles and records writes.
type fakeProfiles struct {
	profiles      map[uint64]*types.Profile
	replacedWith  []types.Skill
	savedProjects []*types.Project
}

func (p *fakeProfiles) GetProfile(_ context.Context, userID uint64) (*types.Profile, error) {
	profile, ok := p.profiles[userID]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	return profile, nil
}

func (p *fakeProfiles) ReplaceSkills(_ context.Context, _ uint64, skills []types.Skill) error {
	p.replacedWith = skills
	return nil
}

func (p *fakeProfiles) UpsertProject(_ context.Context, _ uint64, project *types.Project) error {
	p.savedProjects = append(p.savedProjects, project)
	return nil
}

// fakeGenerator returns canned suggestions.
type fakeGenerator struct{}

func (fakeGenerator) Generate(_ context.Context, _ *types.Profile) (*ai.Suggestions, error) {
	return &ai.Suggestions{
		ProjectIdeas: []string{"build a linter"},
		SkillRoadmap: "## Go",
	}, nil
}

// fakeQueue records pushed jobs.
type fakeQueue struct {
	jobs []*queue.Job
}

func (q *fakeQueue) Push(_ context.Context, job *queue.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

// fakeUsers serves account rows.
type fakeUsers struct {
	users map[uint64]*types.User
}

func (u *fakeUsers) GetByID(_ context.Context, userID uint64) (*types.User, error) {
	user, ok := u.users[userID]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return user, nil
}

type fixture struct {
	router   *bunrouter.Router
	store    *fakeStore
	profiles *fakeProfiles
	jobs     *fakeQueue
}

func setupRouter(t *testing.T) *fixture {
	t.Helper()

	store := &fakeStore{entries: make(map[uint64]*types.SuggestionCache)}
	profiles := &fakeProfiles{profiles: map[uint64]*types.Profile{
		1: {
			User:   &types.User{ID: 1, Username: "dev", IsActive: true},
			Skills: []types.Skill{{UserID: 1, Name: "Go", Level: "advanced"}},
		},
	}}
	users := &fakeUsers{users: map[uint64]*types.User{
		1: {ID: 1, Username: "dev", IsActive: true},
	}}
	jobs := &fakeQueue{}

	logger := zap.NewNop()
	service := suggest.NewService(store, profiles, fakeGenerator{}, logger)
	invalidator := suggest.NewInvalidator(store, jobs, logger)

	userHandler := handler.NewUserHandler(users, logger)
	suggestionHandler := handler.NewSuggestionHandler(service, logger)
	profileHandler := handler.NewProfileHandler(profiles, invalidator, logger)

	router := bunrouter.New()
	router.WithGroup("/v1", func(g *bunrouter.Group) {
		g.GET("/users/:id", userHandler.GetUser)
		g.GET("/users/:id/suggestions", suggestionHandler.GetSuggestions)
		g.POST("/users/:id/suggestions/refresh", suggestionHandler.ForceRefresh)
		g.PUT("/users/:id/skills", profileHandler.ReplaceSkills)
		g.PUT("/users/:id/projects", profileHandler.UpsertProject)
	})

	return &fixture{router: router, store: store, profiles: profiles, jobs: jobs}
}

func TestGetSuggestionsEndpoint(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/1/suggestions", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp restTypes.GetSuggestionsResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"build a linter"}, resp.ProjectIdeas)
	assert.False(t, resp.FromCache)
}

func TestGetSuggestionsServedFromCache(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)
	f.store.entries[1] = &types.SuggestionCache{
		UserID:        1,
		ProjectIdeas:  []string{"cached idea"},
		SkillRoadmap:  "cached",
		IsValid:       true,
		LastGenerated: time.Now(),
		UpdatedAt:     time.Now(),
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/users/1/suggestions", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp restTypes.GetSuggestionsResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.FromCache)
	assert.Equal(t, []string{"cached idea"}, resp.ProjectIdeas)
}

func TestGetSuggestionsUnknownUser(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/99/suggestions", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSuggestionsInvalidUserID(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/abc/suggestions", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForceRefreshInvalidatesFirst(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)
	f.store.entries[1] = &types.SuggestionCache{
		UserID:        1,
		ProjectIdeas:  []string{"cached idea"},
		SkillRoadmap:  "cached",
		IsValid:       true,
		LastGenerated: time.Now(),
		UpdatedAt:     time.Now(),
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/users/1/suggestions/refresh", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint64{1}, f.store.invalidations)

	var resp restTypes.GetSuggestionsResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.FromCache)
	assert.Equal(t, []string{"build a linter"}, resp.ProjectIdeas)
}

func TestReplaceSkillsEnqueuesRegeneration(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)

	body := `{"skills":[{"name":"Rust","level":"beginner"}]}`
	req := httptest.NewRequest(http.MethodPut, "/v1/users/1/skills", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.profiles.replacedWith, 1)
	assert.Equal(t, "Rust", f.profiles.replacedWith[0].Name)

	// The write invalidated the cache and queued a background regeneration
	assert.Equal(t, []uint64{1}, f.store.invalidations)
	require.Len(t, f.jobs.jobs, 1)
	assert.Equal(t, queue.ReasonProfileMutated, f.jobs.jobs[0].Reason)
}

func TestReplaceSkillsRejectsInvalidBody(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/users/1/skills", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.jobs.jobs)
}

func TestUpsertProjectRequiresTitle(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/users/1/projects", strings.NewReader(`{"description":"x"}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.profiles.savedProjects)
}

func TestUpsertProjectEnqueuesRegeneration(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)

	body := `{"title":"CLI profiler","description":"pprof wrapper","tags":["go"]}`
	req := httptest.NewRequest(http.MethodPut, "/v1/users/1/projects", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.profiles.savedProjects, 1)
	assert.Equal(t, "CLI profiler", f.profiles.savedProjects[0].Title)
	require.Len(t, f.jobs.jobs, 1)
}

func TestGetUserEndpoint(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/1", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp restTypes.GetUserResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	assert.Equal(t, "dev", resp.User.Username)
}

func TestGetUserNotFound(t *testing.T) {
	t.Parallel()

	f := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/42", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
