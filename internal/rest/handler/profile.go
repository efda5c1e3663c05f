package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/forgelink/forgelink/internal/database/types"
	restTypes "github.com/forgelink/forgelink/internal/rest/types"
	"github.com/forgelink/forgelink/internal/suggest"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// maxBodySize caps profile mutation request bodies.
const maxBodySize = 1 << 20

// ProfileWriter is the persistence surface for profile mutations.
type ProfileWriter interface {
	ReplaceSkills(ctx context.Context, userID uint64, skills []types.Skill) error
	UpsertProject(ctx context.Context, userID uint64, project *types.Project) error
}

// ProfileHandler handles profile mutation endpoints. Every successful write
// invalidates the user's suggestion cache.
type ProfileHandler struct {
	profiles    ProfileWriter
	invalidator *suggest.Invalidator
	logger      *zap.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profiles ProfileWriter, invalidator *suggest.Invalidator, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles:    profiles,
		invalidator: invalidator,
		logger:      logger,
	}
}

// ReplaceSkills overwrites a user's skill set.
func (h *ProfileHandler) ReplaceSkills(w http.ResponseWriter, req bunrouter.Request) error {
	userID, ok := parseUserID(w, req)
	if !ok {
		return nil
	}

	var body restTypes.ReplaceSkillsRequest
	if !decodeBody(w, req, &body) {
		return nil
	}

	skills := make([]types.Skill, 0, len(body.Skills))

	for _, input := range body.Skills {
		if input.Name == "" {
			http.Error(w, "Skill name is required", http.StatusBadRequest)
			return nil
		}

		skills = append(skills, types.Skill{Name: input.Name, Level: input.Level})
	}

	if err := h.profiles.ReplaceSkills(req.Context(), userID, skills); err != nil {
		h.logger.Error("Failed to replace skills",
			zap.Error(err),
			zap.Uint64("userID", userID))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	// The write is committed; cache bookkeeping happens after the fact
	h.invalidator.OnProfileMutated(req.Context(), userID, suggest.AspectSkills)

	return bunrouter.JSON(w, restTypes.MutationResponse{Status: "ok"})
}

// UpsertProject creates or updates one of a user's projects.
func (h *ProfileHandler) UpsertProject(w http.ResponseWriter, req bunrouter.Request) error {
	userID, ok := parseUserID(w, req)
	if !ok {
		return nil
	}

	var body restTypes.UpsertProjectRequest
	if !decodeBody(w, req, &body) {
		return nil
	}

	if body.Title == "" {
		http.Error(w, "Project title is required", http.StatusBadRequest)
		return nil
	}

	project := &types.Project{
		ID:          body.ID,
		Title:       body.Title,
		Description: body.Description,
		Tags:        body.Tags,
	}

	if err := h.profiles.UpsertProject(req.Context(), userID, project); err != nil {
		h.logger.Error("Failed to upsert project",
			zap.Error(err),
			zap.Uint64("userID", userID))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	h.invalidator.OnProfileMutated(req.Context(), userID, suggest.AspectProjects)

	return bunrouter.JSON(w, restTypes.MutationResponse{Status: "ok"})
}

// decodeBody reads and parses a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, req bunrouter.Request, dst any) bool {
	data, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}

	if err := sonic.Unmarshal(data, dst); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}

	return true
}
