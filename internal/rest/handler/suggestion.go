package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/forgelink/forgelink/internal/ai"
	"github.com/forgelink/forgelink/internal/database/types"
	restTypes "github.com/forgelink/forgelink/internal/rest/types"
	"github.com/forgelink/forgelink/internal/suggest"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// SuggestionHandler handles suggestion read and refresh endpoints.
type SuggestionHandler struct {
	service *suggest.Service
	logger  *zap.Logger
}

// NewSuggestionHandler creates a new suggestion handler.
func NewSuggestionHandler(service *suggest.Service, logger *zap.Logger) *SuggestionHandler {
	return &SuggestionHandler{
		service: service,
		logger:  logger,
	}
}

// GetSuggestions serves a user's suggestions, regenerating on cache miss.
func (h *SuggestionHandler) GetSuggestions(w http.ResponseWriter, req bunrouter.Request) error {
	userID, ok := parseUserID(w, req)
	if !ok {
		return nil
	}

	result, err := h.service.GetSuggestions(req.Context(), userID)
	if err != nil {
		return h.writeError(w, userID, err)
	}

	return bunrouter.JSON(w, toResponse(result))
}

// ForceRefresh regenerates a user's suggestions regardless of freshness.
func (h *SuggestionHandler) ForceRefresh(w http.ResponseWriter, req bunrouter.Request) error {
	userID, ok := parseUserID(w, req)
	if !ok {
		return nil
	}

	result, err := h.service.ForceRefresh(req.Context(), userID)
	if err != nil {
		return h.writeError(w, userID, err)
	}

	return bunrouter.JSON(w, toResponse(result))
}

// writeError maps service errors to HTTP statuses.
func (h *SuggestionHandler) writeError(w http.ResponseWriter, userID uint64, err error) error {
	switch {
	case errors.Is(err, types.ErrInvalidUserID):
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
	case errors.Is(err, types.ErrProfileNotFound), errors.Is(err, types.ErrUserNotFound):
		http.Error(w, "User not found", http.StatusNotFound)
	case errors.Is(err, ai.ErrProfileEmpty):
		http.Error(w, "Profile has no skills or projects yet", http.StatusUnprocessableEntity)
	default:
		h.logger.Error("Failed to serve suggestions",
			zap.Error(err),
			zap.Uint64("userID", userID))
		http.Error(w, "Suggestion generation failed", http.StatusBadGateway)
	}

	return nil
}

// toResponse converts a service result to the REST payload.
func toResponse(result *suggest.Result) restTypes.GetSuggestionsResponse {
	return restTypes.GetSuggestionsResponse{
		ProjectIdeas:     result.ProjectIdeas,
		SkillSuggestions: result.SkillRoadmap,
		FromCache:        result.FromCache,
		GeneratedAt:      result.GeneratedAt,
	}
}

// parseUserID extracts the :id path parameter, writing a 400 on bad input.
func parseUserID(w http.ResponseWriter, req bunrouter.Request) (uint64, bool) {
	userID, err := strconv.ParseUint(req.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return 0, false
	}

	return userID, true
}
