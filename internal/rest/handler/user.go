package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/forgelink/forgelink/internal/database/types"
	restTypes "github.com/forgelink/forgelink/internal/rest/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// UserGetter is the account lookup surface the handler needs.
type UserGetter interface {
	GetByID(ctx context.Context, userID uint64) (*types.User, error)
}

// UserHandler handles account read endpoints.
type UserHandler struct {
	users  UserGetter
	logger *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users UserGetter, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// GetUser retrieves basic account information by ID.
func (h *UserHandler) GetUser(w http.ResponseWriter, req bunrouter.Request) error {
	userID, ok := parseUserID(w, req)
	if !ok {
		return nil
	}

	user, err := h.users.GetByID(req.Context(), userID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return nil
		}

		h.logger.Error("Failed to get user",
			zap.Error(err),
			zap.Uint64("userID", userID))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, restTypes.GetUserResponse{User: user})
}
