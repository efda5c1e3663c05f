package rest

import (
	"net/http"

	"github.com/forgelink/forgelink/internal/rest/handler"
	"github.com/forgelink/forgelink/internal/suggest"
	"github.com/klauspost/compress/gzhttp"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Server implements the REST API service.
type Server struct {
	userHandler       *handler.UserHandler
	suggestionHandler *handler.SuggestionHandler
	profileHandler    *handler.ProfileHandler
}

// NewServer creates a new REST API server.
func NewServer(
	service *suggest.Service, users handler.UserGetter, profiles handler.ProfileWriter,
	invalidator *suggest.Invalidator, logger *zap.Logger,
) (http.Handler, error) {
	// Create server instance with handlers
	server := &Server{
		userHandler:       handler.NewUserHandler(users, logger),
		suggestionHandler: handler.NewSuggestionHandler(service, logger),
		profileHandler:    handler.NewProfileHandler(profiles, invalidator, logger),
	}

	// Create base router
	router := bunrouter.New()

	router.WithGroup("/v1", func(g *bunrouter.Group) {
		g.GET("/users/:id", server.userHandler.GetUser)
		g.GET("/users/:id/suggestions", server.suggestionHandler.GetSuggestions)
		g.POST("/users/:id/suggestions/refresh", server.suggestionHandler.ForceRefresh)
		g.PUT("/users/:id/skills", server.profileHandler.ReplaceSkills)
		g.PUT("/users/:id/projects", server.profileHandler.UpsertProject)
	})

	// Add gzip compression
	return gzhttp.GzipHandler(router), nil
}
