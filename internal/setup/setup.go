package setup

import (
	"context"
	"log"

	"github.com/forgelink/forgelink/internal/ai"
	aiClient "github.com/forgelink/forgelink/internal/ai/client"
	"github.com/forgelink/forgelink/internal/ai/limits"
	"github.com/forgelink/forgelink/internal/ai/routing"
	"github.com/forgelink/forgelink/internal/database"
	"github.com/forgelink/forgelink/internal/queue"
	"github.com/forgelink/forgelink/internal/redis"
	"github.com/forgelink/forgelink/internal/setup/config"
	"github.com/forgelink/forgelink/internal/setup/logging"
	"github.com/forgelink/forgelink/internal/suggest"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config         // Application configuration
	Logger       *zap.Logger            // Main application logger
	DBLogger     *zap.Logger            // Database-specific logger
	DB           database.Client        // Database connection pool
	RedisManager *redis.Manager         // Redis connection manager
	StatusClient rueidis.Client         // Redis client for worker status reporting
	Queue        *queue.Manager         // Generation job queue
	Tracker      *limits.Tracker        // Per-model rate limit ledger
	Router       *routing.Router        // Task-to-model routing
	AIClient     *aiClient.AIClient     // Inference gateway client
	Analyzer     *ai.SuggestionAnalyzer // Profile-to-suggestions generator
	Service      *suggest.Service       // Suggestion read/refresh service
	Invalidator  *suggest.Invalidator   // Profile mutation reactions
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	// Load app configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logger, dbLogger, err := logging.SetupLogging(logDir, cfg.Debug.LogLevel, cfg.Debug.MaxLogsToKeep)
	if err != nil {
		return nil, err
	}

	// Redis manager provides connection pools for various subsystems
	redisManager := redis.NewManager(&cfg.Redis, logger)

	// Initialize database, applying pending migrations
	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, dbLogger.Named("database"), true)
	if err != nil {
		return nil, err
	}

	// Get Redis client for the generation queue
	queueClient, err := redisManager.GetClient(redis.QueueDBIndex)
	if err != nil {
		return nil, err
	}

	queueManager := queue.NewManager(queueClient, logger)

	// Get Redis client for worker status reporting
	statusClient, err := redisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return nil, err
	}

	// Rate limit tracking feeds model routing decisions
	tracker := limits.NewTracker(logger)
	router := routing.NewRouter(&cfg.OpenAI, tracker, logger)

	// Initialize AI client
	aiCli, err := aiClient.NewClient(&cfg.OpenAI, &cfg.Retry, tracker, logger)
	if err != nil {
		return nil, err
	}

	// Assemble the suggestion pipeline
	analyzer := ai.NewSuggestionAnalyzer(aiCli.Chat(), router, logger)
	service := suggest.NewService(db.Models().Suggestion(), db.Models().Profile(), analyzer, logger)
	invalidator := suggest.NewInvalidator(db.Models().Suggestion(), queueManager, logger)

	// Bundle all initialized components
	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger,
		DB:           db,
		RedisManager: redisManager,
		StatusClient: statusClient,
		Queue:        queueManager,
		Tracker:      tracker,
		Router:       router,
		AIClient:     aiCli,
		Analyzer:     analyzer,
		Service:      service,
		Invalidator:  invalidator,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(_ context.Context) {
	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}
