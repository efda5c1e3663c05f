package routing

import (
	"github.com/forgelink/forgelink/internal/ai/limits"
	"github.com/forgelink/forgelink/internal/setup/config"
	"go.uber.org/zap"
)

// TaskType identifies a category of generation request with its own model
// fallback chain.
type TaskType int

const (
	// TaskProjectIdeas is short-form idea generation.
	TaskProjectIdeas TaskType = iota
	// TaskSkillRoadmap is deeper analysis producing a skill roadmap.
	TaskSkillRoadmap
)

// String returns the task type name for logging.
func (t TaskType) String() string {
	switch t {
	case TaskProjectIdeas:
		return "project_ideas"
	case TaskSkillRoadmap:
		return "skill_roadmap"
	default:
		return "unknown"
	}
}

// Router selects which model serves a generation request. Each task type has
// an ordered candidate chain (primary first); candidates near their rate
// limit are skipped in favor of later ones.
type Router struct {
	chains  map[TaskType][]string
	tracker *limits.Tracker
	logger  *zap.Logger
}

// NewRouter builds a router from the configured model chains.
func NewRouter(cfg *config.OpenAI, tracker *limits.Tracker, logger *zap.Logger) *Router {
	chains := map[TaskType][]string{
		TaskProjectIdeas: chain(cfg.ProjectIdeasModel, cfg.ProjectIdeasFallbackModels),
		TaskSkillRoadmap: chain(cfg.SkillRoadmapModel, cfg.SkillRoadmapFallbackModels),
	}

	return &Router{
		chains:  chains,
		tracker: tracker,
		logger:  logger.Named("model_router"),
	}
}

// Pick returns the first candidate in the task's chain that the tracker does
// not flag. When every candidate is flagged, the primary is returned anyway:
// proceeding optimistically beats refusing to serve, since ledger data is
// advisory and may be stale.
func (r *Router) Pick(task TaskType) string {
	candidates := r.chains[task]
	if len(candidates) == 0 {
		return ""
	}

	for _, model := range candidates {
		if !r.tracker.ShouldSwitch(model) {
			if model != candidates[0] {
				r.logger.Info("Routed task to fallback model",
					zap.String("task", task.String()),
					zap.String("model", model))
			}

			return model
		}
	}

	r.logger.Warn("All candidate models near rate limit, using primary",
		zap.String("task", task.String()),
		zap.String("model", candidates[0]))

	return candidates[0]
}

// Chain returns the configured candidate list for a task type.
func (r *Router) Chain(task TaskType) []string {
	return r.chains[task]
}

func chain(primary string, fallbacks []string) []string {
	models := make([]string, 0, len(fallbacks)+1)
	models = append(models, primary)
	models = append(models, fallbacks...)

	return models
}
