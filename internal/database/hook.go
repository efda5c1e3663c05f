package database

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// slowQueryThreshold marks queries worth surfacing at warn level.
const slowQueryThreshold = 500 * time.Millisecond

// Hook logs executed queries through zap.
type Hook struct {
	logger *zap.Logger
}

// NewHook creates a query hook that logs through the given logger.
func NewHook(logger *zap.Logger) *Hook {
	return &Hook{logger: logger.Named("query")}
}

// BeforeQuery implements bun.QueryHook.
func (h *Hook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery implements bun.QueryHook.
func (h *Hook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)

	switch {
	case event.Err != nil:
		h.logger.Debug("Query failed",
			zap.String("query", event.Query),
			zap.Duration("elapsed", elapsed),
			zap.Error(event.Err))
	case elapsed >= slowQueryThreshold:
		h.logger.Warn("Slow query",
			zap.String("query", event.Query),
			zap.Duration("elapsed", elapsed))
	default:
		h.logger.Debug("Query executed",
			zap.String("query", event.Query),
			zap.Duration("elapsed", elapsed))
	}
}
