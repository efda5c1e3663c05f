package migrations

import (
	"context"
	"fmt"

	"github.com/forgelink/forgelink/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// Create tables
		models := []any{
			(*types.User)(nil),
			(*types.Skill)(nil),
			(*types.Project)(nil),
			(*types.Experience)(nil),
			(*types.Education)(nil),
			(*types.SuggestionCache)(nil),
		}

		for _, model := range models {
			if _, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		// Create indexes for the refresh sweep and profile lookups
		indexes := []struct {
			name  string
			table string
			expr  string
		}{
			{"idx_suggestion_caches_stale", "suggestion_caches", "(is_valid, last_generated)"},
			{"idx_skills_user", "skills", "(user_id)"},
			{"idx_projects_owner", "projects", "(owner_id)"},
			{"idx_experiences_user", "experiences", "(user_id)"},
			{"idx_educations_user", "educations", "(user_id)"},
			{"idx_users_active", "users", "(is_active)"},
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS %s ON %s %s", idx.name, idx.table, idx.expr,
			)); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		tables := []string{
			"suggestion_caches",
			"educations",
			"experiences",
			"projects",
			"skills",
			"users",
		}

		for _, table := range tables {
			if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}

		return nil
	})
}
