package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds all registered database migrations.
var Migrations = migrate.NewMigrations()
