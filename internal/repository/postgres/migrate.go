package postgres

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schema string

// Tables lists the tables created by Migrate, in dependency order.
var Tables = []string{
	"users", "organizations", "memberships", "projects", "stories",
	"tags", "story_tags", "project_tags", "ml_tasks",
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return errFailedApplySchema(err)
	}
	return nil
}

// TableExists reports whether a table exists in the public schema.
func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	)`

	var exists bool
	if err := db.Pool.QueryRow(ctx, query, table).Scan(&exists); err != nil {
		return false, errFailedCheckTable(err)
	}
	return exists, nil
}
