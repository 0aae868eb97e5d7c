// engforum/database/migrations.go
package database

// migration represents a single database schema migration.
type migration struct {
	Version uint
	Query   string
}

// allMigrations holds all schema changes in order.
var allMigrations = []migration{
	{
		Version: 1,
		Query: `
-- Record which moderator flagged a thread
ALTER TABLE threads ADD COLUMN violation_by TEXT;

CREATE INDEX IF NOT EXISTS idx_threads_violation ON threads(is_violation);
		`,
	},
}
