package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
// DDL must stay idempotent: a crash between commit and the version stamp
// re-runs the step.
var migrations = []Migration{
	{
		Version:     1,
		Description: "problems and solutions",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS problems (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    category TEXT,
    status TEXT NOT NULL DEFAULT 'pending'
        CHECK(status IN ('pending', 'processing', 'completed', 'failed')),
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS solutions (
    id TEXT PRIMARY KEY,
    problem_id TEXT NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    feasibility_score INTEGER NOT NULL CHECK(feasibility_score BETWEEN 0 AND 100),
    cost_estimate TEXT NOT NULL,
    sustainability_score INTEGER NOT NULL CHECK(sustainability_score BETWEEN 0 AND 100),
    innovation_score INTEGER NOT NULL CHECK(innovation_score BETWEEN 0 AND 100),
    agent_type TEXT NOT NULL
        CHECK(agent_type IN ('technology', 'biotechnology', 'social_innovation', 'policy', 'business_model')),
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_problems_user_created ON problems(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_solutions_problem ON solutions(problem_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "solution research sources",
		Up: func(tx *sql.Tx) error {
			var exists int
			err := tx.QueryRow(
				"SELECT COUNT(*) FROM pragma_table_info('solutions') WHERE name = 'research_sources'",
			).Scan(&exists)
			if err != nil || exists > 0 {
				return err
			}
			_, err = tx.Exec(`ALTER TABLE solutions ADD COLUMN research_sources TEXT NOT NULL DEFAULT '[]'`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
