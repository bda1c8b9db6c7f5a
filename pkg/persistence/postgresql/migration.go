package postgresql

// migrations returns the versioned schema statements for the engine's
// tables. The (status, next_execution_at) index backs the resumer sweep.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id            TEXT PRIMARY KEY,
				name          TEXT NOT NULL,
				description   TEXT NOT NULL DEFAULT '',
				is_active     BOOLEAN NOT NULL DEFAULT FALSE,
				start_node_id TEXT NOT NULL,
				nodes         JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_at    TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at    TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS enrollments (
				id                TEXT PRIMARY KEY,
				workflow_id       TEXT NOT NULL,
				target_type       TEXT NOT NULL,
				target_id         TEXT NOT NULL,
				status            TEXT NOT NULL,
				current_node_id   TEXT NOT NULL DEFAULT '',
				visited_nodes     JSONB NOT NULL DEFAULT '[]'::jsonb,
				execution_path    JSONB NOT NULL DEFAULT '[]'::jsonb,
				context           JSONB NOT NULL DEFAULT '{}'::jsonb,
				next_execution_at TIMESTAMP WITH TIME ZONE,
				last_executed_at  TIMESTAMP WITH TIME ZONE,
				error_count       INTEGER NOT NULL DEFAULT 0,
				last_error        TEXT NOT NULL DEFAULT '',
				created_at        TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at        TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_enrollments_workflow
				ON enrollments (workflow_id);

			CREATE INDEX IF NOT EXISTS idx_enrollments_due
				ON enrollments (status, next_execution_at);

			CREATE TABLE IF NOT EXISTS records (
				collection TEXT NOT NULL,
				id         TEXT NOT NULL,
				data       JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (collection, id)
			);
		`,
	}
}
