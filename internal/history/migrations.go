package history

const schemaVersion = 2

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT    PRIMARY KEY,
	started_at   TEXT    NOT NULL,
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	environment  TEXT    NOT NULL,
	base_url     TEXT    NOT NULL DEFAULT '',
	passed       INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	errored      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);

CREATE TABLE IF NOT EXISTS query_results (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id            TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position          INTEGER NOT NULL,
	name              TEXT    NOT NULL,
	result            TEXT    NOT NULL,
	status_code       INTEGER NOT NULL DEFAULT 0,
	latency_ms        INTEGER NOT NULL DEFAULT 0,
	job_id            TEXT    NOT NULL DEFAULT '',
	error             TEXT    NOT NULL DEFAULT '',
	failed_assertions TEXT    NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_query_results_run_id ON query_results(run_id, position);
`

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 2,
		sql:     `ALTER TABLE query_results ADD COLUMN job_id TEXT NOT NULL DEFAULT ''`,
	},
}
