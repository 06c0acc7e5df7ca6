package store

// schemaVersionV1 is the current artifact-log schema.
const schemaVersionV1 = 1

// schemaV1: one row per artifact. Queryable index fields are promoted to
// real columns (duplicated from index_meta) so filters never unmarshal
// payloads; the full index_meta map and payload are stored as JSON.
//
// Append-only discipline is enforced in code: the only UPDATE ever issued
// against this table touches the meta column.
var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS artifacts (
	id                  TEXT PRIMARY KEY,
	kind                TEXT NOT NULL,
	stage               TEXT NOT NULL,
	status              TEXT NOT NULL,
	created_at          TEXT NOT NULL,
	tool_id             TEXT,
	material_id         TEXT,
	session_id          TEXT,
	parent_spec_id      TEXT,
	parent_plan_id      TEXT,
	parent_decision_id  TEXT,
	parent_execution_id TEXT,
	index_meta          TEXT NOT NULL DEFAULT '{}',
	payload             TEXT NOT NULL,
	request_hash        TEXT,
	output_hash         TEXT,
	meta                TEXT
);

CREATE INDEX IF NOT EXISTS idx_artifacts_kind       ON artifacts(kind);
CREATE INDEX IF NOT EXISTS idx_artifacts_status     ON artifacts(status);
CREATE INDEX IF NOT EXISTS idx_artifacts_session    ON artifacts(session_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_tool       ON artifacts(tool_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_parent_dec ON artifacts(parent_decision_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_parent_exe ON artifacts(parent_execution_id);
`
