// Schema DDL for the casefile database. The database is a disposable
// materialized view of the trail: dropping the file and replaying the
// trail reproduces every table here, including the FTS index.
package sqlite

// Entity tables. Timestamps are stored as RFC3339 TEXT so rows diff
// cleanly and sort lexicographically.
const (
	sessionsDDL = `CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

	researchItemsDDL = `CREATE TABLE IF NOT EXISTS research_items (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	question TEXT NOT NULL,
	status TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

	findingsDDL = `CREATE TABLE IF NOT EXISTS findings (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	subject TEXT NOT NULL,
	claim TEXT NOT NULL,
	confidence TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

	hypothesesDDL = `CREATE TABLE IF NOT EXISTS hypotheses (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	statement TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

	insightsDDL = `CREATE TABLE IF NOT EXISTS insights (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

	tasksDDL = `CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`
)

// Decision tables. search_text is a derived column the store maintains;
// the FTS index shadows it through triggers.
const (
	decisionsDDL = `CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	category TEXT NOT NULL,
	subject_type TEXT NOT NULL DEFAULT '',
	subject_id TEXT NOT NULL DEFAULT '',
	question TEXT NOT NULL,
	because TEXT NOT NULL,
	outcome_summary TEXT NOT NULL DEFAULT '',
	policy_type TEXT NOT NULL DEFAULT '',
	policy_id TEXT NOT NULL DEFAULT '',
	exception_kind TEXT NOT NULL DEFAULT '',
	exception_reason TEXT NOT NULL DEFAULT '',
	approver TEXT NOT NULL DEFAULT '',
	confidence TEXT NOT NULL,
	metadata_json TEXT NOT NULL DEFAULT '',
	search_text TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

	decisionOptionsDDL = `CREATE TABLE IF NOT EXISTS decision_options (
	id TEXT PRIMARY KEY,
	decision_id TEXT NOT NULL,
	label TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	is_chosen INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0
)`

	decisionOptionEvidenceDDL = `CREATE TABLE IF NOT EXISTS decision_option_evidence (
	option_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	stance TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (option_id, entity_type, entity_id)
)`

	decisionOutcomesDDL = `CREATE TABLE IF NOT EXISTS decision_outcomes (
	decision_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	relation TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (decision_id, entity_type, entity_id, relation)
)`
)

const (
	entityLinksDDL = `CREATE TABLE IF NOT EXISTS entity_links (
	id TEXT PRIMARY KEY,
	source_type TEXT NOT NULL,
	source_id TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT NOT NULL,
	relation TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (source_type, source_id, target_type, target_id, relation)
)`

	auditTrailDDL = `CREATE TABLE IF NOT EXISTS audit_trail (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
)`
)

// Full-text index over decisions.search_text, external-content so the
// decisions table stays the single source of row data. The triggers
// keep it current through every insert, update, and delete path,
// replay included.
const (
	decisionsFTSDDL = `CREATE VIRTUAL TABLE IF NOT EXISTS decisions_fts USING fts5(
	search_text,
	content='decisions',
	content_rowid='rowid',
	tokenize='porter unicode61'
)`

	decisionsFTSInsertTrigger = `CREATE TRIGGER IF NOT EXISTS decisions_fts_ai AFTER INSERT ON decisions BEGIN
	INSERT INTO decisions_fts (rowid, search_text) VALUES (new.rowid, new.search_text);
END`

	decisionsFTSDeleteTrigger = `CREATE TRIGGER IF NOT EXISTS decisions_fts_ad AFTER DELETE ON decisions BEGIN
	INSERT INTO decisions_fts (decisions_fts, rowid, search_text) VALUES ('delete', old.rowid, old.search_text);
END`

	decisionsFTSUpdateTrigger = `CREATE TRIGGER IF NOT EXISTS decisions_fts_au AFTER UPDATE ON decisions BEGIN
	INSERT INTO decisions_fts (decisions_fts, rowid, search_text) VALUES ('delete', old.rowid, old.search_text);
	INSERT INTO decisions_fts (rowid, search_text) VALUES (new.rowid, new.search_text);
END`
)

// schemaDDL lists every statement applied on open, in dependency order.
var schemaDDL = []string{
	sessionsDDL,
	researchItemsDDL,
	findingsDDL,
	hypothesesDDL,
	insightsDDL,
	tasksDDL,
	decisionsDDL,
	decisionOptionsDDL,
	decisionOptionEvidenceDDL,
	decisionOutcomesDDL,
	entityLinksDDL,
	auditTrailDDL,
	decisionsFTSDDL,
	decisionsFTSInsertTrigger,
	decisionsFTSDeleteTrigger,
	decisionsFTSUpdateTrigger,
}

// indexDDL lists secondary indexes. The partial unique index on
// decision_options enforces the one-chosen-option rule at the storage
// layer, below any application check.
var indexDDL = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_decision_options_one_chosen
		ON decision_options (decision_id) WHERE is_chosen = 1`,
	`CREATE INDEX IF NOT EXISTS idx_decision_options_decision
		ON decision_options (decision_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_subject
		ON decisions (subject_type, subject_id)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_session
		ON decisions (session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_category
		ON decisions (category)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_confidence
		ON decisions (confidence)`,
	`CREATE INDEX IF NOT EXISTS idx_decision_evidence_entity
		ON decision_option_evidence (entity_type, entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_decision_outcomes_entity
		ON decision_outcomes (entity_type, entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_entity_links_source
		ON entity_links (source_type, source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_entity_links_target
		ON entity_links (target_type, target_id)`,
	`CREATE INDEX IF NOT EXISTS idx_findings_subject
		ON findings (subject)`,
	`CREATE INDEX IF NOT EXISTS idx_findings_session
		ON findings (session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_session
		ON tasks (session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entity
		ON audit_trail (entity_type, entity_id)`,
}
