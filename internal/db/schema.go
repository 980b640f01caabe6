package db

// SchemaSQL is the complete schema for the SLA engine database.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// this schema via GetSchemaSQL(). If repository code references a column that
// doesn't exist here, tests fail immediately with "no such column".
//
// When adding new columns or tables:
//  1. Add a migration to the migrations list
//  2. Update SchemaSQL here
//  3. Bump SchemaVersion
const SchemaSQL = `
-- SLA policies
CREATE TABLE IF NOT EXISTS sla_policies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	enabled INTEGER NOT NULL DEFAULT 1,
	is_default INTEGER NOT NULL DEFAULT 0,
	apply_per_workshop INTEGER NOT NULL DEFAULT 0,
	warn_threshold_pct INTEGER NOT NULL CHECK(warn_threshold_pct BETWEEN 0 AND 100),
	critical_threshold_pct INTEGER NOT NULL CHECK(critical_threshold_pct BETWEEN 0 AND 100),
	breach_grace_minutes INTEGER NOT NULL DEFAULT 0 CHECK(breach_grace_minutes >= 0),
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	CHECK(critical_threshold_pct > warn_threshold_pct)
);

-- At most one enabled default policy
CREATE UNIQUE INDEX IF NOT EXISTS idx_sla_policies_default
	ON sla_policies(is_default) WHERE is_default = 1 AND enabled = 1;

-- SLA rules (unordered for selection; position keeps first-wins tie-breaks stable)
CREATE TABLE IF NOT EXISTS sla_rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	policy_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	service_type TEXT,
	workshop TEXT,
	start_event TEXT NOT NULL,
	stop_event TEXT NOT NULL,
	tat_hours INTEGER NOT NULL,
	escalation_minutes_1 INTEGER NOT NULL DEFAULT 0,
	escalate_to_role_1 TEXT,
	escalation_minutes_2 INTEGER NOT NULL DEFAULT 0,
	escalate_to_role_2 TEXT,
	FOREIGN KEY (policy_id) REFERENCES sla_policies(id) ON DELETE CASCADE,
	UNIQUE(policy_id, position)
);

-- Work items (narrow SLA view; business fields live in the external store)
CREATE TABLE IF NOT EXISTS work_items (
	id TEXT PRIMARY KEY,
	current_state TEXT NOT NULL DEFAULT '',
	service_type TEXT,
	workshop TEXT,
	sla_policy_id TEXT,
	sla_policy_pinned INTEGER NOT NULL DEFAULT 0,
	sla_start_event TEXT,
	sla_start DATETIME,
	sla_due DATETIME,
	sla_progress_pct REAL NOT NULL DEFAULT 0 CHECK(sla_progress_pct BETWEEN 0 AND 100),
	sla_status TEXT NOT NULL DEFAULT '' CHECK(sla_status IN ('', 'green', 'yellow', 'red')),
	sla_breached INTEGER NOT NULL DEFAULT 0,
	sla_closed_at DATETIME,
	sla_version INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	CHECK((sla_start IS NULL) = (sla_due IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_work_items_open
	ON work_items(sla_due) WHERE sla_due IS NOT NULL AND sla_closed_at IS NULL;

-- Escalation ledger (one row per work item and level, ever)
CREATE TABLE IF NOT EXISTS escalation_records (
	work_item_id TEXT NOT NULL,
	level INTEGER NOT NULL CHECK(level > 0),
	status TEXT NOT NULL CHECK(status IN ('pending', 'sent')),
	role TEXT NOT NULL,
	recipients TEXT,
	claim_token TEXT NOT NULL,
	claimed_at DATETIME NOT NULL,
	sent_at DATETIME,
	PRIMARY KEY (work_item_id, level)
);

-- Escalation recipients
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_roles (
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	PRIMARY KEY (user_id, role),
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
`

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
