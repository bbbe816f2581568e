package repository

// Schema definitions for the Redress database.
// Compatible with both SQLite and PostgreSQL.

const schemaJourneys = `
CREATE TABLE IF NOT EXISTS journeys (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    seller_type TEXT,
    ticket_amount REAL NOT NULL,
    ticket_currency TEXT NOT NULL,
    return_ticket INTEGER NOT NULL DEFAULT 0,
    operator_country TEXT,
    legs TEXT NOT NULL,
    booking_refs TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journeys_tenant ON journeys(tenant_id);
`

const schemaEvaluations = `
CREATE TABLE IF NOT EXISTS evaluations (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    journey_id TEXT NOT NULL,
    scope TEXT NOT NULL,
    scope_confidence TEXT,
    form TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    profile TEXT NOT NULL,
    results TEXT NOT NULL,
    contracts TEXT,
    calculation TEXT,
    warnings TEXT,
    metadata TEXT NOT NULL,
    booking_refs TEXT
);

CREATE INDEX IF NOT EXISTS idx_evaluations_tenant ON evaluations(tenant_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_journey ON evaluations(tenant_id, journey_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_timestamp ON evaluations(tenant_id, timestamp);
`

// schemaEvaluationRefs is the side table behind duplicate-claim
// detection: one row per (evaluation, booking reference).
const schemaEvaluationRefs = `
CREATE TABLE IF NOT EXISTS evaluation_refs (
    eval_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    booking_ref TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    PRIMARY KEY (eval_id, booking_ref)
);

CREATE INDEX IF NOT EXISTS idx_evaluation_refs_lookup ON evaluation_refs(tenant_id, booking_ref, timestamp);
`

const schemaMatrixRecords = `
CREATE TABLE IF NOT EXISTS matrix_records (
    country TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    scope TEXT NOT NULL,
    blocked INTEGER NOT NULL DEFAULT 0,
    disables TEXT,
    notes TEXT,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, country, scope)
);

CREATE INDEX IF NOT EXISTS idx_matrix_records_tenant ON matrix_records(tenant_id);
`

const schemaOverrideRecords = `
CREATE TABLE IF NOT EXISTS override_records (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    country TEXT NOT NULL,
    operator TEXT,
    product TEXT,
    scope TEXT,
    condition TEXT,
    enables TEXT,
    disables TEXT,
    notes TEXT,
    form_id TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_override_records_tenant ON override_records(tenant_id);
CREATE INDEX IF NOT EXISTS idx_override_records_enabled ON override_records(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaJourneys,
		schemaEvaluations,
		schemaEvaluationRefs,
		schemaMatrixRecords,
		schemaOverrideRecords,
	}
}
