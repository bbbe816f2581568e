// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-rail/redress/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveJourney stores a journey with tenant isolation.
func (r *SQLRepository) SaveJourney(ctx context.Context, tenantID string, journey *domain.Journey) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if journey.ID == "" {
		return fmt.Errorf("%w: journey id is required", ErrInvalidInput)
	}

	legs, _ := json.Marshal(journey.Legs)
	refs, _ := json.Marshal(journey.BookingReferences)

	returnTicket := 0
	if journey.ReturnTicket {
		returnTicket = 1
	}

	query := `
		INSERT INTO journeys (
			id, tenant_id, seller_type, ticket_amount, ticket_currency,
			return_ticket, operator_country, legs, booking_refs, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		journey.ID, tenantID, string(journey.SellerType),
		journey.TicketPrice.Amount, journey.TicketPrice.Currency,
		returnTicket, journey.OperatorCountry,
		string(legs), string(refs), time.Now().UTC(),
	)
	return err
}

// GetJourney retrieves a journey by ID with tenant isolation.
func (r *SQLRepository) GetJourney(ctx context.Context, tenantID string, journeyID string) (*domain.Journey, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, seller_type, ticket_amount, ticket_currency,
			   return_ticket, operator_country, legs, booking_refs
		FROM journeys
		WHERE tenant_id = ? AND id = ?
	`

	var j domain.Journey
	var sellerType, legs, refs string
	var returnTicket int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, journeyID).Scan(
		&j.ID, &sellerType,
		&j.TicketPrice.Amount, &j.TicketPrice.Currency,
		&returnTicket, &j.OperatorCountry,
		&legs, &refs,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	j.SellerType = domain.SellerType(sellerType)
	j.ReturnTicket = returnTicket == 1
	if err := json.Unmarshal([]byte(legs), &j.Legs); err != nil {
		return nil, fmt.Errorf("failed to parse journey legs: %w", err)
	}
	if refs != "" {
		json.Unmarshal([]byte(refs), &j.BookingReferences)
	}

	return &j, nil
}

// SaveEvaluation stores an evaluation result with tenant isolation. The
// booking-reference side table feeds duplicate detection.
func (r *SQLRepository) SaveEvaluation(ctx context.Context, tenantID string, eval *domain.ClaimEvaluation) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	profile, _ := json.Marshal(eval.Profile)
	results, _ := json.Marshal(eval.Results)
	contracts, _ := json.Marshal(eval.Contracts)
	calculation, _ := json.Marshal(eval.Calculation)
	warnings, _ := json.Marshal(eval.Warnings)
	metadata, _ := json.Marshal(eval.Metadata)
	refs, _ := json.Marshal(eval.BookingRefs)

	query := `
		INSERT INTO evaluations (
			id, tenant_id, journey_id, scope, scope_confidence, form,
			timestamp, profile, results, contracts, calculation,
			warnings, metadata, booking_refs
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		eval.ID, tenantID, eval.JourneyID,
		string(eval.Scope), eval.ScopeConfidence, eval.Form.Form,
		eval.Timestamp, string(profile), string(results),
		string(contracts), string(calculation),
		string(warnings), string(metadata), string(refs),
	)
	if err != nil {
		return err
	}

	refQuery := `
		INSERT INTO evaluation_refs (eval_id, tenant_id, booking_ref, timestamp)
		VALUES (?, ?, ?, ?)
	`
	for _, ref := range eval.BookingRefs {
		if ref == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, r.rebind(refQuery),
			eval.ID, tenantID, ref, eval.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// GetEvaluation retrieves an evaluation by ID with tenant isolation.
func (r *SQLRepository) GetEvaluation(ctx context.Context, tenantID string, evalID string) (*domain.ClaimEvaluation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, journey_id, scope, scope_confidence, form,
			   timestamp, profile, results, contracts, calculation,
			   warnings, metadata, booking_refs
		FROM evaluations
		WHERE tenant_id = ? AND id = ?
	`

	var eval domain.ClaimEvaluation
	var scope, profile, results, contracts, calculation, warnings, metadata, refs string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, evalID).Scan(
		&eval.ID, &eval.TenantID, &eval.JourneyID,
		&scope, &eval.ScopeConfidence, &eval.Form.Form,
		&eval.Timestamp, &profile, &results,
		&contracts, &calculation,
		&warnings, &metadata, &refs,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	eval.Scope = domain.Scope(scope)
	json.Unmarshal([]byte(profile), &eval.Profile)
	json.Unmarshal([]byte(results), &eval.Results)
	json.Unmarshal([]byte(contracts), &eval.Contracts)
	json.Unmarshal([]byte(calculation), &eval.Calculation)
	json.Unmarshal([]byte(warnings), &eval.Warnings)
	json.Unmarshal([]byte(metadata), &eval.Metadata)
	json.Unmarshal([]byte(refs), &eval.BookingRefs)

	return &eval, nil
}

// CountEvaluationsByBookingRef counts evaluations filed against a
// booking reference since the given time, with tenant isolation.
func (r *SQLRepository) CountEvaluationsByBookingRef(ctx context.Context, tenantID string, bookingRef string, since time.Time) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*) FROM evaluation_refs
		WHERE tenant_id = ? AND booking_ref = ? AND timestamp >= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, bookingRef, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

// SaveMatrixRecord upserts an exemption matrix row with tenant isolation.
func (r *SQLRepository) SaveMatrixRecord(ctx context.Context, tenantID string, rec *domain.MatrixRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rec.Country == "" || rec.Scope == "" {
		return fmt.Errorf("%w: country and scope are required", ErrInvalidInput)
	}

	disables, _ := json.Marshal(rec.Disables)
	notes, _ := json.Marshal(rec.Notes)

	blocked := 0
	if rec.Blocked {
		blocked = 1
	}

	query := `
		INSERT INTO matrix_records (
			country, tenant_id, scope, blocked, disables, notes, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, country, scope) DO UPDATE SET
			blocked = excluded.blocked,
			disables = excluded.disables,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		strings.ToUpper(rec.Country), tenantID, string(rec.Scope),
		blocked, string(disables), string(notes), time.Now().UTC(),
	)
	return err
}

// ListMatrixRecords retrieves the full exemption matrix for a tenant.
func (r *SQLRepository) ListMatrixRecords(ctx context.Context, tenantID string) ([]*domain.MatrixRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT country, scope, blocked, disables, notes
		FROM matrix_records
		WHERE tenant_id = ?
		ORDER BY country, scope
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.MatrixRecord
	for rows.Next() {
		var rec domain.MatrixRecord
		var scope, disables, notes string
		var blocked int

		if err := rows.Scan(&rec.Country, &scope, &blocked, &disables, &notes); err != nil {
			return nil, err
		}

		rec.Scope = domain.Scope(scope)
		rec.Blocked = blocked == 1
		json.Unmarshal([]byte(disables), &rec.Disables)
		json.Unmarshal([]byte(notes), &rec.Notes)
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// SaveOverride upserts an override record with tenant isolation.
func (r *SQLRepository) SaveOverride(ctx context.Context, tenantID string, rec *domain.OverrideRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: override id is required", ErrInvalidInput)
	}

	enables, _ := json.Marshal(rec.Enables)
	disables, _ := json.Marshal(rec.Disables)
	notes, _ := json.Marshal(rec.Notes)

	enabled := 0
	if rec.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO override_records (
			id, tenant_id, country, operator, product, scope, condition,
			enables, disables, notes, form_id, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			country = excluded.country,
			operator = excluded.operator,
			product = excluded.product,
			scope = excluded.scope,
			condition = excluded.condition,
			enables = excluded.enables,
			disables = excluded.disables,
			notes = excluded.notes,
			form_id = excluded.form_id,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, tenantID, strings.ToUpper(rec.Country),
		rec.Operator, rec.Product, string(rec.Scope), rec.Condition,
		string(enables), string(disables), string(notes),
		rec.FormID, enabled, now, now,
	)
	return err
}

// GetOverride retrieves an override record with tenant isolation.
func (r *SQLRepository) GetOverride(ctx context.Context, tenantID string, overrideID string) (*domain.OverrideRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, country, operator, product, scope, condition,
			   enables, disables, notes, form_id, enabled
		FROM override_records
		WHERE tenant_id = ? AND id = ?
	`

	rec, err := r.scanOverride(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, overrideID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListOverrides retrieves all enabled override records for a tenant.
func (r *SQLRepository) ListOverrides(ctx context.Context, tenantID string) ([]*domain.OverrideRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, country, operator, product, scope, condition,
			   enables, disables, notes, form_id, enabled
		FROM override_records
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.OverrideRecord
	for rows.Next() {
		rec, err := r.scanOverride(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// DeleteOverride soft-deletes an override by setting enabled = 0.
func (r *SQLRepository) DeleteOverride(ctx context.Context, tenantID string, overrideID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE override_records
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, overrideID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanOverride(row rowScanner) (*domain.OverrideRecord, error) {
	var rec domain.OverrideRecord
	var scope, enables, disables, notes string
	var enabled int

	if err := row.Scan(
		&rec.ID, &rec.Country, &rec.Operator, &rec.Product,
		&scope, &rec.Condition,
		&enables, &disables, &notes, &rec.FormID, &enabled,
	); err != nil {
		return nil, err
	}

	rec.Scope = domain.Scope(scope)
	rec.Enabled = enabled == 1
	json.Unmarshal([]byte(enables), &rec.Enables)
	json.Unmarshal([]byte(disables), &rec.Disables)
	json.Unmarshal([]byte(notes), &rec.Notes)
	return &rec, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
