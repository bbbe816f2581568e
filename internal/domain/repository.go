package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Journey operations
	SaveJourney(ctx context.Context, tenantID string, journey *Journey) error
	GetJourney(ctx context.Context, tenantID string, journeyID string) (*Journey, error)

	// Evaluation results
	SaveEvaluation(ctx context.Context, tenantID string, eval *ClaimEvaluation) error
	GetEvaluation(ctx context.Context, tenantID string, evalID string) (*ClaimEvaluation, error)
	CountEvaluationsByBookingRef(ctx context.Context, tenantID string, bookingRef string, since time.Time) (int64, error)

	// Exemption matrix operations
	SaveMatrixRecord(ctx context.Context, tenantID string, rec *MatrixRecord) error
	ListMatrixRecords(ctx context.Context, tenantID string) ([]*MatrixRecord, error)

	// National/operator override operations
	SaveOverride(ctx context.Context, tenantID string, rec *OverrideRecord) error
	GetOverride(ctx context.Context, tenantID string, overrideID string) (*OverrideRecord, error)
	ListOverrides(ctx context.Context, tenantID string) ([]*OverrideRecord, error)
	DeleteOverride(ctx context.Context, tenantID string, overrideID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
