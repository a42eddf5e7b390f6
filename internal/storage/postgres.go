package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// --- Retry Logic Configuration ---
const (
	defaultRetryInitialInterval = 50 * time.Millisecond
	defaultRetryMaxInterval     = 2 * time.Second
	readRetryMaxElapsedTime     = 5 * time.Second  // More aggressive for reads
	commitRetryMaxElapsedTime   = 15 * time.Second // More tolerant for commits
)

// newRetryPolicy creates a new exponential backoff policy with context awareness.
func newRetryPolicy(ctx context.Context, maxElapsedTime time.Duration) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultRetryInitialInterval
	b.MaxInterval = defaultRetryMaxInterval
	b.MaxElapsedTime = maxElapsedTime
	b.Reset() // Important: Reset before first use
	return backoff.WithContext(b, ctx)
}

// retryableOperation wraps a database operation with retry logic.
func retryableOperation(ctx context.Context, policy backoff.BackOffContext, opName string, operation func() error) error {
	notify := func(err error, d time.Duration) {
		logger.FromContext(ctx).Warn("Retrying DB operation",
			zap.String("operation", opName),
			zap.Error(err),
			zap.Duration("after", d),
		)
	}

	err := backoff.RetryNotify(func() error {
		err := operation()
		if err != nil {
			// Check for non-retryable errors first
			if errors.Is(err, gorm.ErrRecordNotFound) ||
				errors.Is(err, gorm.ErrInvalidTransaction) ||
				errors.Is(err, gorm.ErrDuplicatedKey) ||
				errors.Is(err, gorm.ErrForeignKeyViolated) {
				return backoff.Permanent(err)
			}
			// Check for potentially transient errors
			if isTransientError(err) {
				return err // Retry transient errors
			}
			// Treat other errors as permanent by default
			return backoff.Permanent(err)
		}
		return nil // Success
	}, policy, notify)

	return err
}

// isTransientError checks if the error suggests a temporary issue like a network problem.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	// Context deadline exceeded often indicates a timeout
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 — Connection Exception
		// Class 53 — Insufficient Resources
		// 40P01 deadlock, 40001 serialization failure
		if strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "53") ||
			strings.HasPrefix(pgErr.Code, "40P01") ||
			strings.HasPrefix(pgErr.Code, "40001") {
			return true
		}
	}

	// Fallback to string matching for common network-related errors
	errStr := strings.ToLower(err.Error())
	transientIndicators := []string{
		"connection refused",
		"network is unreachable",
		"i/o timeout",
		"broken pipe",
		"connection reset by peer",
		"could not translate host name",
		"no route to host",
		"database system is starting up",
		"connection timed out",
		"connection reset",
	}
	for _, indicator := range transientIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// PostgresRepo implements the onboarding and tenant repositories
type PostgresRepo struct {
	db *gorm.DB
}

// NewPostgresRepoWithDB wraps an existing GORM handle, mainly for tests.
func NewPostgresRepoWithDB(db *gorm.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// ensureTableExists checks if a table exists and creates it using the provided SQL DDL if it doesn't.
func ensureTableExists(db *gorm.DB, tableName string, createTableSQL string) error {
	var exists bool
	checkSQL := `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = ?
		)`
	err := db.Raw(checkSQL, tableName).Scan(&exists).Error
	if err != nil {
		return fmt.Errorf("failed to check if table %s exists: %w", tableName, err)
	}

	if !exists {
		logger.Log.Info("Table does not exist, creating table", zap.String("tableName", tableName))
		if err := db.Exec(createTableSQL).Error; err != nil {
			return fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
		logger.Log.Info("Successfully created table", zap.String("tableName", tableName))
	} else {
		logger.Log.Debug("Table already exists", zap.String("tableName", tableName))
	}
	return nil
}

// NewPostgresRepo creates a new Postgres repository and initializes the schema
func NewPostgresRepo(dsn string, autoMigrate bool) (*PostgresRepo, error) {
	// Retry connecting to the database
	operationConnect := func() (*gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			if isTransientError(err) {
				logger.Log.Warn("Failed to connect to postgres (transient), retrying...", zap.Error(err))
				return nil, err
			}
			return nil, backoff.Permanent(fmt.Errorf("failed to connect to postgres db: %w", err))
		}
		return db, nil
	}

	notify := func(err error, d time.Duration) {
		logger.Log.Warn("Retrying DB connection", zap.Error(err), zap.Duration("after", d))
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 15 * time.Second
	b.MaxElapsedTime = 1 * time.Minute

	db, err := backoff.RetryNotifyWithData(operationConnect, b, notify)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres after retries: %w", err)
	}

	repo := &PostgresRepo{db: db}

	onboardingsTableDDL := `
	CREATE TABLE onboardings (
		id BIGSERIAL PRIMARY KEY,
		workflow_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		tenant_id TEXT,
		current_stage TEXT,
		progress INT DEFAULT 0,
		completed BOOLEAN DEFAULT false,
		failed BOOLEAN DEFAULT false,
		crawl_result TEXT,
		config JSONB,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);
	`

	tenantsTableDDL := `
	CREATE TABLE tenants (
		id BIGSERIAL PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT,
		account_id TEXT,
		organization_uuid TEXT,
		language TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);
	`

	if err := ensureTableExists(db, "onboardings", onboardingsTableDDL); err != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, err
	}
	if err := ensureTableExists(db, "tenants", tenantsTableDDL); err != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, err
	}

	// account_id uniqueness keeps one workflow record per merchant account,
	// workflow_id uniqueness anchors webhook addressing.
	indexes := map[string]string{
		"idx_onboardings_workflow_id": "CREATE UNIQUE INDEX IF NOT EXISTS idx_onboardings_workflow_id ON onboardings USING btree (workflow_id);",
		"idx_onboardings_account_id":  "CREATE UNIQUE INDEX IF NOT EXISTS idx_onboardings_account_id ON onboardings USING btree (account_id);",
		"idx_tenants_tenant_id":       "CREATE UNIQUE INDEX IF NOT EXISTS idx_tenants_tenant_id ON tenants USING btree (tenant_id);",
		"idx_tenants_account_id":      "CREATE INDEX IF NOT EXISTS idx_tenants_account_id ON tenants USING btree (account_id);",
	}
	for indexName, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			// Log index creation errors but don't fail startup, AutoMigrate might fix it
			logger.Log.Warn("Failed to create index", zap.String("indexName", indexName), zap.Error(err))
		}
	}

	if autoMigrate {
		logger.Log.Info("Running auto-migration")
		err = db.AutoMigrate(
			&model.Onboarding{},
			&model.Tenant{},
		)
		if err != nil {
			// Log migration errors but don't necessarily fail startup
			logger.Log.Error("Auto-migration failed or produced errors", zap.Error(err))
		}
	} else {
		logger.Log.Info("Auto-migration disabled")
	}

	return repo, nil
}

// Close closes the database connection
func (r *PostgresRepo) Close(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to get underlying SQL DB for closing", zap.Error(err))
		return nil
	}

	closeErr := sqlDB.Close()
	if closeErr != nil {
		logger.FromContext(ctx).Error("Failed to close database connection", zap.Error(closeErr))
		return fmt.Errorf("failed to close SQL DB: %w", closeErr)
	}

	logger.FromContext(ctx).Info("Database connection closed successfully")
	return nil
}

// checkConstraintViolation inspects database errors and maps them to standard apperrors.
func checkConstraintViolation(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		// Class 23 — Integrity Constraint Violation
		case "23505": // unique_violation
			return fmt.Errorf("%w: constraint %s: %w", apperrors.ErrDuplicate, pgErr.ConstraintName, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: constraint %s: %w", apperrors.ErrBadRequest, pgErr.ConstraintName, err)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: null value in column %s: %w", apperrors.ErrBadRequest, pgErr.ColumnName, err)
		case "23514": // check_violation
			return fmt.Errorf("%w: constraint %s: %w", apperrors.ErrBadRequest, pgErr.ConstraintName, err)

		// Class 22 — Data Exception
		case "22001": // string_data_right_truncation
			return fmt.Errorf("%w: value too long for column %s: %w", apperrors.ErrBadRequest, pgErr.ColumnName, err)
		case "22P02": // invalid_text_representation
			return fmt.Errorf("%w: invalid input syntax for type %s: %w", apperrors.ErrBadRequest, pgErr.DataTypeName, err)

		// Class 40 — Transaction Rollback
		case "40001": // serialization_failure
			fallthrough
		case "40P01": // deadlock_detected
			return fmt.Errorf("%w: transaction rollback (%s): %w", apperrors.ErrDatabase, pgErr.Code, err)

		default:
			if strings.HasPrefix(pgErr.Code, "53") { // Class 53 — Insufficient Resources
				return fmt.Errorf("%w: insufficient resources (%s): %w", apperrors.ErrDatabase, pgErr.Code, err)
			}
			if strings.HasPrefix(pgErr.Code, "08") { // Class 08 — Connection Exception
				return fmt.Errorf("%w: connection error (%s): %w", apperrors.ErrDatabase, pgErr.Code, err)
			}
			return fmt.Errorf("%w: unhandled pgcode %s: %w", apperrors.ErrDatabase, pgErr.Code, err)
		}
	}

	// Assume other GORM or generic errors are general database errors
	return fmt.Errorf("%w: %w", apperrors.ErrDatabase, err)
}
