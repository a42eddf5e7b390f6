package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// executeQuery runs a single-value query against the test database.
func executeQuery(ctx context.Context, dsn string, query string, args ...interface{}) (interface{}, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var result interface{}
	err = db.QueryRowContext(ctx, query, args...).Scan(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	return result, nil
}

// executeNonQuerySQL runs a statement that returns no rows (TRUNCATE, DELETE, UPDATE).
func executeNonQuerySQL(ctx context.Context, dsn string, statement string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, statement)
	if err != nil {
		return fmt.Errorf("failed to execute SQL statement: %w", err)
	}

	return nil
}

// verifyRecordExists checks row existence without pulling the row back.
func verifyRecordExists(ctx context.Context, dsn string, table string, whereClause string, args ...interface{}) (bool, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return false, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", table, whereClause)

	var result int
	err = db.QueryRowContext(ctx, query, args...).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to execute existence check: %w", err)
	}

	return result == 1, nil
}

// truncateOnboardingTables resets the tables between tests so suites
// never observe each other's rows.
func truncateOnboardingTables(ctx context.Context, dsn string) error {
	return executeNonQuerySQL(ctx, dsn, "TRUNCATE TABLE onboardings, tenants RESTART IDENTITY")
}

// redactDSN strips the password from a DSN for log output.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		// key=value style DSN, crude redaction
		parts := strings.Fields(dsn)
		for i, p := range parts {
			if strings.HasPrefix(p, "password=") {
				parts[i] = "password=***"
			}
		}
		return strings.Join(parts, " ")
	}
	u.User = url.User(u.User.Username())
	return u.String()
}

func generateUUID() string {
	return uuid.New().String()
}
