package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/observer"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/utils"
)

// --- Tenant Repository Methods ---

// UpsertTenant inserts or refreshes a tenant projection row, keyed by tenant_id.
func (r *PostgresRepo) UpsertTenant(ctx context.Context, tenant model.Tenant) error {
	tenant.UpdatedAt = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns(model.TenantUpdateColumns()),
		}).Create(&tenant)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpsertTenant Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "tenant", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to upsert tenant after retries",
			zap.String("tenant_id", tenant.TenantID),
			zap.String("account_id", tenant.AccountID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindTenantsByAccountID returns every tenant provisioned for an account.
// The caller decides how to treat multiple matches.
func (r *PostgresRepo) FindTenantsByAccountID(ctx context.Context, accountID string) ([]model.Tenant, error) {
	var tenants []model.Tenant
	operation := func() error {
		result := r.db.WithContext(ctx).Where("account_id = ?", accountID).Find(&tenants)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindTenantsByAccountID", operation)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find tenants by account ID after retries",
			zap.String("account_id", accountID),
			zap.Error(findErr))
		return nil, findErr
	}
	return tenants, nil
}

// FindTenantByTenantID finds a tenant projection row by its directory identifier.
func (r *PostgresRepo) FindTenantByTenantID(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var tenant model.Tenant
	operation := func() error {
		result := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&tenant)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindTenantByTenantID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find tenant by tenant ID after retries",
			zap.String("tenant_id", tenantID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &tenant, nil
}
