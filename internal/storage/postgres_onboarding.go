package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/observer"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/utils"
)

// --- Onboarding Repository Methods ---

// SaveOnboarding inserts a new onboarding workflow record.
func (r *PostgresRepo) SaveOnboarding(ctx context.Context, record *model.Onboarding) error {
	operation := func() error {
		if createErr := r.db.WithContext(ctx).Create(record).Error; createErr != nil {
			return checkConstraintViolation(createErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveOnboarding Commit", operation)
	observer.ObserveDbOperationDuration("save", "onboarding", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save onboarding after retries",
			zap.String("account_id", record.AccountID),
			zap.Error(commitErr))
		return commitErr // Already wrapped by checkConstraintViolation
	}
	return nil
}

// FindOnboardingByAccountID finds the workflow record for an account.
func (r *PostgresRepo) FindOnboardingByAccountID(ctx context.Context, accountID string) (*model.Onboarding, error) {
	var record model.Onboarding
	operation := func() error {
		result := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&record)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindOnboardingByAccountID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find onboarding by account ID after retries",
			zap.String("account_id", accountID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &record, nil
}

// FindOnboardingByWorkflowID finds the workflow record addressed by a webhook.
func (r *PostgresRepo) FindOnboardingByWorkflowID(ctx context.Context, workflowID string) (*model.Onboarding, error) {
	var record model.Onboarding
	operation := func() error {
		result := r.db.WithContext(ctx).Where("workflow_id = ?", workflowID).First(&record)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindOnboardingByWorkflowID", operation)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find onboarding by workflow ID after retries",
			zap.String("workflow_id", workflowID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &record, nil
}

// FindPendingOnboardingByAccountID finds the record for an account that has
// no tenant linked yet. More than one pending match is a broken invariant
// and surfaces as ErrDataIntegrity.
func (r *PostgresRepo) FindPendingOnboardingByAccountID(ctx context.Context, accountID string) (*model.Onboarding, error) {
	var records []model.Onboarding
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("account_id = ? AND (tenant_id IS NULL OR tenant_id = '')", accountID).
			Find(&records)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	findErr := retryableOperation(ctx, readPolicy, "FindPendingOnboardingByAccountID", operation)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to find pending onboarding after retries",
			zap.String("account_id", accountID),
			zap.Error(findErr))
		return nil, findErr
	}
	if len(records) == 0 {
		return nil, apperrors.ErrNotFound
	}
	if len(records) > 1 {
		return nil, fmt.Errorf("%w: %d pending onboarding records for account %s", apperrors.ErrDataIntegrity, len(records), accountID)
	}
	return &records[0], nil
}

// UpdateOnboardingFields updates only the given columns of the account's record.
func (r *PostgresRepo) UpdateOnboardingFields(ctx context.Context, accountID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = utils.Now()

	operation := func() error {
		updateResult := r.db.WithContext(ctx).Model(&model.Onboarding{}).
			Where("account_id = ?", accountID).
			Updates(fields)
		if updateResult.Error != nil {
			return checkConstraintViolation(updateResult.Error)
		}
		if updateResult.RowsAffected == 0 {
			return backoff.Permanent(fmt.Errorf("%w: no onboarding record for account %s", apperrors.ErrNotFound, accountID))
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateOnboardingFields Commit", operation)
	observer.ObserveDbOperationDuration("update", "onboarding", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to update onboarding fields after retries",
			zap.String("account_id", accountID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// LinkOnboardingTenant attaches a tenant to a still-unlinked record and
// marks the project configuration stage complete. A record that already
// carries a tenant is left untouched.
func (r *PostgresRepo) LinkOnboardingTenant(ctx context.Context, accountID string, tenantID string) error {
	operation := func() error {
		updateResult := r.db.WithContext(ctx).Model(&model.Onboarding{}).
			Where("account_id = ? AND (tenant_id IS NULL OR tenant_id = '')", accountID).
			Updates(map[string]interface{}{
				"tenant_id":     tenantID,
				"current_stage": model.StageProjectConfig,
				"progress":      100,
				"updated_at":    utils.Now(),
			})
		if updateResult.Error != nil {
			return checkConstraintViolation(updateResult.Error)
		}
		if updateResult.RowsAffected == 0 {
			logger.FromContext(ctx).Debug("LinkOnboardingTenant affected no rows, record absent or already linked",
				zap.String("account_id", accountID),
				zap.String("tenant_id", tenantID))
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "LinkOnboardingTenant Commit", operation)
	observer.ObserveDbOperationDuration("link", "onboarding", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to link tenant after retries",
			zap.String("account_id", accountID),
			zap.String("tenant_id", tenantID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// MergeOnboardingConfig shallow-merges the patch into the config jsonb blob.
// Absent config starts from an empty object.
func (r *PostgresRepo) MergeOnboardingConfig(ctx context.Context, accountID string, patch map[string]interface{}) error {
	if len(patch) == 0 {
		return nil
	}
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal config patch: %w", apperrors.ErrBadRequest, err)
	}

	operation := func() error {
		updateResult := r.db.WithContext(ctx).Model(&model.Onboarding{}).
			Where("account_id = ?", accountID).
			Updates(map[string]interface{}{
				"config":     gorm.Expr("COALESCE(config, '{}'::jsonb) || ?::jsonb", datatypes.JSON(patchJSON)),
				"updated_at": utils.Now(),
			})
		if updateResult.Error != nil {
			return checkConstraintViolation(updateResult.Error)
		}
		if updateResult.RowsAffected == 0 {
			return backoff.Permanent(fmt.Errorf("%w: no onboarding record for account %s", apperrors.ErrNotFound, accountID))
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "MergeOnboardingConfig Commit", operation)
	observer.ObserveDbOperationDuration("merge_config", "onboarding", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to merge onboarding config after retries",
			zap.String("account_id", accountID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// RaiseOnboardingProgress moves progress forward, never back. Stale webhook
// deliveries carrying a lower value leave the stored progress as is.
func (r *PostgresRepo) RaiseOnboardingProgress(ctx context.Context, accountID string, progress int) error {
	operation := func() error {
		updateResult := r.db.WithContext(ctx).Model(&model.Onboarding{}).
			Where("account_id = ?", accountID).
			Updates(map[string]interface{}{
				"progress":   gorm.Expr("GREATEST(progress, ?)", progress),
				"updated_at": utils.Now(),
			})
		if updateResult.Error != nil {
			return checkConstraintViolation(updateResult.Error)
		}
		if updateResult.RowsAffected == 0 {
			return backoff.Permanent(fmt.Errorf("%w: no onboarding record for account %s", apperrors.ErrNotFound, accountID))
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "RaiseOnboardingProgress Commit", operation)
	observer.ObserveDbOperationDuration("raise_progress", "onboarding", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to raise onboarding progress after retries",
			zap.String("account_id", accountID),
			zap.Int("progress", progress),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}
