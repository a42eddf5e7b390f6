package usecase

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// LinkTenantToOnboarding attaches a tenant to the pending onboarding of
// its account. Called from the tenant-events consumer, so it must be
// idempotent: no pending record, or one already linked, is a no-op.
func (s *Service) LinkTenantToOnboarding(ctx context.Context, accountID, tenantID string) error {
	log := logger.FromContext(ctx).With(
		zap.String("account_id", accountID),
		zap.String("tenant_id", tenantID),
	)

	_, err := s.repo.FindPendingByAccountID(ctx, accountID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			log.Debug("No pending onboarding for account, nothing to link")
			return nil
		}
		// Integrity faults and storage errors surface to the caller.
		return err
	}

	if err := s.repo.LinkTenant(ctx, accountID, tenantID); err != nil {
		return err
	}

	log.Info("Tenant linked to onboarding")
	return nil
}
