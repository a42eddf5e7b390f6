package usecase

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// RecordFailure marks the workflow failed and stores the reason in the
// config blob. It never returns an error: it is the last resort called
// from paths that are already failing, so persistence problems are only
// logged.
func (s *Service) RecordFailure(ctx context.Context, accountID, reason string) {
	log := logger.FromContext(ctx).With(
		zap.String("account_id", accountID),
		zap.String("reason", reason),
	)

	if err := s.repo.UpdateFields(ctx, accountID, map[string]interface{}{"failed": true}); err != nil {
		log.Error("Failed to mark onboarding as failed", zap.Error(err))
		return
	}
	if err := s.repo.MergeConfig(ctx, accountID, map[string]interface{}{"reason_failed": reason}); err != nil {
		log.Error("Failed to store failure reason", zap.Error(err))
		return
	}

	log.Warn("Onboarding failure recorded")
}
