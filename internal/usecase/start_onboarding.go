package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/validator"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// StartOnboarding bootstraps (or restarts) the workflow for an account:
// get-or-create the record, reset transient state on reuse, remember the
// requested channel, then either start the crawl right away when a
// tenant is already known or hand off to the link waiter.
func (s *Service) StartOnboarding(ctx context.Context, accountID string, req model.StartCrawlingRequest) (*model.Onboarding, error) {
	log := logger.FromContext(ctx).With(zap.String("account_id", accountID))

	if err := validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	record, err := s.repo.FindByAccountID(ctx, accountID)
	switch {
	case err == nil:
		// Restart: wipe the transient outcome fields, keep identity and
		// any previously linked tenant.
		reset := map[string]interface{}{
			"current_stage": "",
			"progress":      0,
			"completed":     false,
			"failed":        false,
			"crawl_result":  "",
		}
		if err := s.repo.UpdateFields(ctx, accountID, reset); err != nil {
			return nil, err
		}
		record.CurrentStage = ""
		record.Progress = 0
		record.Completed = false
		record.Failed = false
		record.CrawlResult = ""
		log.Info("Restarting existing onboarding", zap.String("workflow_id", record.WorkflowID))
	case apperrors.IsNotFoundError(err):
		record = &model.Onboarding{
			WorkflowID: uuid.NewString(),
			AccountID:  accountID,
		}
		if err := s.repo.Save(ctx, record); err != nil {
			return nil, err
		}
		log.Info("Created onboarding record", zap.String("workflow_id", record.WorkflowID))
	default:
		return nil, err
	}

	if err := s.repo.MergeConfig(ctx, accountID, map[string]interface{}{"channel": req.Channel}); err != nil {
		return nil, err
	}

	if !record.IsLinked() {
		if err := s.tryLinkTenant(ctx, record); err != nil {
			return nil, err
		}
	}

	if record.IsLinked() {
		if err := s.StartCrawl(ctx, record, req.CrawlURL); err != nil {
			return nil, err
		}
	} else {
		task := taskqueue.LinkWaitTask{AccountID: accountID, CrawlURL: req.CrawlURL}
		if err := s.publisher.EnqueueLinkWait(ctx, task); err != nil {
			return nil, err
		}
		log.Info("No tenant linked yet, waiting for the tenant directory")
	}

	return s.repo.FindByAccountID(ctx, accountID)
}

// tryLinkTenant resolves the account's tenant from the local directory
// projection. Zero matches leaves the record unlinked; more than one is
// a data integrity fault that must surface, never be guessed around.
func (s *Service) tryLinkTenant(ctx context.Context, record *model.Onboarding) error {
	tenants, err := s.tenants.FindByAccountID(ctx, record.AccountID)
	if err != nil {
		return err
	}
	switch len(tenants) {
	case 0:
		return nil
	case 1:
		if err := s.repo.LinkTenant(ctx, record.AccountID, tenants[0].TenantID); err != nil {
			return err
		}
		tenantID := tenants[0].TenantID
		record.TenantID = &tenantID
		record.CurrentStage = model.StageProjectConfig
		record.Progress = 100
		return nil
	default:
		return fmt.Errorf("%w: %d tenants match account %s", apperrors.ErrDataIntegrity, len(tenants), record.AccountID)
	}
}
