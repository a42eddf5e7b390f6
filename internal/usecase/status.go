package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// GetOrCreateStatus returns the workflow record for an account, lazily
// creating an empty one so the front end can poll before the crawl was
// ever requested.
func (s *Service) GetOrCreateStatus(ctx context.Context, accountID string) (*model.Onboarding, error) {
	record, err := s.repo.FindByAccountID(ctx, accountID)
	if err == nil {
		return record, nil
	}
	if !apperrors.IsNotFoundError(err) {
		return nil, err
	}

	record = &model.Onboarding{
		WorkflowID: uuid.NewString(),
		AccountID:  accountID,
	}
	if err := s.repo.Save(ctx, record); err != nil {
		// Lost a race with a concurrent creator; the record exists now.
		if apperrors.IsDuplicateError(err) {
			return s.repo.FindByAccountID(ctx, accountID)
		}
		return nil, err
	}

	logger.FromContext(ctx).Info("Onboarding record lazily created",
		zap.String("account_id", accountID),
		zap.String("workflow_id", record.WorkflowID))
	return record, nil
}

// PatchOnboarding applies the front-end owned fields (completed flag,
// current page bookmark) to an existing record. Absent records are a
// lookup fault.
func (s *Service) PatchOnboarding(ctx context.Context, accountID string, req model.PatchOnboardingRequest) (*model.Onboarding, error) {
	if _, err := s.repo.FindByAccountID(ctx, accountID); err != nil {
		return nil, err
	}

	if req.Completed != nil {
		if err := s.repo.UpdateFields(ctx, accountID, map[string]interface{}{"completed": *req.Completed}); err != nil {
			return nil, err
		}
	}
	if req.CurrentPage != nil {
		if err := s.repo.MergeConfig(ctx, accountID, map[string]interface{}{"current_page": *req.CurrentPage}); err != nil {
			return nil, err
		}
	}

	return s.repo.FindByAccountID(ctx, accountID)
}
