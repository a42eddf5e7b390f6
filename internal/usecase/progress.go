package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/observer"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/validator"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// TaskConfigureNexus names the lock serializing post-crawl pipeline
// runs per account.
const TaskConfigureNexus = "configure_nexus"

// HandleWebhook routes one crawler callback against the workflow
// addressed by workflowID and returns the updated record snapshot.
// Progress merges are monotonic, so duplicate and out-of-order
// deliveries are harmless.
func (s *Service) HandleWebhook(ctx context.Context, workflowID string, event model.WebhookEventPayload) (*model.Onboarding, error) {
	observer.IncWebhookEventsReceived(event.Event)

	record, err := s.applyWebhook(ctx, workflowID, event)
	if err != nil {
		observer.IncWebhookEventsFailed(event.Event)
		return nil, err
	}
	observer.IncWebhookEventsProcessed(event.Event)
	return record, nil
}

func (s *Service) applyWebhook(ctx context.Context, workflowID string, event model.WebhookEventPayload) (*model.Onboarding, error) {
	if err := validator.Validate(event); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	record, err := s.repo.FindByWorkflowID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With(
		zap.String("account_id", record.AccountID),
		zap.String("workflow_id", workflowID),
		zap.String("event", event.Event),
	)

	switch event.Event {
	case model.EventCrawlCompleted:
		if err := s.onCrawlCompleted(ctx, log, record, event); err != nil {
			return nil, err
		}
	case model.EventCrawlFailed:
		fields := map[string]interface{}{"crawl_result": model.CrawlResultFail}
		if err := s.repo.UpdateFields(ctx, record.AccountID, fields); err != nil {
			return nil, err
		}
		if event.Data.Reason != "" {
			if err := s.repo.MergeConfig(ctx, record.AccountID, map[string]interface{}{"reason_failed": event.Data.Reason}); err != nil {
				return nil, err
			}
		}
		log.Warn("Crawl failed", zap.String("reason", event.Data.Reason))
	default:
		if err := s.repo.RaiseProgress(ctx, record.AccountID, event.Progress); err != nil {
			return nil, err
		}
		log.Debug("Crawl progress merged", zap.Int("progress", event.Progress))
	}

	return s.repo.FindByWorkflowID(ctx, workflowID)
}

// onCrawlCompleted finalizes the crawl stage and, if this delivery wins
// the pipeline lock, schedules the post-crawl pipeline. A refused lock
// means a pipeline run is already in flight for the account (duplicate
// delivery), so the state update applies but scheduling is skipped.
func (s *Service) onCrawlCompleted(ctx context.Context, log *zap.Logger, record *model.Onboarding, event model.WebhookEventPayload) error {
	fields := map[string]interface{}{
		"progress":     100,
		"crawl_result": model.CrawlResultSuccess,
	}
	if err := s.repo.UpdateFields(ctx, record.AccountID, fields); err != nil {
		return err
	}

	acquired, err := s.lock.Acquire(ctx, TaskConfigureNexus, record.AccountID)
	if err != nil {
		return err
	}
	if !acquired {
		log.Warn("Pipeline already running for account, skipping duplicate completion")
		return nil
	}

	task := taskqueue.PostCrawlTask{
		AccountID: record.AccountID,
		Contents:  event.Data.Contents,
	}
	if err := s.publisher.EnqueuePostCrawl(ctx, task); err != nil {
		// Give the lock back so a webhook redelivery can schedule again.
		if relErr := s.lock.Release(ctx, TaskConfigureNexus, record.AccountID); relErr != nil {
			log.Error("Failed to release pipeline lock after enqueue failure", zap.Error(relErr))
		}
		return err
	}

	log.Info("Crawl completed, pipeline scheduled", zap.Int("pages", len(event.Data.Contents)))
	return nil
}
