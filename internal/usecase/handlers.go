package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// HandleLinkWait runs one tenant-link check for the queue consumer.
// Still unlinked → ErrNotLinked, which the consumer turns into a
// delayed redelivery. Linked → start the crawl. A crawl-start refusal
// is already recorded on the workflow by StartCrawl, so it ends the
// wait without a second failure record.
func (s *Service) HandleLinkWait(ctx context.Context, task taskqueue.LinkWaitTask) error {
	record, err := s.repo.FindByAccountID(ctx, task.AccountID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return apperrors.NewFatal(err, "onboarding record vanished for account %s", task.AccountID)
		}
		return apperrors.NewRetryable(err, "failed to reload onboarding for account %s", task.AccountID)
	}

	if !record.IsLinked() {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotLinked, task.AccountID)
	}

	if err := s.StartCrawl(ctx, record, task.CrawlURL); err != nil {
		if apperrors.IsCrawlStartError(err) {
			logger.FromContext(ctx).Warn("Crawl start refused after tenant link, wait ends",
				zap.String("account_id", task.AccountID),
				zap.Error(err))
			return nil
		}
		return apperrors.NewRetryable(err, "failed to start crawl for account %s", task.AccountID)
	}
	return nil
}

// HandleLinkWaitExhausted records the terminal failure once the wait
// budget is spent.
func (s *Service) HandleLinkWaitExhausted(ctx context.Context, task taskqueue.LinkWaitTask, reason string) {
	s.RecordFailure(ctx, task.AccountID, reason)
}

// HandlePostCrawl dispatches a pipeline task onto the worker pool.
// Without a pool (tests, degraded startup) the pipeline runs inline.
func (s *Service) HandlePostCrawl(ctx context.Context, task taskqueue.PostCrawlTask) error {
	if s.pool == nil {
		s.runPostCrawl(ctx, task)
		return nil
	}
	return s.pool.Submit(ctx, task)
}
