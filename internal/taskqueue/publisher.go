package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/jetstream"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/observer"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// Publisher enqueues background onboarding tasks
type Publisher interface {
	EnqueueLinkWait(ctx context.Context, task LinkWaitTask) error
	EnqueuePostCrawl(ctx context.Context, task PostCrawlTask) error
}

// JetStreamPublisher publishes tasks to the onboarding task stream
type JetStreamPublisher struct {
	client jetstream.ClientInterface
}

// Ensure JetStreamPublisher implements Publisher
var _ Publisher = (*JetStreamPublisher)(nil)

// NewJetStreamPublisher creates a publisher on the given client
func NewJetStreamPublisher(client jetstream.ClientInterface) *JetStreamPublisher {
	return &JetStreamPublisher{client: client}
}

// EnqueueLinkWait publishes a tenant-link wait task.
func (p *JetStreamPublisher) EnqueueLinkWait(ctx context.Context, task LinkWaitTask) error {
	return p.publish(ctx, SubjectLinkWait, TaskTypeLinkWait, task)
}

// EnqueuePostCrawl publishes a post-crawl pipeline task.
func (p *JetStreamPublisher) EnqueuePostCrawl(ctx context.Context, task PostCrawlTask) error {
	return p.publish(ctx, SubjectPostCrawl, TaskTypePostCrawl, task)
}

func (p *JetStreamPublisher) publish(ctx context.Context, subject, taskType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal %s task: %w", apperrors.ErrBadRequest, taskType, err)
	}

	headers := map[string]string{
		"Nats-Msg-Id": uuid.NewString(),
	}
	if err := p.client.Publish(subject, data, headers); err != nil {
		logger.FromContext(ctx).Error("Failed to publish background task",
			zap.String("subject", subject),
			zap.String("task_type", taskType),
			zap.Error(err))
		return fmt.Errorf("%w: failed to publish %s task: %w", apperrors.ErrNATS, taskType, err)
	}

	observer.IncTaskQueueSubmitted(taskType)
	logger.FromContext(ctx).Info("Background task enqueued",
		zap.String("subject", subject),
		zap.String("task_type", taskType))
	return nil
}
