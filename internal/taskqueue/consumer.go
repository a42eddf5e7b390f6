package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/config"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/jetstream"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/observer"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// Handlers is implemented by the workflow layer. The consumer owns
// ack/nak decisions; handlers own the domain work.
type Handlers interface {
	// HandleLinkWait checks whether a tenant has been linked and, if so,
	// starts the crawl. Returning an error wrapping apperrors.ErrNotLinked
	// requests a delayed redelivery.
	HandleLinkWait(ctx context.Context, task LinkWaitTask) error
	// HandleLinkWaitExhausted records the terminal failure once link-wait
	// attempts run out.
	HandleLinkWaitExhausted(ctx context.Context, task LinkWaitTask, reason string)
	// HandlePostCrawl hands the task to the post-crawl worker pool. The
	// message is acked as soon as submission succeeds.
	HandlePostCrawl(ctx context.Context, task PostCrawlTask) error
}

// Consumer drives background onboarding tasks off the task stream
type Consumer struct {
	client   jetstream.ClientInterface
	handlers Handlers
	cfg      config.ConsumerNatsConfig

	// Link-wait pacing: fixed delay between checks, bounded attempts.
	linkWaitMaxAttempts int
	linkWaitRetryDelay  time.Duration

	sub           *nats.Subscription
	filterSubject string
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewConsumer creates the background task consumer
func NewConsumer(client jetstream.ClientInterface, handlers Handlers, cfg config.ConsumerNatsConfig, onboardingCfg config.OnboardingConfig) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		client:              client,
		handlers:            handlers,
		cfg:                 cfg,
		linkWaitMaxAttempts: onboardingCfg.LinkWaitMaxAttempts,
		linkWaitRetryDelay:  onboardingCfg.LinkWaitRetryDelay,
		ctx:                 ctx,
		cancel:              cancel,
	}
}

// Setup configures the NATS stream and consumer for background tasks
func (c *Consumer) Setup() error {
	log := logger.FromContext(c.ctx)
	log.Info("Setting up task queue consumer...", zap.String("stream", c.cfg.Stream), zap.String("consumer", c.cfg.Consumer))

	maxAgeRetention := time.Duration(c.cfg.MaxAge*24) * time.Hour

	streamCfg := &nats.StreamConfig{
		Name:      c.cfg.Stream,
		Subjects:  c.cfg.SubjectList,
		Storage:   nats.FileStorage,
		Retention: nats.InterestPolicy,
		MaxAge:    maxAgeRetention,
	}

	if err := c.client.SetupStream(c.ctx, streamCfg); err != nil {
		return fmt.Errorf("failed to setup task stream '%s': %w", c.cfg.Stream, err)
	}

	consumerCfg := &nats.ConsumerConfig{
		Durable:        c.cfg.Consumer,
		DeliverGroup:   c.cfg.QueueGroup,
		FilterSubjects: c.cfg.SubjectList,
		AckPolicy:      nats.AckExplicitPolicy,
		DeliverSubject: nats.NewInbox(),
		MaxDeliver:     c.cfg.MaxDeliver,
		AckWait:        30 * time.Second,
		MaxAckPending:  1000,
		ReplayPolicy:   nats.ReplayInstantPolicy,
		DeliverPolicy:  nats.DeliverAllPolicy,
	}
	c.filterSubject = "v1.onboarding.>"

	if err := c.client.SetupConsumer(c.ctx, c.cfg.Stream, consumerCfg); err != nil {
		return fmt.Errorf("failed to setup task consumer '%s' for stream '%s': %w", c.cfg.Consumer, c.cfg.Stream, err)
	}

	log.Info("Task queue consumer setup complete")
	return nil
}

// Start subscribes to the task stream
func (c *Consumer) Start() error {
	log := logger.FromContext(c.ctx)
	log.Info("Starting task queue subscription...", zap.String("stream", c.cfg.Stream), zap.String("consumer", c.cfg.Consumer))

	sub, err := c.client.SubscribePush(c.filterSubject, c.cfg.Consumer, c.cfg.QueueGroup, c.cfg.Stream, c.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe task consumer '%s': %w", c.cfg.Consumer, err)
	}
	c.sub = sub
	log.Info("Task queue consumer subscribed successfully")
	return nil
}

// Stop unsubscribes and cleans up resources
func (c *Consumer) Stop() {
	log := logger.FromContext(c.ctx)
	log.Info("Stopping task queue consumer...")
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			log.Error("Error draining task queue subscription", zap.Error(err))
		}
	}
	if c.cancel != nil {
		c.cancel()
	}
	log.Info("Task queue consumer stopped")
}

// handleMessage dispatches messages by subject
func (c *Consumer) handleMessage(msg *nats.Msg) {
	log := logger.FromContext(c.ctx).With(zap.String("subject", msg.Subject))

	defer func() {
		if r := recover(); r != nil {
			log.Error("[panic] Recovered from panic in task handler",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error("Failed to NAK message after panic", zap.Error(nakErr))
			}
		}
	}()

	metadata, err := msg.Metadata()
	if err != nil {
		log.Error("Failed to read task message metadata", zap.Error(err))
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error("Failed to NAK message", zap.Error(nakErr))
		}
		return
	}

	msgCtx := logger.WithLogger(c.ctx, log.With(
		zap.Uint64("stream_sequence", metadata.Sequence.Stream),
		zap.Uint64("num_delivered", metadata.NumDelivered),
	))

	switch msg.Subject {
	case SubjectLinkWait:
		c.handleLinkWait(msgCtx, msg, metadata)
	case SubjectPostCrawl:
		c.handlePostCrawl(msgCtx, msg, metadata)
	default:
		log.Warn("Unknown task subject, dropping message")
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error("Failed to ACK unknown task", zap.Error(ackErr))
		}
	}
}

// handleLinkWait runs one tenant-link check. Not-yet-linked results are
// redelivered on a fixed delay until the attempt budget is spent, then
// the failure is recorded and the message dropped.
func (c *Consumer) handleLinkWait(ctx context.Context, msg *nats.Msg, metadata *nats.MsgMetadata) {
	log := logger.FromContext(ctx)

	var task LinkWaitTask
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		log.Error("Failed to unmarshal link-wait task, dropping", zap.Error(err))
		observer.IncTaskQueueDropped(TaskTypeLinkWait)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error("Failed to ACK malformed link-wait task", zap.Error(ackErr))
		}
		return
	}

	err := c.handlers.HandleLinkWait(ctx, task)
	if err == nil {
		observer.IncTaskQueueProcessed(TaskTypeLinkWait)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error("Failed to ACK link-wait task", zap.Error(ackErr))
		}
		return
	}

	if errors.Is(err, apperrors.ErrNotLinked) {
		if metadata.NumDelivered >= uint64(c.linkWaitMaxAttempts) {
			log.Warn("Link-wait attempts exhausted, recording failure",
				zap.String("account_id", task.AccountID),
				zap.Int("max_attempts", c.linkWaitMaxAttempts))
			c.handlers.HandleLinkWaitExhausted(ctx, task, "tenant was never linked to the onboarding")
			observer.IncTaskQueueDropped(TaskTypeLinkWait)
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error("Failed to ACK exhausted link-wait task", zap.Error(ackErr))
			}
			return
		}
		observer.IncTaskQueueRetry(TaskTypeLinkWait)
		if nakErr := msg.NakWithDelay(c.linkWaitRetryDelay); nakErr != nil {
			log.Error("Failed to NAK link-wait task with delay", zap.Error(nakErr))
		}
		return
	}

	if apperrors.IsRetryable(err) {
		log.Warn("Link-wait task failed with retryable error", zap.Error(err))
		observer.IncTaskQueueRetry(TaskTypeLinkWait)
		if nakErr := msg.NakWithDelay(c.linkWaitRetryDelay); nakErr != nil {
			log.Error("Failed to NAK link-wait task with delay", zap.Error(nakErr))
		}
		return
	}

	// Fatal: record the failure and drop the task
	log.Error("Link-wait task failed terminally", zap.Error(err), zap.String("account_id", task.AccountID))
	c.handlers.HandleLinkWaitExhausted(ctx, task, err.Error())
	observer.IncTaskQueueDropped(TaskTypeLinkWait)
	if ackErr := msg.Ack(); ackErr != nil {
		log.Error("Failed to ACK failed link-wait task", zap.Error(ackErr))
	}
}

// handlePostCrawl submits the pipeline task to the worker pool. The ack
// happens on successful submission; pipeline failures are recorded on
// the workflow record, not retried through the queue.
func (c *Consumer) handlePostCrawl(ctx context.Context, msg *nats.Msg, metadata *nats.MsgMetadata) {
	log := logger.FromContext(ctx)

	var task PostCrawlTask
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		log.Error("Failed to unmarshal post-crawl task, dropping", zap.Error(err))
		observer.IncTaskQueueDropped(TaskTypePostCrawl)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error("Failed to ACK malformed post-crawl task", zap.Error(ackErr))
		}
		return
	}

	if err := c.handlers.HandlePostCrawl(ctx, task); err != nil {
		if metadata.NumDelivered >= uint64(c.cfg.MaxDeliver) {
			log.Error("Post-crawl submission failed and attempts exhausted, dropping",
				zap.Error(err), zap.String("account_id", task.AccountID))
			observer.IncTaskQueueDropped(TaskTypePostCrawl)
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error("Failed to ACK dropped post-crawl task", zap.Error(ackErr))
			}
			return
		}
		log.Warn("Post-crawl submission failed, redelivering", zap.Error(err))
		observer.IncTaskQueueRetry(TaskTypePostCrawl)
		if nakErr := msg.NakWithDelay(c.cfg.NakBaseDelay); nakErr != nil {
			log.Error("Failed to NAK post-crawl task", zap.Error(nakErr))
		}
		return
	}

	observer.IncTaskQueueProcessed(TaskTypePostCrawl)
	if ackErr := msg.Ack(); ackErr != nil {
		log.Error("Failed to ACK post-crawl task", zap.Error(ackErr))
	}
}
