package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/config"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/jetstream"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/storage"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/validator"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// TenantLinker attaches freshly seen tenants to their pending
// onboarding. Implemented by the workflow service.
type TenantLinker interface {
	LinkTenantToOnboarding(ctx context.Context, accountID, tenantID string) error
}

// Consumer ingests tenant-directory events: it keeps the local tenant
// projection fresh and triggers onboarding linkage whenever a tenant
// carries an account id.
type Consumer struct {
	client  jetstream.ClientInterface
	tenants storage.TenantRepo
	linker  TenantLinker
	cfg     config.ConsumerNatsConfig

	sub           *nats.Subscription
	filterSubject string
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewConsumer creates the tenant events consumer
func NewConsumer(client jetstream.ClientInterface, tenants storage.TenantRepo, linker TenantLinker, cfg config.ConsumerNatsConfig) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		client:  client,
		tenants: tenants,
		linker:  linker,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Setup configures the NATS stream and consumer for tenant events
func (c *Consumer) Setup() error {
	log := logger.FromContext(c.ctx)
	log.Info("Setting up tenant events consumer...", zap.String("stream", c.cfg.Stream), zap.String("consumer", c.cfg.Consumer))

	maxAgeRetention := time.Duration(c.cfg.MaxAge*24) * time.Hour

	streamCfg := &nats.StreamConfig{
		Name:      c.cfg.Stream,
		Subjects:  c.cfg.SubjectList,
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    maxAgeRetention,
	}

	if err := c.client.SetupStream(c.ctx, streamCfg); err != nil {
		return fmt.Errorf("failed to setup tenant stream '%s': %w", c.cfg.Stream, err)
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
	c.filterSubject = "v1.tenants.>"

	if err := c.client.SetupConsumer(c.ctx, c.cfg.Stream, consumerCfg); err != nil {
		return fmt.Errorf("failed to setup tenant consumer '%s' for stream '%s': %w", c.cfg.Consumer, c.cfg.Stream, err)
	}

	log.Info("Tenant events consumer setup complete")
	return nil
}

// Start subscribes to the tenant events stream
func (c *Consumer) Start() error {
	log := logger.FromContext(c.ctx)
	log.Info("Starting tenant events subscription...", zap.String("stream", c.cfg.Stream))

	sub, err := c.client.SubscribePush(c.filterSubject, c.cfg.Consumer, c.cfg.QueueGroup, c.cfg.Stream, c.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe tenant consumer '%s': %w", c.cfg.Consumer, err)
	}
	c.sub = sub
	log.Info("Tenant events consumer subscribed successfully")
	return nil
}

// Stop unsubscribes and cleans up resources
func (c *Consumer) Stop() {
	log := logger.FromContext(c.ctx)
	log.Info("Stopping tenant events consumer...")
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			log.Error("Error draining tenant events subscription", zap.Error(err))
		}
	}
	if c.cancel != nil {
		c.cancel()
	}
	log.Info("Tenant events consumer stopped")
}

func (c *Consumer) handleMessage(msg *nats.Msg) {
	log := logger.FromContext(c.ctx).With(zap.String("subject", msg.Subject))

	defer func() {
		if r := recover(); r != nil {
			log.Error("[panic] Recovered from panic in tenant event handler",
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
		log.Error("Failed to read tenant event metadata", zap.Error(err))
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error("Failed to NAK message", zap.Error(nakErr))
		}
		return
	}

	msgCtx := logger.WithLogger(c.ctx, log.With(
		zap.Uint64("stream_sequence", metadata.Sequence.Stream),
		zap.Uint64("num_delivered", metadata.NumDelivered),
	))

	processingErr := c.processEvent(msgCtx, msg.Data)
	if processingErr == nil {
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error("Failed to ACK tenant event", zap.Error(ackErr))
		}
		return
	}

	// Malformed payloads and integrity faults never succeed on retry.
	terminal := apperrors.IsValidationError(processingErr) ||
		apperrors.IsBadRequestError(processingErr) ||
		apperrors.IsDataIntegrityError(processingErr) ||
		metadata.NumDelivered >= uint64(c.cfg.MaxDeliver)
	if terminal {
		log.Error("Dropping tenant event after terminal failure", zap.Error(processingErr))
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error("Failed to ACK dropped tenant event", zap.Error(ackErr))
		}
		return
	}

	delay := nakDelay(metadata.NumDelivered, c.cfg.NakBaseDelay, c.cfg.NakMaxDelay)
	log.Warn("Tenant event failed, redelivering",
		zap.Duration("delay", delay),
		zap.Error(processingErr))
	if nakErr := msg.NakWithDelay(delay); nakErr != nil {
		log.Error("Failed to NAK tenant event", zap.Error(nakErr))
	}
}

// processEvent upserts the tenant projection and, when the tenant names
// an account, links it to the account's pending onboarding.
func (c *Consumer) processEvent(ctx context.Context, data []byte) error {
	var payload model.TenantEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: failed to unmarshal tenant event: %w", apperrors.ErrBadRequest, err)
	}
	if err := validator.Validate(payload); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	tenant := model.Tenant{
		TenantID:         payload.TenantID,
		Name:             payload.Name,
		AccountID:        payload.AccountID,
		OrganizationUUID: payload.OrganizationUUID,
		Language:         payload.Language,
	}
	if err := c.tenants.Upsert(ctx, tenant); err != nil {
		return err
	}

	if err := c.linker.LinkTenantToOnboarding(ctx, payload.AccountID, payload.TenantID); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("Tenant event processed",
		zap.String("tenant_id", payload.TenantID),
		zap.String("account_id", payload.AccountID))
	return nil
}

// nakDelay backs off exponentially on the delivery count, capped.
func nakDelay(numDelivered uint64, base, max time.Duration) time.Duration {
	delay := base
	if numDelivered > 1 {
		delay = base * (1 << (numDelivered - 1))
	}
	if delay > max {
		delay = max
	}
	return delay
}
