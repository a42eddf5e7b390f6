package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/observer"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// Pipeline stage names for metrics.
const (
	stageChannelConfig    = "channel_config"
	stageAgentBuilder     = "agent_builder"
	stageAgentIntegration = "agent_integration"
)

// Progress band boundaries of the post-crawl pipeline.
const (
	progressChannelDone = 10
	progressContentDone = 75
	progressMax         = 100
)

// pipelineRun carries one pipeline invocation's resolved state between
// stages.
type pipelineRun struct {
	record   *model.Onboarding
	tenant   *model.Tenant
	locale   localeDefaults
	contents []model.CrawledPage
	agents   []PassiveAgent
}

// runPostCrawl executes one pipeline invocation on a pool worker. The
// lock taken by the completion webhook is released unconditionally so a
// later completed delivery can retry the whole pipeline; a stage
// failure is terminal for this invocation and lands on the record via
// RecordFailure.
func (s *Service) runPostCrawl(ctx context.Context, task taskqueue.PostCrawlTask) {
	log := logger.FromContext(ctx).With(zap.String("account_id", task.AccountID))
	ctx = logger.WithLogger(ctx, log)

	defer func() {
		if err := s.lock.Release(ctx, TaskConfigureNexus, task.AccountID); err != nil {
			log.Error("Failed to release pipeline lock", zap.Error(err))
		}
	}()

	if err := s.runPipeline(ctx, task); err != nil {
		log.Error("Post-crawl pipeline failed", zap.Error(err))
		s.RecordFailure(ctx, task.AccountID, err.Error())
		return
	}
	log.Info("Post-crawl pipeline completed")
}

func (s *Service) runPipeline(ctx context.Context, task taskqueue.PostCrawlTask) error {
	record, err := s.repo.FindByAccountID(ctx, task.AccountID)
	if err != nil {
		return err
	}
	if !record.IsLinked() {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotLinked, task.AccountID)
	}

	tenant, err := s.tenants.FindByTenantID(ctx, *record.TenantID)
	if err != nil {
		return fmt.Errorf("tenant %s lookup failed: %w", *record.TenantID, err)
	}

	workflowCfg, err := record.DecodeConfig()
	if err != nil {
		return fmt.Errorf("failed to decode workflow config: %w", err)
	}

	configurer, agents, err := s.registry.Resolve(workflowCfg.Channel)
	if err != nil {
		return err
	}

	run := &pipelineRun{
		record:   record,
		tenant:   tenant,
		locale:   resolveLocale(tenant.Language),
		contents: task.Contents,
		agents:   agents,
	}

	stages := []struct {
		name string
		fn   func(context.Context, *pipelineRun) error
	}{
		{stageChannelConfig, configurer.Configure},
		{stageAgentBuilder, s.configureAgentBuilder},
		{stageAgentIntegration, s.integrateAgents},
	}

	for _, stage := range stages {
		start := time.Now()
		err := stage.fn(ctx, run)
		observer.ObservePipelineStageDuration(stage.name, time.Since(start), err)
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage.name, err)
		}
	}
	return nil
}
