package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/crawler"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// StartCrawl kicks off the crawl stage for a linked workflow. The stage
// transition is persisted before the external call, so a crash between
// the two leaves an honest record. A crawler refusal marks the crawl
// FAIL, records the failure, and surfaces ErrCrawlStart.
func (s *Service) StartCrawl(ctx context.Context, record *model.Onboarding, crawlURL string) error {
	log := logger.FromContext(ctx).With(
		zap.String("account_id", record.AccountID),
		zap.String("workflow_id", record.WorkflowID),
	)

	fields := map[string]interface{}{
		"current_stage": model.StageCrawl,
		"progress":      0,
	}
	if err := s.repo.UpdateFields(ctx, record.AccountID, fields); err != nil {
		return err
	}

	locale, accountName := s.crawlContext(ctx, record)
	webhookURL := fmt.Sprintf("%s/api/onboard/%s/webhook/", strings.TrimRight(s.domain, "/"), record.WorkflowID)

	project := crawler.ProjectContext{
		AccountName:  accountName,
		Objective:    locale.ManagerGoal,
		Instructions: locale.CrawlInstructions,
	}

	if _, err := s.crawler.StartCrawling(ctx, crawlURL, webhookURL, project); err != nil {
		if updErr := s.repo.UpdateFields(ctx, record.AccountID, map[string]interface{}{"crawl_result": model.CrawlResultFail}); updErr != nil {
			log.Error("Failed to record crawl result", zap.Error(updErr))
		}
		s.RecordFailure(ctx, record.AccountID, err.Error())
		return err
	}

	log.Info("Crawl stage started", zap.String("crawl_url", crawlURL))
	return nil
}

// crawlContext resolves the language-dependent briefing for the crawler
// from the linked tenant. A missing tenant projection degrades to the
// default locale and the bare account id.
func (s *Service) crawlContext(ctx context.Context, record *model.Onboarding) (localeDefaults, string) {
	if !record.IsLinked() {
		return resolveLocale(""), record.AccountID
	}
	tenant, err := s.tenants.FindByTenantID(ctx, *record.TenantID)
	if err != nil {
		logger.FromContext(ctx).Warn("Tenant projection missing, using defaults",
			zap.String("tenant_id", *record.TenantID),
			zap.Error(err))
		return resolveLocale(""), record.AccountID
	}
	name := tenant.Name
	if name == "" {
		name = record.AccountID
	}
	return resolveLocale(tenant.Language), name
}
