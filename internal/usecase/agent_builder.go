package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/nexus"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// configureAgentBuilder runs the second pipeline stage. Phase A sets up
// the manager agent persona when none exists (best effort). Phase B
// uploads the crawled pages sequentially into the tenant knowledge base
// and waits for each file to finish processing. Upload failures and
// poll timeouts are tolerated per file; only a terminal "failed" status
// aborts the stage.
func (s *Service) configureAgentBuilder(ctx context.Context, run *pipelineRun) error {
	accountID := run.record.AccountID
	tenantID := run.tenant.TenantID
	log := logger.FromContext(ctx).With(zap.String("tenant_id", tenantID))

	exists, err := s.nexus.CheckAgentExists(ctx, tenantID)
	if err != nil {
		log.Warn("Manager agent existence check failed, configuring anyway", zap.Error(err))
		exists = false
	}
	if !exists {
		attrs := nexus.AgentAttributes{
			Name:        managerAgentName(accountID),
			Role:        run.locale.ManagerRole,
			Goal:        run.locale.ManagerGoal,
			Personality: run.locale.ManagerPersonality,
		}
		if err := s.nexus.ConfigureAgentAttributes(ctx, tenantID, attrs); err != nil {
			log.Warn("Manager agent configuration failed, continuing", zap.Error(err))
		}
	}

	total := len(run.contents)
	if total == 0 {
		log.Info("No crawled content to upload")
		return s.repo.RaiseProgress(ctx, accountID, progressContentDone)
	}

	for i, page := range run.contents {
		filename := ContentFileName(i, page.Title)
		result, err := s.nexus.UploadContentFile(ctx, tenantID, filename, []byte(page.Content))
		if err != nil {
			log.Warn("Content file upload failed, skipping",
				zap.String("filename", filename),
				zap.Error(err))
		} else if err := s.waitForFileProcessing(ctx, tenantID, result.FileUUID, filename); err != nil {
			return err
		}

		progress := progressChannelDone + int(float64(i+1)/float64(total)*float64(progressContentDone-progressChannelDone))
		if err := s.repo.RaiseProgress(ctx, accountID, progress); err != nil {
			log.Warn("Failed to advance progress", zap.Int("progress", progress), zap.Error(err))
		}
	}
	return nil
}

// waitForFileProcessing blocks the pool worker polling the file status
// until a terminal state or the attempt budget runs out. Exhausting the
// budget is logged as a timeout but does not abort: forward progress
// over strict guarantees.
func (s *Service) waitForFileProcessing(ctx context.Context, tenantID, fileUUID, filename string) error {
	log := logger.FromContext(ctx).With(
		zap.String("filename", filename),
		zap.String("file_uuid", fileUUID),
	)

	for attempt := 1; ; attempt++ {
		status, err := s.nexus.GetFileStatus(ctx, tenantID, fileUUID)
		if err != nil {
			log.Warn("File status poll failed", zap.Int("attempt", attempt), zap.Error(err))
		} else {
			switch status {
			case nexus.FileStatusSuccess:
				return nil
			case nexus.FileStatusFailed:
				return fmt.Errorf("%w: file %s (%s)", apperrors.ErrFileProcessing, filename, fileUUID)
			}
		}

		if attempt >= s.cfg.FileStatusMaxAttempts {
			log.Warn("File processing timed out, continuing with next file",
				zap.Int("attempts", attempt))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.FileStatusPollInterval):
		}
	}
}

// managerAgentName derives the manager agent display name from the
// account id: separators become spaces, words are title-cased.
func managerAgentName(accountID string) string {
	base := strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(accountID)
	return cases.Title(language.Und).String(base) + " Manager"
}
