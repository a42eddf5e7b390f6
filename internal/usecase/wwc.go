package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/channels"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// Channel-stage progress milestones (within the 0..10 band).
const (
	progressAppCreated    = 3
	progressAppConfigured = 7
)

// wwcConfigurer provisions the web chat widget channel.
type wwcConfigurer struct {
	svc *Service
}

func (c *wwcConfigurer) Configure(ctx context.Context, run *pipelineRun) error {
	settings := map[string]interface{}{
		"title":       run.locale.WWCTitle,
		"placeholder": run.locale.WWCPlaceholder,
		"avatar_url":  c.svc.cfg.WWCProfileAvatarURL,
	}
	return c.svc.configureChannelApp(ctx, run, ChannelWWC, settings)
}

// wppCloudConfigurer provisions the WhatsApp Cloud channel. The
// provider holds the channel-specific settings, so only the two-phase
// provisioning applies.
type wppCloudConfigurer struct {
	svc *Service
}

func (c *wppCloudConfigurer) Configure(ctx context.Context, run *pipelineRun) error {
	return c.svc.configureChannelApp(ctx, run, ChannelWppCloud, map[string]interface{}{})
}

// configureChannelApp is the shared two-phase create-then-configure
// flow, persisting a checkpoint after each phase. An already integrated
// channel refuses the whole run: the guard keeps a redelivered pipeline
// from provisioning a second app.
func (s *Service) configureChannelApp(ctx context.Context, run *pipelineRun, channelCode string, settings map[string]interface{}) error {
	accountID := run.record.AccountID
	log := logger.FromContext(ctx).With(zap.String("channel", channelCode))

	// Guard before any write: a redelivered pipeline against an already
	// integrated channel must leave the record untouched.
	workflowCfg, err := run.record.DecodeConfig()
	if err != nil {
		return err
	}
	if _, done := workflowCfg.IntegratedApps[channelCode]; done {
		return fmt.Errorf("%w: channel %s already integrated for account %s", apperrors.ErrChannelConfig, channelCode, accountID)
	}

	fields := map[string]interface{}{
		"current_stage": model.StageNexusConfig,
		"progress":      0,
	}
	if err := s.repo.UpdateFields(ctx, accountID, fields); err != nil {
		return err
	}

	appName := run.tenant.Name
	if appName == "" {
		appName = accountID
	}
	app, err := s.channels.CreateChannelApp(ctx, channels.CreateAppRequest{
		TenantID:    run.tenant.TenantID,
		ChannelCode: channelCode,
		Name:        appName,
	})
	if err != nil {
		return err
	}
	if err := s.repo.RaiseProgress(ctx, accountID, progressAppCreated); err != nil {
		return err
	}

	if err := s.channels.ConfigureChannelApp(ctx, app.UUID, settings); err != nil {
		return err
	}
	if err := s.repo.RaiseProgress(ctx, accountID, progressAppConfigured); err != nil {
		return err
	}

	channelApps := map[string]model.ChannelAppInfo{}
	for code, info := range workflowCfg.Channels {
		channelApps[code] = info
	}
	channelApps[channelCode] = model.ChannelAppInfo{AppUUID: app.UUID}

	integrated := map[string]string{}
	for code, id := range workflowCfg.IntegratedApps {
		integrated[code] = id
	}
	integrated[channelCode] = app.UUID

	patch := map[string]interface{}{
		"channels":        channelApps,
		"integrated_apps": integrated,
	}
	if err := s.repo.MergeConfig(ctx, accountID, patch); err != nil {
		return err
	}
	if err := s.repo.RaiseProgress(ctx, accountID, progressChannelDone); err != nil {
		return err
	}

	log.Info("Channel configured", zap.String("app_uuid", app.UUID))
	return nil
}
