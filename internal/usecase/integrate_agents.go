package usecase

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// integrateAgents attaches the channel's passive agent roster to the
// tenant. A single agent failing is logged and skipped, never fatal:
// partial reach beats none. Progress walks the 75..100 band per agent;
// an empty roster jumps straight to 100.
func (s *Service) integrateAgents(ctx context.Context, run *pipelineRun) error {
	accountID := run.record.AccountID
	tenantID := run.tenant.TenantID
	log := logger.FromContext(ctx).With(zap.String("tenant_id", tenantID))

	total := len(run.agents)
	if total == 0 {
		log.Info("No passive agents registered for channel")
		return s.repo.RaiseProgress(ctx, accountID, progressMax)
	}

	for i, agent := range run.agents {
		switch {
		case agent.UUID == "":
			log.Warn("Passive agent has no configured identifier, skipping",
				zap.String("agent_key", agent.Key))
		default:
			if err := s.nexus.IntegrateAgent(ctx, tenantID, agent.UUID); err != nil {
				log.Warn("Passive agent integration failed, continuing",
					zap.String("agent_key", agent.Key),
					zap.String("agent_uuid", agent.UUID),
					zap.Error(err))
			}
		}

		progress := progressContentDone + int(float64(i+1)/float64(total)*float64(progressMax-progressContentDone))
		if err := s.repo.RaiseProgress(ctx, accountID, progress); err != nil {
			log.Warn("Failed to advance progress", zap.Int("progress", progress), zap.Error(err))
		}
	}
	return nil
}
