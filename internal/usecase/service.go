package usecase

import (
	"context"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/config"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/channels"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/crawler"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/nexus"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/storage"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/tasklock"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// Deps bundles the collaborators the workflow service is built from.
type Deps struct {
	OnboardingRepo storage.OnboardingRepo
	TenantRepo     storage.TenantRepo
	Publisher      taskqueue.Publisher
	Lock           tasklock.TaskLock
	Crawler        crawler.Client
	Channels       channels.Client
	Nexus          nexus.Client
}

// Service implements the onboarding workflow use cases: bootstrap,
// tenant linking, webhook-driven progress, and the post-crawl pipeline.
type Service struct {
	repo      storage.OnboardingRepo
	tenants   storage.TenantRepo
	publisher taskqueue.Publisher
	lock      tasklock.TaskLock
	crawler   crawler.Client
	channels  channels.Client
	nexus     nexus.Client

	// domain is the externally reachable base URL used to build the
	// crawler webhook callback.
	domain string
	cfg    config.OnboardingConfig

	registry *ChannelRegistry
	pool     *postCrawlPool
}

// The service is the handler side of the background task queue.
var _ taskqueue.Handlers = (*Service)(nil)

// NewService wires the workflow service. The worker pool is started
// separately so tests can run pipelines inline.
func NewService(deps Deps, domain string, cfg config.OnboardingConfig) *Service {
	s := &Service{
		repo:      deps.OnboardingRepo,
		tenants:   deps.TenantRepo,
		publisher: deps.Publisher,
		lock:      deps.Lock,
		crawler:   deps.Crawler,
		channels:  deps.Channels,
		nexus:     deps.Nexus,
		domain:    domain,
		cfg:       cfg,
	}
	s.registry = newChannelRegistry(s, cfg.AgentUUIDs)
	return s
}

// StartWorkerPool brings up the post-crawl pipeline pool.
func (s *Service) StartWorkerPool(cfg config.PostCrawlWorkerPoolConfig) error {
	pool, err := newPostCrawlPool(cfg, s.runPostCrawl)
	if err != nil {
		return err
	}
	s.pool = pool
	return nil
}

// Close releases the worker pool. In-flight pipeline runs finish;
// abandoned locks expire on their TTL.
func (s *Service) Close() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// detach keeps the request-scoped logger but drops the caller's
// cancellation, so async pipeline runs survive the submitting request.
func detach(ctx context.Context) context.Context {
	return logger.WithLogger(context.Background(), logger.FromContext(ctx))
}
