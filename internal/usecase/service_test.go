package usecase

import (
	"time"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/config"
	channelsmock "gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/channels/mock"
	crawlermock "gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/crawler/mock"
	nexusmock "gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/nexus/mock"
	storagemock "gitlab.com/hexaretail/api/onboarding-orchestrator/internal/storage/mock"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/tasklock"
	taskqueuemock "gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue/mock"
)

const (
	testAccountID  = "acct-123"
	testWorkflowID = "3f1b9a52-7c44-4e7c-9f33-2d6b5a8f0c11"
	testTenantID   = "9a8b7c6d-5e4f-4a3b-2c1d-0e9f8a7b6c5d"
)

// testHarness bundles the service under test with its mocked
// collaborators.
type testHarness struct {
	svc       *Service
	repo      *storagemock.OnboardingRepoMock
	tenants   *storagemock.TenantRepoMock
	publisher *taskqueuemock.PublisherMock
	lock      *tasklock.MemoryLock
	crawler   *crawlermock.ClientMock
	channels  *channelsmock.ClientMock
	nexus     *nexusmock.ClientMock
}

func newTestHarness() *testHarness {
	h := &testHarness{
		repo:      new(storagemock.OnboardingRepoMock),
		tenants:   new(storagemock.TenantRepoMock),
		publisher: new(taskqueuemock.PublisherMock),
		lock:      tasklock.NewMemoryLock(time.Minute),
		crawler:   new(crawlermock.ClientMock),
		channels:  new(channelsmock.ClientMock),
		nexus:     new(nexusmock.ClientMock),
	}

	cfg := config.OnboardingConfig{
		LinkWaitMaxAttempts:    60,
		LinkWaitRetryDelay:     10 * time.Second,
		TaskLockTTL:            30 * time.Minute,
		FileStatusPollInterval: time.Millisecond,
		FileStatusMaxAttempts:  3,
		AgentUUIDs: map[string]string{
			"order_tracker":   "uuid-order-tracker",
			"product_expert":  "uuid-product-expert",
			"promo_assistant": "uuid-promo-assistant",
			"faq_assistant":   "uuid-faq-assistant",
		},
		WWCProfileAvatarURL: "https://cdn.example.com/avatar.png",
	}

	h.svc = NewService(Deps{
		OnboardingRepo: h.repo,
		TenantRepo:     h.tenants,
		Publisher:      h.publisher,
		Lock:           h.lock,
		Crawler:        h.crawler,
		Channels:       h.channels,
		Nexus:          h.nexus,
	}, "https://onboard.example.com", cfg)

	return h
}
