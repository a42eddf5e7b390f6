package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/crawler"
)

// ClientMock is a testify mock for the crawler client
type ClientMock struct {
	mock.Mock
}

var _ crawler.Client = (*ClientMock)(nil)

func (m *ClientMock) StartCrawling(ctx context.Context, crawlURL, webhookURL string, project crawler.ProjectContext) (*crawler.StartResult, error) {
	args := m.Called(ctx, crawlURL, webhookURL, project)
	var result *crawler.StartResult
	if args.Get(0) != nil {
		result = args.Get(0).(*crawler.StartResult)
	}
	return result, args.Error(1)
}
