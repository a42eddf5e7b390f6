package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue"
)

// PublisherMock mocks the taskqueue Publisher interface
type PublisherMock struct {
	mock.Mock
}

var _ taskqueue.Publisher = (*PublisherMock)(nil)

func (m *PublisherMock) EnqueueLinkWait(ctx context.Context, task taskqueue.LinkWaitTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *PublisherMock) EnqueuePostCrawl(ctx context.Context, task taskqueue.PostCrawlTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}
