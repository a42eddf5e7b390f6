package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/channels"
)

// ClientMock is a testify mock for the channels client
type ClientMock struct {
	mock.Mock
}

var _ channels.Client = (*ClientMock)(nil)

func (m *ClientMock) CreateChannelApp(ctx context.Context, req channels.CreateAppRequest) (*channels.AppInfo, error) {
	args := m.Called(ctx, req)
	var info *channels.AppInfo
	if args.Get(0) != nil {
		info = args.Get(0).(*channels.AppInfo)
	}
	return info, args.Error(1)
}

func (m *ClientMock) ConfigureChannelApp(ctx context.Context, appUUID string, settings map[string]interface{}) error {
	args := m.Called(ctx, appUUID, settings)
	return args.Error(0)
}
