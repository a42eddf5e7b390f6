package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/nexus"
)

// ClientMock is a testify mock for the agent platform client
type ClientMock struct {
	mock.Mock
}

var _ nexus.Client = (*ClientMock)(nil)

func (m *ClientMock) CheckAgentExists(ctx context.Context, tenantID string) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *ClientMock) ConfigureAgentAttributes(ctx context.Context, tenantID string, attrs nexus.AgentAttributes) error {
	args := m.Called(ctx, tenantID, attrs)
	return args.Error(0)
}

func (m *ClientMock) UploadContentFile(ctx context.Context, tenantID, filename string, content []byte) (*nexus.UploadResult, error) {
	args := m.Called(ctx, tenantID, filename, content)
	var result *nexus.UploadResult
	if args.Get(0) != nil {
		result = args.Get(0).(*nexus.UploadResult)
	}
	return result, args.Error(1)
}

func (m *ClientMock) GetFileStatus(ctx context.Context, tenantID, fileUUID string) (string, error) {
	args := m.Called(ctx, tenantID, fileUUID)
	return args.String(0), args.Error(1)
}

func (m *ClientMock) IntegrateAgent(ctx context.Context, tenantID, agentUUID string) error {
	args := m.Called(ctx, tenantID, agentUUID)
	return args.Error(0)
}
