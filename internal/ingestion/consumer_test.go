package ingestion

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/config"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	storagemock "gitlab.com/hexaretail/api/onboarding-orchestrator/internal/storage/mock"
)

type linkerMock struct {
	mock.Mock
}

func (m *linkerMock) LinkTenantToOnboarding(ctx context.Context, accountID, tenantID string) error {
	args := m.Called(ctx, accountID, tenantID)
	return args.Error(0)
}

func newTestConsumer(tenants *storagemock.TenantRepoMock, linker *linkerMock) *Consumer {
	return NewConsumer(nil, tenants, linker, config.ConsumerNatsConfig{
		Stream:       "tenant_events",
		Consumer:     "onboarding_tenant_link",
		MaxDeliver:   5,
		NakBaseDelay: 2 * time.Second,
		NakMaxDelay:  30 * time.Second,
	})
}

func TestProcessEventUpsertsAndLinks(t *testing.T) {
	tenants := new(storagemock.TenantRepoMock)
	linker := new(linkerMock)
	c := newTestConsumer(tenants, linker)

	payload := model.TenantEventPayload{
		TenantID:  "tenant-1",
		Name:      "Acme Store",
		AccountID: "acct-123",
		Language:  "pt-br",
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	tenants.On("Upsert", mock.Anything, mock.MatchedBy(func(tn model.Tenant) bool {
		return tn.TenantID == "tenant-1" && tn.AccountID == "acct-123" && tn.Language == "pt-br"
	})).Return(nil)
	linker.On("LinkTenantToOnboarding", mock.Anything, "acct-123", "tenant-1").Return(nil)

	require.NoError(t, c.processEvent(context.Background(), data))
	tenants.AssertExpectations(t)
	linker.AssertExpectations(t)
}

func TestProcessEventRejectsInvalidPayload(t *testing.T) {
	tenants := new(storagemock.TenantRepoMock)
	linker := new(linkerMock)
	c := newTestConsumer(tenants, linker)

	data, _ := json.Marshal(map[string]string{"name": "no ids"})

	err := c.processEvent(context.Background(), data)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	tenants.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestProcessEventMalformedJSONIsBadRequest(t *testing.T) {
	c := newTestConsumer(new(storagemock.TenantRepoMock), new(linkerMock))

	err := c.processEvent(context.Background(), []byte("{not json"))

	require.Error(t, err)
	assert.True(t, apperrors.IsBadRequestError(err))
}

func TestNakDelayBacksOffAndCaps(t *testing.T) {
	base := 2 * time.Second
	max := 30 * time.Second

	assert.Equal(t, 2*time.Second, nakDelay(1, base, max))
	assert.Equal(t, 4*time.Second, nakDelay(2, base, max))
	assert.Equal(t, 16*time.Second, nakDelay(4, base, max))
	assert.Equal(t, 30*time.Second, nakDelay(6, base, max))
}
