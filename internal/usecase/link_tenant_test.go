package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
)

func TestLinkTenantToOnboardingLinksPendingRecord(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	h.repo.On("FindPendingByAccountID", ctx, testAccountID).
		Return(model.NewOnboarding(&model.Onboarding{AccountID: testAccountID}), nil)
	h.repo.On("LinkTenant", ctx, testAccountID, testTenantID).Return(nil)

	err := h.svc.LinkTenantToOnboarding(ctx, testAccountID, testTenantID)

	require.NoError(t, err)
	h.repo.AssertExpectations(t)
}

func TestLinkTenantToOnboardingNoPendingIsNoop(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	h.repo.On("FindPendingByAccountID", ctx, testAccountID).Return(nil, apperrors.ErrNotFound)

	err := h.svc.LinkTenantToOnboarding(ctx, testAccountID, testTenantID)

	require.NoError(t, err)
	h.repo.AssertNotCalled(t, "LinkTenant", mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkTenantToOnboardingIntegrityFaultSurfaces(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	h.repo.On("FindPendingByAccountID", ctx, testAccountID).
		Return(nil, apperrors.ErrDataIntegrity)

	err := h.svc.LinkTenantToOnboarding(ctx, testAccountID, testTenantID)

	require.Error(t, err)
	assert.True(t, apperrors.IsDataIntegrityError(err))
}
