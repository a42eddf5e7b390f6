package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/integrations/crawler"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue"
)

var linkWaitTask = taskqueue.LinkWaitTask{
	AccountID: testAccountID,
	CrawlURL:  "https://store.example.com",
}

func TestHandleLinkWaitStillUnlinked(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	h.repo.On("FindByAccountID", ctx, testAccountID).
		Return(model.NewOnboarding(&model.Onboarding{AccountID: testAccountID}), nil)

	err := h.svc.HandleLinkWait(ctx, linkWaitTask)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotLinked)
	h.crawler.AssertNotCalled(t, "StartCrawling", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleLinkWaitLinkedStartsCrawl(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()
	tenantID := testTenantID
	record := model.NewOnboarding(&model.Onboarding{
		WorkflowID: testWorkflowID,
		AccountID:  testAccountID,
		TenantID:   &tenantID,
	})

	h.repo.On("FindByAccountID", ctx, testAccountID).Return(record, nil)
	h.repo.On("UpdateFields", ctx, testAccountID, map[string]interface{}{
		"current_stage": model.StageCrawl,
		"progress":      0,
	}).Return(nil)
	h.tenants.On("FindByTenantID", ctx, testTenantID).
		Return(model.NewTenant(&model.Tenant{TenantID: testTenantID, AccountID: testAccountID}), nil)
	h.crawler.On("StartCrawling", ctx, linkWaitTask.CrawlURL, mock.Anything, mock.Anything).
		Return(&crawler.StartResult{TaskID: "task-1"}, nil)

	err := h.svc.HandleLinkWait(ctx, linkWaitTask)

	require.NoError(t, err)
	h.crawler.AssertExpectations(t)
}

func TestHandleLinkWaitCrawlRefusalEndsWaitWithoutRetry(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()
	tenantID := testTenantID
	record := model.NewOnboarding(&model.Onboarding{
		AccountID: testAccountID,
		TenantID:  &tenantID,
	})

	h.repo.On("FindByAccountID", ctx, testAccountID).Return(record, nil)
	h.repo.On("UpdateFields", ctx, testAccountID, mock.Anything).Return(nil)
	h.repo.On("MergeConfig", ctx, testAccountID, mock.Anything).Return(nil)
	h.tenants.On("FindByTenantID", ctx, testTenantID).
		Return(model.NewTenant(&model.Tenant{TenantID: testTenantID}), nil)
	h.crawler.On("StartCrawling", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrCrawlStart)

	err := h.svc.HandleLinkWait(ctx, linkWaitTask)

	// StartCrawl already recorded the failure; the wait ends cleanly.
	require.NoError(t, err)
	h.repo.AssertCalled(t, "UpdateFields", ctx, testAccountID, map[string]interface{}{"failed": true})
}

func TestHandleLinkWaitStorageErrorIsRetryable(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	h.repo.On("FindByAccountID", ctx, testAccountID).
		Return(nil, errors.New("connection reset"))

	err := h.svc.HandleLinkWait(ctx, linkWaitTask)

	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestHandleLinkWaitExhaustedRecordsFailure(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	h.repo.On("UpdateFields", ctx, testAccountID, map[string]interface{}{"failed": true}).Return(nil)
	h.repo.On("MergeConfig", ctx, testAccountID, map[string]interface{}{
		"reason_failed": "tenant was never linked to the onboarding",
	}).Return(nil)

	h.svc.HandleLinkWaitExhausted(ctx, linkWaitTask, "tenant was never linked to the onboarding")

	h.repo.AssertExpectations(t)
}
