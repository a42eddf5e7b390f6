package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/taskqueue"
)

func crawlRecord() *model.Onboarding {
	return model.NewOnboarding(&model.Onboarding{
		WorkflowID:   testWorkflowID,
		AccountID:    testAccountID,
		CurrentStage: model.StageCrawl,
		Progress:     40,
	})
}

func TestHandleWebhookGenericProgressIsMonotonic(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()
	record := crawlRecord()

	h.repo.On("FindByWorkflowID", ctx, testWorkflowID).Return(record, nil)
	h.repo.On("RaiseProgress", ctx, testAccountID, 55).Return(nil)

	event := model.NewWebhookEvent("crawl.progress", 55)
	updated, err := h.svc.HandleWebhook(ctx, testWorkflowID, *event)

	require.NoError(t, err)
	assert.Equal(t, testAccountID, updated.AccountID)
	h.repo.AssertExpectations(t)
}

func TestHandleWebhookCompletedSchedulesPipeline(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()
	record := crawlRecord()

	h.repo.On("FindByWorkflowID", ctx, testWorkflowID).Return(record, nil)
	h.repo.On("UpdateFields", ctx, testAccountID, map[string]interface{}{
		"progress":     100,
		"crawl_result": model.CrawlResultSuccess,
	}).Return(nil)
	h.publisher.On("EnqueuePostCrawl", ctx, mock.MatchedBy(func(task taskqueue.PostCrawlTask) bool {
		return task.AccountID == testAccountID && len(task.Contents) == 1
	})).Return(nil)

	event := model.NewWebhookEvent(model.EventCrawlCompleted, 100)
	event.Data.Contents = []model.CrawledPage{{Title: "Home", Content: "welcome"}}

	_, err := h.svc.HandleWebhook(ctx, testWorkflowID, *event)

	require.NoError(t, err)
	h.publisher.AssertExpectations(t)

	// The lock is held until the pipeline run releases it.
	acquired, lockErr := h.lock.Acquire(ctx, TaskConfigureNexus, testAccountID)
	require.NoError(t, lockErr)
	assert.False(t, acquired)
}

func TestHandleWebhookDuplicateCompletedSkipsScheduling(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()
	record := crawlRecord()

	// Simulate an in-flight pipeline holding the lock.
	acquired, err := h.lock.Acquire(ctx, TaskConfigureNexus, testAccountID)
	require.NoError(t, err)
	require.True(t, acquired)

	h.repo.On("FindByWorkflowID", ctx, testWorkflowID).Return(record, nil)
	h.repo.On("UpdateFields", ctx, testAccountID, map[string]interface{}{
		"progress":     100,
		"crawl_result": model.CrawlResultSuccess,
	}).Return(nil)

	event := model.NewWebhookEvent(model.EventCrawlCompleted, 100)
	_, err = h.svc.HandleWebhook(ctx, testWorkflowID, *event)

	require.NoError(t, err)
	// State update still applied, but no task was enqueued.
	h.repo.AssertExpectations(t)
	h.publisher.AssertNotCalled(t, "EnqueuePostCrawl", mock.Anything, mock.Anything)
}

func TestHandleWebhookFailedStoresReasonKeepsProgress(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()
	record := crawlRecord()

	h.repo.On("FindByWorkflowID", ctx, testWorkflowID).Return(record, nil)
	h.repo.On("UpdateFields", ctx, testAccountID, map[string]interface{}{
		"crawl_result": model.CrawlResultFail,
	}).Return(nil)
	h.repo.On("MergeConfig", ctx, testAccountID, map[string]interface{}{
		"reason_failed": "robots.txt disallows crawling",
	}).Return(nil)

	event := model.NewWebhookEvent(model.EventCrawlFailed, 0)
	event.Data.Reason = "robots.txt disallows crawling"

	_, err := h.svc.HandleWebhook(ctx, testWorkflowID, *event)

	require.NoError(t, err)
	h.repo.AssertExpectations(t)
	h.repo.AssertNotCalled(t, "RaiseProgress", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhookUnknownWorkflowIsNotFound(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	h.repo.On("FindByWorkflowID", ctx, "missing").Return(nil, apperrors.ErrNotFound)

	event := model.NewWebhookEvent("crawl.progress", 10)
	_, err := h.svc.HandleWebhook(ctx, "missing", *event)

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestHandleWebhookRejectsInvalidPayload(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	_, err := h.svc.HandleWebhook(ctx, testWorkflowID, model.WebhookEventPayload{})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	h.repo.AssertNotCalled(t, "FindByWorkflowID", mock.Anything, mock.Anything)
}
