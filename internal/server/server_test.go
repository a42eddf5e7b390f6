package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
)

type serviceMock struct {
	mock.Mock
}

func (m *serviceMock) StartOnboarding(ctx context.Context, accountID string, req model.StartCrawlingRequest) (*model.Onboarding, error) {
	args := m.Called(ctx, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Onboarding), args.Error(1)
}

func (m *serviceMock) HandleWebhook(ctx context.Context, workflowID string, event model.WebhookEventPayload) (*model.Onboarding, error) {
	args := m.Called(ctx, workflowID, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Onboarding), args.Error(1)
}

func (m *serviceMock) GetOrCreateStatus(ctx context.Context, accountID string) (*model.Onboarding, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Onboarding), args.Error(1)
}

func (m *serviceMock) PatchOnboarding(ctx context.Context, accountID string, req model.PatchOnboardingRequest) (*model.Onboarding, error) {
	args := m.Called(ctx, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Onboarding), args.Error(1)
}

func newTestServer(svc OnboardingService) *Server {
	return NewServer(0, svc, false, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStartCrawlingReturns201(t *testing.T) {
	svc := new(serviceMock)
	srv := newTestServer(svc)

	svc.On("StartOnboarding", mock.Anything, "acct-123", model.StartCrawlingRequest{
		CrawlURL: "https://store.example.com",
		Channel:  "wwc",
	}).Return(model.NewOnboarding(&model.Onboarding{AccountID: "acct-123"}), nil)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/onboard/acct-123/start-crawling/", map[string]string{
		"crawl_url": "https://store.example.com",
		"channel":   "wwc",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"status":"started"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestStartCrawlingMapsCrawlRefusalTo502(t *testing.T) {
	svc := new(serviceMock)
	srv := newTestServer(svc)

	svc.On("StartOnboarding", mock.Anything, "acct-123", mock.Anything).
		Return(nil, apperrors.ErrCrawlStart)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/onboard/acct-123/start-crawling/", map[string]string{
		"crawl_url": "https://store.example.com",
		"channel":   "wwc",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStartCrawlingMapsIntegrityFaultTo500(t *testing.T) {
	svc := new(serviceMock)
	srv := newTestServer(svc)

	svc.On("StartOnboarding", mock.Anything, "acct-123", mock.Anything).
		Return(nil, apperrors.ErrDataIntegrity)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/onboard/acct-123/start-crawling/", map[string]string{
		"crawl_url": "https://store.example.com",
		"channel":   "wwc",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStartCrawlingMapsValidationTo400(t *testing.T) {
	svc := new(serviceMock)
	srv := newTestServer(svc)

	svc.On("StartOnboarding", mock.Anything, "acct-123", mock.Anything).
		Return(nil, apperrors.ErrValidation)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/onboard/acct-123/start-crawling/", map[string]string{
		"crawl_url": "not-a-url",
		"channel":   "wwc",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookReturnsSnapshot(t *testing.T) {
	svc := new(serviceMock)
	srv := newTestServer(svc)
	record := model.NewOnboarding(&model.Onboarding{
		WorkflowID: "wf-1",
		AccountID:  "acct-123",
		Progress:   60,
	})

	svc.On("HandleWebhook", mock.Anything, "wf-1", mock.MatchedBy(func(e model.WebhookEventPayload) bool {
		return e.Event == "crawl.progress" && e.Progress == 60
	})).Return(record, nil)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/onboard/wf-1/webhook/", map[string]interface{}{
		"event":    "crawl.progress",
		"progress": 60,
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var snapshot model.Onboarding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, 60, snapshot.Progress)
}

func TestWebhookUnknownWorkflowIs404(t *testing.T) {
	svc := new(serviceMock)
	srv := newTestServer(svc)

	svc.On("HandleWebhook", mock.Anything, "missing", mock.Anything).
		Return(nil, apperrors.ErrNotFound)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/onboard/missing/webhook/", map[string]interface{}{
		"event": "crawl.progress",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookMalformedBodyIs400(t *testing.T) {
	svc := new(serviceMock)
	srv := newTestServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/onboard/wf-1/webhook/", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatusLazilyCreates(t *testing.T) {
	svc := new(serviceMock)
	srv := newTestServer(svc)

	svc.On("GetOrCreateStatus", mock.Anything, "acct-999").
		Return(model.NewOnboarding(&model.Onboarding{AccountID: "acct-999"}), nil)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/onboard/acct-999/status/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestPatchUnknownAccountIs404(t *testing.T) {
	svc := new(serviceMock)
	srv := newTestServer(svc)

	svc.On("PatchOnboarding", mock.Anything, "acct-404", mock.Anything).
		Return(nil, apperrors.ErrNotFound)

	completed := true
	rec := doJSON(t, srv.Handler(), http.MethodPatch, "/api/onboard/acct-404/", model.PatchOnboardingRequest{
		Completed: &completed,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	srv := NewServer(0, new(serviceMock), false, map[string]ReadinessChecker{
		"postgres": func(ctx context.Context) error { return nil },
	})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyReportsFailures(t *testing.T) {
	srv := NewServer(0, new(serviceMock), false, map[string]ReadinessChecker{
		"nats": func(ctx context.Context) error { return errors.New("disconnected") },
	})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/ready", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "disconnected")
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	svc := new(serviceMock)
	srv := newTestServer(svc)
	svc.On("GetOrCreateStatus", mock.Anything, "acct-1").
		Return(model.NewOnboarding(&model.Onboarding{AccountID: "acct-1"}), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/onboard/acct-1/status/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}
