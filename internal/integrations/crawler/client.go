package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/config"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// HTTPClient implements Client against the crawler REST API
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a crawler client from config
func NewHTTPClient(cfg config.ClientConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type startCrawlRequest struct {
	URL        string         `json:"url"`
	WebhookURL string         `json:"webhook_url"`
	Context    ProjectContext `json:"context"`
}

// StartCrawling asks the crawler to begin extracting the store site.
// Transient failures are retried briefly; a refusal or exhausted retries
// surface as ErrCrawlStart.
func (c *HTTPClient) StartCrawling(ctx context.Context, crawlURL, webhookURL string, project ProjectContext) (*StartResult, error) {
	body, err := json.Marshal(startCrawlRequest{
		URL:        crawlURL,
		WebhookURL: webhookURL,
		Context:    project,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal start crawl request: %w", apperrors.ErrBadRequest, err)
	}

	var result StartResult
	operation := func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/crawls/", bytes.NewReader(body))
		if reqErr != nil {
			return backoff.Permanent(reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, doErr := c.http.Do(req)
		if doErr != nil {
			return doErr // network errors are retryable
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("crawler returned status %d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return backoff.Permanent(fmt.Errorf("crawler refused crawl with status %d: %s", resp.StatusCode, payload))
		}

		if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode crawler response: %w", decodeErr))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 15 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		logger.FromContext(ctx).Error("Failed to start crawl",
			zap.String("crawl_url", crawlURL),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCrawlStart, err)
	}

	logger.FromContext(ctx).Info("Crawl started",
		zap.String("crawl_url", crawlURL),
		zap.String("task_id", result.TaskID))
	return &result, nil
}
