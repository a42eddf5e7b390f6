package channels

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

// HTTPClient implements Client against the channel integrations REST API
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a channels client from config
func NewHTTPClient(cfg config.ClientConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateChannelApp provisions a channel app and returns its identifier.
func (c *HTTPClient) CreateChannelApp(ctx context.Context, req CreateAppRequest) (*AppInfo, error) {
	var info AppInfo
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/apps/", req, &info)
	if err != nil {
		return nil, fmt.Errorf("%w: create channel app: %w", apperrors.ErrChannelConfig, err)
	}
	logger.FromContext(ctx).Info("Channel app created",
		zap.String("channel_code", req.ChannelCode),
		zap.String("app_uuid", info.UUID))
	return &info, nil
}

// ConfigureChannelApp applies channel settings to a provisioned app.
func (c *HTTPClient) ConfigureChannelApp(ctx context.Context, appUUID string, settings map[string]interface{}) error {
	path := fmt.Sprintf("/api/v1/apps/%s/configure/", appUUID)
	if err := c.doJSON(ctx, http.MethodPatch, path, settings, nil); err != nil {
		return fmt.Errorf("%w: configure channel app %s: %w", apperrors.ErrChannelConfig, appUUID, err)
	}
	logger.FromContext(ctx).Info("Channel app configured", zap.String("app_uuid", appUUID))
	return nil
}

// doJSON performs a JSON request with brief retries on transient failures.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	operation := func() error {
		req, reqErr := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if reqErr != nil {
			return backoff.Permanent(reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, doErr := c.http.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("channels service returned status %d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return backoff.Permanent(fmt.Errorf("channels service returned status %d: %s", resp.StatusCode, respBody))
		}

		if out != nil {
			if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", decodeErr))
			}
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 15 * time.Second

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}
