package nexus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/config"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

// HTTPClient implements Client against the agent platform REST API
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates an agent platform client from config
func NewHTTPClient(cfg config.ClientConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// CheckAgentExists reports whether the tenant already has a manager agent.
func (c *HTTPClient) CheckAgentExists(ctx context.Context, tenantID string) (bool, error) {
	path := fmt.Sprintf("/api/v1/tenants/%s/agent/", tenantID)
	status, _, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return false, fmt.Errorf("%w: check agent for tenant %s: %w", apperrors.ErrCollaborator, tenantID, err)
	}
	return status != http.StatusNotFound, nil
}

// ConfigureAgentAttributes sets the manager agent persona for a tenant.
func (c *HTTPClient) ConfigureAgentAttributes(ctx context.Context, tenantID string, attrs AgentAttributes) error {
	body, err := json.Marshal(attrs)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to marshal agent attributes: %w", err))
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/agent/", tenantID)
	status, respBody, err := c.do(ctx, http.MethodPut, path, body, "application/json")
	if err != nil {
		return fmt.Errorf("%w: configure agent for tenant %s: %w", apperrors.ErrCollaborator, tenantID, err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: configure agent for tenant %s: status %d: %s", apperrors.ErrCollaborator, tenantID, status, respBody)
	}
	logger.FromContext(ctx).Info("Agent attributes configured",
		zap.String("tenant_id", tenantID),
		zap.String("agent_name", attrs.Name))
	return nil
}

// UploadContentFile pushes one crawled page into the tenant knowledge
// base as a multipart upload and returns the file identifier used for
// status polling.
func (c *HTTPClient) UploadContentFile(ctx context.Context, tenantID, filename string, content []byte) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build upload for %s: %w", apperrors.ErrCollaborator, filename, err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("%w: failed to build upload for %s: %w", apperrors.ErrCollaborator, filename, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to build upload for %s: %w", apperrors.ErrCollaborator, filename, err)
	}

	path := fmt.Sprintf("/api/v1/tenants/%s/files/", tenantID)
	status, respBody, err := c.do(ctx, http.MethodPost, path, buf.Bytes(), writer.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("%w: upload %s for tenant %s: %w", apperrors.ErrCollaborator, filename, tenantID, err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: upload %s for tenant %s: status %d: %s", apperrors.ErrCollaborator, filename, tenantID, status, respBody)
	}

	var result UploadResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode upload response for %s: %w", apperrors.ErrCollaborator, filename, err)
	}
	logger.FromContext(ctx).Debug("Content file uploaded",
		zap.String("tenant_id", tenantID),
		zap.String("filename", filename),
		zap.String("file_uuid", result.FileUUID))
	return &result, nil
}

// GetFileStatus reports the processing status of an uploaded file.
func (c *HTTPClient) GetFileStatus(ctx context.Context, tenantID, fileUUID string) (string, error) {
	path := fmt.Sprintf("/api/v1/tenants/%s/files/%s/", tenantID, fileUUID)
	status, respBody, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return "", fmt.Errorf("%w: file status %s for tenant %s: %w", apperrors.ErrCollaborator, fileUUID, tenantID, err)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: file status %s for tenant %s: status %d: %s", apperrors.ErrCollaborator, fileUUID, tenantID, status, respBody)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", fmt.Errorf("%w: failed to decode file status for %s: %w", apperrors.ErrCollaborator, fileUUID, err)
	}
	return payload.Status, nil
}

// IntegrateAgent attaches a passive agent to the tenant workspace.
func (c *HTTPClient) IntegrateAgent(ctx context.Context, tenantID, agentUUID string) error {
	body, err := json.Marshal(map[string]string{"agent_uuid": agentUUID})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal integrate request: %w", apperrors.ErrCollaborator, err)
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/integrations/", tenantID)
	status, respBody, err := c.do(ctx, http.MethodPost, path, body, "application/json")
	if err != nil {
		return fmt.Errorf("%w: integrate agent %s for tenant %s: %w", apperrors.ErrCollaborator, agentUUID, tenantID, err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: integrate agent %s for tenant %s: status %d: %s", apperrors.ErrCollaborator, agentUUID, tenantID, status, respBody)
	}
	logger.FromContext(ctx).Info("Agent integrated",
		zap.String("tenant_id", tenantID),
		zap.String("agent_uuid", agentUUID))
	return nil
}

// do performs one request with brief retries on transient failures and
// returns the final status code and body. 4xx statuses are returned to
// the caller without retrying so each operation can interpret them.
func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, contentType string) (int, []byte, error) {
	var statusCode int
	var respBody []byte

	operation := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if reqErr != nil {
			return backoff.Permanent(reqErr)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, doErr := c.http.Do(req)
		if doErr != nil {
			return doErr // network errors are retryable
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("agent platform returned status %d", resp.StatusCode)
		}

		statusCode = resp.StatusCode
		respBody, _ = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 15 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return 0, nil, err
	}
	return statusCode, respBody, nil
}
