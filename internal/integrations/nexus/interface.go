package nexus

import "context"

// File processing statuses reported by the knowledge base.
const (
	FileStatusSuccess    = "success"
	FileStatusFailed     = "failed"
	FileStatusProcessing = "processing"
)

// AgentAttributes describes the manager agent persona for a tenant.
type AgentAttributes struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Goal        string `json:"goal"`
	Personality string `json:"personality"`
}

// UploadResult acknowledges an accepted content file upload.
type UploadResult struct {
	FileUUID string `json:"file_uuid"`
}

// Client talks to the agent platform: manager agent setup, knowledge base
// content uploads, and passive agent integration.
type Client interface {
	CheckAgentExists(ctx context.Context, tenantID string) (bool, error)
	ConfigureAgentAttributes(ctx context.Context, tenantID string, attrs AgentAttributes) error
	UploadContentFile(ctx context.Context, tenantID, filename string, content []byte) (*UploadResult, error)
	GetFileStatus(ctx context.Context, tenantID, fileUUID string) (string, error)
	IntegrateAgent(ctx context.Context, tenantID, agentUUID string) error
}
