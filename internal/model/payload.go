package model

// Webhook event names reported by the crawler.
const (
	EventCrawlCompleted = "crawl.completed"
	EventCrawlFailed    = "crawl.failed"
)

// --- HTTP request payloads --- //

// StartCrawlingRequest is the body of POST /api/onboard/{account_id}/start-crawling/.
type StartCrawlingRequest struct {
	CrawlURL string `json:"crawl_url" validate:"required,url"`
	Channel  string `json:"channel" validate:"required"`
}

// PatchOnboardingRequest is the body of PATCH /api/onboard/{account_id}/.
// Only the fields present are applied.
type PatchOnboardingRequest struct {
	Completed   *bool   `json:"completed,omitempty" validate:"omitempty"`
	CurrentPage *string `json:"current_page,omitempty" validate:"omitempty"`
}

// --- Crawler webhook payload --- //

// WebhookEventPayload is what the crawler POSTs back to
// /api/onboard/{workflow_id}/webhook/ as the crawl advances.
type WebhookEventPayload struct {
	TaskID    string      `json:"task_id,omitempty" validate:"omitempty"`
	Event     string      `json:"event" validate:"required"`
	Timestamp int64       `json:"timestamp,omitempty" validate:"omitempty,gte=0"`
	URL       string      `json:"url,omitempty" validate:"omitempty"`
	Progress  int         `json:"progress,omitempty" validate:"omitempty,gte=0,lte=100"`
	Data      WebhookData `json:"data,omitempty" validate:"omitempty"`
}

// WebhookData carries the event-specific portion of a webhook delivery:
// crawled contents on completion, a reason on failure.
type WebhookData struct {
	Contents []CrawledPage `json:"contents,omitempty" validate:"omitempty,dive"`
	Reason   string        `json:"reason,omitempty" validate:"omitempty"`
}

// CrawledPage is one page extracted by the crawler.
type CrawledPage struct {
	URL     string `json:"url,omitempty" validate:"omitempty"`
	Title   string `json:"title,omitempty" validate:"omitempty"`
	Content string `json:"content,omitempty" validate:"omitempty"`
}

// --- Tenant directory NATS payload --- //

// TenantEventPayload is published by the tenant directory when a tenant
// is created or updated.
type TenantEventPayload struct {
	TenantID         string `json:"tenant_id" validate:"required"`
	Name             string `json:"name,omitempty" validate:"omitempty"`
	AccountID        string `json:"account_id" validate:"required"`
	OrganizationUUID string `json:"organization_uuid,omitempty" validate:"omitempty"`
	Language         string `json:"language,omitempty" validate:"omitempty"`
}
