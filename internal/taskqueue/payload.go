package taskqueue

import (
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
)

// Subjects for background onboarding tasks. The stream captures the
// whole v1.onboarding.> space.
const (
	SubjectLinkWait  = "v1.onboarding.linkwait"
	SubjectPostCrawl = "v1.onboarding.postcrawl"
)

// Task type labels for metrics and logs.
const (
	TaskTypeLinkWait  = "link_wait"
	TaskTypePostCrawl = "post_crawl"
)

// LinkWaitTask asks the worker to start the crawl once a tenant shows up
// for the account. It is redelivered on a fixed delay until the tenant
// is linked or attempts run out.
type LinkWaitTask struct {
	AccountID string `json:"account_id" validate:"required"`
	CrawlURL  string `json:"crawl_url" validate:"required,url"`
}

// PostCrawlTask carries the crawled contents into the post-crawl
// pipeline. It is acked on receipt; the pipeline itself has no retry
// layer, recovery happens through lock expiry and a later webhook.
type PostCrawlTask struct {
	AccountID string              `json:"account_id" validate:"required"`
	Contents  []model.CrawledPage `json:"contents,omitempty"`
}
