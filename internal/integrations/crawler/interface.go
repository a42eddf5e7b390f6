package crawler

import "context"

// ProjectContext is the business framing handed to the crawler so it can
// steer extraction toward the onboarding objective.
type ProjectContext struct {
	AccountName  string `json:"account_name"`
	Objective    string `json:"objective"`
	Instructions string `json:"instructions"`
}

// StartResult is the crawler's acknowledgement of an accepted crawl.
type StartResult struct {
	TaskID string `json:"task_id"`
}

// Client talks to the external crawler service. Progress and results
// come back asynchronously through the webhook endpoint.
type Client interface {
	StartCrawling(ctx context.Context, crawlURL, webhookURL string, project ProjectContext) (*StartResult, error)
}
