package channels

import "context"

// CreateAppRequest provisions a new channel app for a tenant.
type CreateAppRequest struct {
	TenantID    string `json:"tenant_id"`
	ChannelCode string `json:"channel_code"`
	Name        string `json:"name"`
}

// AppInfo identifies a provisioned channel app.
type AppInfo struct {
	UUID string `json:"uuid"`
}

// Client talks to the channel integrations service that provisions and
// configures messaging channel apps (web chat, WhatsApp Cloud, ...).
type Client interface {
	CreateChannelApp(ctx context.Context, req CreateAppRequest) (*AppInfo, error)
	ConfigureChannelApp(ctx context.Context, appUUID string, settings map[string]interface{}) error
}
