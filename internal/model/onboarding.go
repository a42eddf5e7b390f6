package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Workflow stage values for Onboarding.CurrentStage.
const (
	StageProjectConfig = "PROJECT_CONFIG"
	StageCrawl         = "CRAWL"
	StageNexusConfig   = "NEXUS_CONFIG"
)

// Crawl outcome values for Onboarding.CrawlResult.
const (
	CrawlResultSuccess = "SUCCESS"
	CrawlResultFail    = "FAIL"
)

// Onboarding represents the onboardings table structure, one persisted
// workflow record per merchant account.
type Onboarding struct {
	// ID is the internal database primary key.
	ID int64 `json:"-" gorm:"primaryKey;autoIncrement"`
	// WorkflowID is the stable public handle of the workflow. It addresses
	// webhook deliveries and never changes once the record exists.
	WorkflowID string `json:"workflow_id" gorm:"column:workflow_id;uniqueIndex" validate:"required,uuid4"`
	// AccountID is the merchant account this workflow belongs to. Unique,
	// so an account has at most one onboarding record.
	AccountID string `json:"account_id" gorm:"column:account_id;uniqueIndex" validate:"required"`
	// TenantID is the linked tenant, nil until the tenant directory
	// reports one for the account.
	TenantID *string `json:"tenant_id,omitempty" gorm:"column:tenant_id"`
	// CurrentStage is the coarse workflow phase (PROJECT_CONFIG, CRAWL, NEXUS_CONFIG).
	CurrentStage string `json:"current_stage,omitempty" gorm:"column:current_stage"`
	// Progress is the 0..100 completion indicator within the current stage.
	Progress int `json:"progress" gorm:"column:progress;default:0"`
	// Completed is set only by the front-end patch endpoint.
	Completed bool `json:"completed" gorm:"column:completed;default:false"`
	// Failed is set only by the failure recorder.
	Failed bool `json:"failed" gorm:"column:failed;default:false"`
	// CrawlResult is the terminal crawl outcome (SUCCESS or FAIL), empty while pending.
	CrawlResult string `json:"crawl_result,omitempty" gorm:"column:crawl_result"`
	// Config is the free-form workflow state blob (channel, app uuids,
	// integrated apps, failure reason, current page).
	Config datatypes.JSON `json:"config,omitempty" gorm:"type:jsonb;column:config"`
	// CreatedAt is the timestamp when the record was first created.
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp when the record was last updated.
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Onboarding) TableName() string {
	return "onboardings"
}

// ChannelAppInfo holds per-channel provisioning output stored under config.channels.
type ChannelAppInfo struct {
	AppUUID string `json:"app_uuid"`
}

// WorkflowConfig is the typed view of the Config JSONB blob.
type WorkflowConfig struct {
	Channel        string                    `json:"channel,omitempty"`
	Channels       map[string]ChannelAppInfo `json:"channels,omitempty"`
	IntegratedApps map[string]string         `json:"integrated_apps,omitempty"`
	ReasonFailed   string                    `json:"reason_failed,omitempty"`
	CurrentPage    string                    `json:"current_page,omitempty"`
}

// DecodeConfig unmarshals the Config blob into its typed form. An empty
// blob decodes to the zero value.
func (o *Onboarding) DecodeConfig() (WorkflowConfig, error) {
	var cfg WorkflowConfig
	if len(o.Config) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(o.Config, &cfg); err != nil {
		return WorkflowConfig{}, err
	}
	return cfg, nil
}

// IsLinked reports whether a tenant has been attached to this workflow.
func (o *Onboarding) IsLinked() bool {
	return o.TenantID != nil && *o.TenantID != ""
}
