package model

import (
	"encoding/json"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/datatypes"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// JSONBMap builds a jsonb blob from a map, for tests.
func JSONBMap(data map[string]interface{}) datatypes.JSON {
	bytes, _ := json.Marshal(data)
	return datatypes.JSON(bytes)
}

// NewOnboarding creates a new Onboarding instance with default fake data.
func NewOnboarding(overrideDefaults ...*Onboarding) *Onboarding {
	base := &Onboarding{
		WorkflowID: gofakeit.UUID(),
		AccountID:  "acct_" + gofakeit.LetterN(10),
		Progress:   gofakeit.Number(0, 100),
		Config:     JSONBMap(map[string]interface{}{"channel": "wwc"}),
		CreatedAt:  utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt:  utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.WorkflowID != "" {
			base.WorkflowID = ovr.WorkflowID
		}
		if ovr.AccountID != "" {
			base.AccountID = ovr.AccountID
		}
		base.TenantID = ovr.TenantID
		base.CurrentStage = ovr.CurrentStage
		base.Progress = ovr.Progress
		base.Completed = ovr.Completed
		base.Failed = ovr.Failed
		base.CrawlResult = ovr.CrawlResult
		if len(ovr.Config) > 0 {
			base.Config = ovr.Config
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}

// NewTenant creates a new Tenant instance with default fake data.
func NewTenant(overrideDefaults ...*Tenant) *Tenant {
	base := &Tenant{
		TenantID:         gofakeit.UUID(),
		Name:             gofakeit.Company(),
		AccountID:        "acct_" + gofakeit.LetterN(10),
		OrganizationUUID: gofakeit.UUID(),
		Language:         gofakeit.RandomString([]string{"en", "pt-br", "es"}),
		CreatedAt:        utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt:        utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.TenantID != "" {
			base.TenantID = ovr.TenantID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.AccountID != "" {
			base.AccountID = ovr.AccountID
		}
		if ovr.OrganizationUUID != "" {
			base.OrganizationUUID = ovr.OrganizationUUID
		}
		if ovr.Language != "" {
			base.Language = ovr.Language
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}

// NewWebhookEvent creates a WebhookEventPayload with default fake data.
func NewWebhookEvent(event string, progress int) *WebhookEventPayload {
	return &WebhookEventPayload{
		TaskID:    gofakeit.UUID(),
		Event:     event,
		Timestamp: utils.Now().Unix(),
		URL:       gofakeit.URL(),
		Progress:  progress,
	}
}
