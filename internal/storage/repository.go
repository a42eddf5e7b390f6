package storage

import (
	"context"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
)

// OnboardingRepo defines onboarding workflow record storage operations.
// All mutations are field-scoped: callers update only the columns they
// own, never the whole row.
type OnboardingRepo interface {
	Save(ctx context.Context, record *model.Onboarding) error
	FindByAccountID(ctx context.Context, accountID string) (*model.Onboarding, error)
	FindByWorkflowID(ctx context.Context, workflowID string) (*model.Onboarding, error)
	// FindPendingByAccountID returns the record for the account only if no
	// tenant has been linked yet.
	FindPendingByAccountID(ctx context.Context, accountID string) (*model.Onboarding, error)
	UpdateFields(ctx context.Context, accountID string, fields map[string]interface{}) error
	// LinkTenant attaches a tenant to a still-unlinked record. Linking an
	// already linked record is a no-op.
	LinkTenant(ctx context.Context, accountID string, tenantID string) error
	// MergeConfig shallow-merges the patch into the config jsonb blob.
	MergeConfig(ctx context.Context, accountID string, patch map[string]interface{}) error
	// RaiseProgress sets progress to the given value only if it is higher
	// than the stored one.
	RaiseProgress(ctx context.Context, accountID string, progress int) error
	Close(ctx context.Context) error
}

// TenantRepo defines tenant projection storage operations
type TenantRepo interface {
	Upsert(ctx context.Context, tenant model.Tenant) error
	FindByAccountID(ctx context.Context, accountID string) ([]model.Tenant, error)
	FindByTenantID(ctx context.Context, tenantID string) (*model.Tenant, error)
	Close(ctx context.Context) error
}
