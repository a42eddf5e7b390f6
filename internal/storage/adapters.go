package storage

import (
	"context"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
)

// OnboardingRepoAdapter adapts the PostgresRepo to the OnboardingRepo interface
type OnboardingRepoAdapter struct {
	postgres *PostgresRepo
}

// NewOnboardingRepoAdapter creates a new onboarding repository adapter
func NewOnboardingRepoAdapter(postgres *PostgresRepo) OnboardingRepo {
	return &OnboardingRepoAdapter{postgres: postgres}
}

// Save inserts a new workflow record
func (a *OnboardingRepoAdapter) Save(ctx context.Context, record *model.Onboarding) error {
	return a.postgres.SaveOnboarding(ctx, record)
}

// FindByAccountID finds the workflow record for an account
func (a *OnboardingRepoAdapter) FindByAccountID(ctx context.Context, accountID string) (*model.Onboarding, error) {
	return a.postgres.FindOnboardingByAccountID(ctx, accountID)
}

// FindByWorkflowID finds the workflow record by its public handle
func (a *OnboardingRepoAdapter) FindByWorkflowID(ctx context.Context, workflowID string) (*model.Onboarding, error) {
	return a.postgres.FindOnboardingByWorkflowID(ctx, workflowID)
}

// FindPendingByAccountID finds the record still waiting for a tenant
func (a *OnboardingRepoAdapter) FindPendingByAccountID(ctx context.Context, accountID string) (*model.Onboarding, error) {
	return a.postgres.FindPendingOnboardingByAccountID(ctx, accountID)
}

// UpdateFields updates only the given columns
func (a *OnboardingRepoAdapter) UpdateFields(ctx context.Context, accountID string, fields map[string]interface{}) error {
	return a.postgres.UpdateOnboardingFields(ctx, accountID, fields)
}

// LinkTenant attaches a tenant to a still-unlinked record
func (a *OnboardingRepoAdapter) LinkTenant(ctx context.Context, accountID string, tenantID string) error {
	return a.postgres.LinkOnboardingTenant(ctx, accountID, tenantID)
}

// MergeConfig shallow-merges a patch into the config blob
func (a *OnboardingRepoAdapter) MergeConfig(ctx context.Context, accountID string, patch map[string]interface{}) error {
	return a.postgres.MergeOnboardingConfig(ctx, accountID, patch)
}

// RaiseProgress moves progress forward, never back
func (a *OnboardingRepoAdapter) RaiseProgress(ctx context.Context, accountID string, progress int) error {
	return a.postgres.RaiseOnboardingProgress(ctx, accountID, progress)
}

// Close closes the repository
func (a *OnboardingRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// TenantRepoAdapter adapts the PostgresRepo to the TenantRepo interface
type TenantRepoAdapter struct {
	postgres *PostgresRepo
}

// NewTenantRepoAdapter creates a new tenant repository adapter
func NewTenantRepoAdapter(postgres *PostgresRepo) TenantRepo {
	return &TenantRepoAdapter{postgres: postgres}
}

// Upsert inserts or refreshes a tenant projection row
func (a *TenantRepoAdapter) Upsert(ctx context.Context, tenant model.Tenant) error {
	return a.postgres.UpsertTenant(ctx, tenant)
}

// FindByAccountID returns every tenant provisioned for an account
func (a *TenantRepoAdapter) FindByAccountID(ctx context.Context, accountID string) ([]model.Tenant, error) {
	return a.postgres.FindTenantsByAccountID(ctx, accountID)
}

// FindByTenantID finds a tenant by its directory identifier
func (a *TenantRepoAdapter) FindByTenantID(ctx context.Context, tenantID string) (*model.Tenant, error) {
	return a.postgres.FindTenantByTenantID(ctx, tenantID)
}

// Close closes the repository
func (a *TenantRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// Ensure adapters implement the interfaces
var _ OnboardingRepo = (*OnboardingRepoAdapter)(nil)
var _ TenantRepo = (*TenantRepoAdapter)(nil)
