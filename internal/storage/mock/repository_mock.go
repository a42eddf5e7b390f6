package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
)

// --- OnboardingRepo Mock ---

// OnboardingRepoMock mocks the OnboardingRepo interface
type OnboardingRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *OnboardingRepoMock) Save(ctx context.Context, record *model.Onboarding) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// FindByAccountID mocks the FindByAccountID method
func (m *OnboardingRepoMock) FindByAccountID(ctx context.Context, accountID string) (*model.Onboarding, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Onboarding), args.Error(1)
}

// FindByWorkflowID mocks the FindByWorkflowID method
func (m *OnboardingRepoMock) FindByWorkflowID(ctx context.Context, workflowID string) (*model.Onboarding, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Onboarding), args.Error(1)
}

// FindPendingByAccountID mocks the FindPendingByAccountID method
func (m *OnboardingRepoMock) FindPendingByAccountID(ctx context.Context, accountID string) (*model.Onboarding, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Onboarding), args.Error(1)
}

// UpdateFields mocks the UpdateFields method
func (m *OnboardingRepoMock) UpdateFields(ctx context.Context, accountID string, fields map[string]interface{}) error {
	args := m.Called(ctx, accountID, fields)
	return args.Error(0)
}

// LinkTenant mocks the LinkTenant method
func (m *OnboardingRepoMock) LinkTenant(ctx context.Context, accountID string, tenantID string) error {
	args := m.Called(ctx, accountID, tenantID)
	return args.Error(0)
}

// MergeConfig mocks the MergeConfig method
func (m *OnboardingRepoMock) MergeConfig(ctx context.Context, accountID string, patch map[string]interface{}) error {
	args := m.Called(ctx, accountID, patch)
	return args.Error(0)
}

// RaiseProgress mocks the RaiseProgress method
func (m *OnboardingRepoMock) RaiseProgress(ctx context.Context, accountID string, progress int) error {
	args := m.Called(ctx, accountID, progress)
	return args.Error(0)
}

// Close mocks the Close method
func (m *OnboardingRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- TenantRepo Mock ---

// TenantRepoMock mocks the TenantRepo interface
type TenantRepoMock struct {
	mock.Mock
}

// Upsert mocks the Upsert method
func (m *TenantRepoMock) Upsert(ctx context.Context, tenant model.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

// FindByAccountID mocks the FindByAccountID method
func (m *TenantRepoMock) FindByAccountID(ctx context.Context, accountID string) ([]model.Tenant, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tenant), args.Error(1)
}

// FindByTenantID mocks the FindByTenantID method
func (m *TenantRepoMock) FindByTenantID(ctx context.Context, tenantID string) (*model.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

// Close mocks the Close method
func (m *TenantRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
