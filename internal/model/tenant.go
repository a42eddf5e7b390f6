package model

import (
	"time"
)

// Tenant is the local projection of the tenant directory, kept fresh by
// the tenant-events consumer. Only the fields the onboarding workflow
// needs are stored.
type Tenant struct {
	// ID is the internal database primary key.
	ID int64 `json:"-" gorm:"primaryKey;autoIncrement"`
	// TenantID is the directory-assigned tenant identifier.
	TenantID string `json:"tenant_id" gorm:"column:tenant_id;uniqueIndex" validate:"required"`
	// Name is the display name of the tenant.
	Name string `json:"name,omitempty" gorm:"column:name"`
	// AccountID is the merchant account the tenant was provisioned for.
	AccountID string `json:"account_id" gorm:"column:account_id;index" validate:"required"`
	// OrganizationUUID identifies the owning organization in the directory.
	OrganizationUUID string `json:"organization_uuid,omitempty" gorm:"column:organization_uuid"`
	// Language is the tenant locale (e.g. "pt-br"), drives onboarding copy.
	Language string `json:"language,omitempty" gorm:"column:language"`
	// CreatedAt is the timestamp when the record was first created.
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp when the record was last updated.
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Tenant) TableName() string {
	return "tenants"
}

// TenantUpdateColumns returns the column names allowed to change during
// an upsert. Excludes primary key, tenant_id and created_at.
func TenantUpdateColumns() []string {
	return []string{
		"name",
		"account_id",
		"organization_uuid",
		"language",
		"updated_at",
	}
}
