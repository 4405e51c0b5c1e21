package model

import "time"

// Tenant 平台客户，ID 为认证方的 subject
type Tenant struct {
	ID        string `gorm:"primaryKey;type:varchar(128)"`
	Email     string `gorm:"type:varchar(255);index:idx_tenant_email"`
	Plan      string `gorm:"type:varchar(20);not null;default:'trial'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Tenant) TableName() string {
	return "tenants"
}
