package model

import (
	"time"

	"gorm.io/datatypes"
)

// UpgradeRequest 套餐升级申请，人工审核，不接支付
type UpgradeRequest struct {
	ID            uint64 `gorm:"primaryKey"`
	TenantID      string `gorm:"type:varchar(128);index:idx_upgrade_tenant;not null"`
	Email         string `gorm:"type:varchar(255)"`
	CurrentPlan   string `gorm:"type:varchar(20);not null"`
	RequestedPlan string `gorm:"type:varchar(20);not null"`
	Reason        string `gorm:"type:varchar(20);not null"`
	Status        string `gorm:"type:varchar(20);index:idx_upgrade_status;not null;default:'pending'"`
	Note          string `gorm:"type:varchar(500)"`
	// Usage 申请时的用量快照，供审核参考
	Usage     datatypes.JSONMap `gorm:"type:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UpgradeRequest) TableName() string {
	return "upgrade_requests"
}
