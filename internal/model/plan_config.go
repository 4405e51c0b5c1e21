package model

import "time"

// PlanConfig 每个套餐一行，NULL 表示未配置，回退到代码内默认值
type PlanConfig struct {
	Tier                   string `gorm:"primaryKey;type:varchar(20)"`
	MaxWorkspaces          *int
	MaxMembersPerWorkspace *int
	MaxCustomers           *int
	AllowImageUpload       *bool
	UpdatedAt              time.Time
}

func (PlanConfig) TableName() string {
	return "plan_configs"
}
