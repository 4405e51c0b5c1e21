package service

import (
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/util"
	"slices"
)

// Viewer 控制台调用方，来自认证中间件
type Viewer struct {
	TenantID string
	Email    string
	Roles    []string
}

func (v *Viewer) IsOperator() bool {
	return slices.Contains(v.Roles, consts.RoleOperator)
}

// NormalizedEmail 成员匹配用
func (v *Viewer) NormalizedEmail() string {
	return util.NormalizeEmail(v.Email)
}
