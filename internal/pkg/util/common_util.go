package util

import (
	"strings"
)

// PtrInt 用于将 int 转换为 *int
func PtrInt(i int) *int {
	return &i
}

// PtrBool 用于将 bool 转换为 *bool
func PtrBool(b bool) *bool {
	return &b
}

// ClampZero 聚合计数展示时不出现负数
func ClampZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// NormalizeEmail 成员与访客邮箱统一小写去空白
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
