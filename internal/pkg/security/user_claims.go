package security

import (
	"github.com/golang-jwt/jwt/v5"
)

// TenantClaims 控制台 Token，由外部认证方签发，subject 即租户 ID
type TenantClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

func (c *TenantClaims) TenantID() string {
	return c.Subject
}

// VisitorClaims 访客 Token，开启会话时签发，只能访问这一个会话
type VisitorClaims struct {
	WorkspaceID    string `json:"wid"`
	ConversationID string `json:"cid"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}
