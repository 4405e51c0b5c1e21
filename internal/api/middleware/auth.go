package middleware

import (
	"Helpdock/internal/model"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/response"
	"Helpdock/internal/pkg/security"
	"Helpdock/internal/service"
	"context"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
)

// TenantEnsurer 首次访问时落租户记录
type TenantEnsurer interface {
	EnsureTenant(ctx context.Context, tenantID, email string) (*model.Tenant, error)
}

// AuthMiddleware 验证控制台 JWT 并把调用方注入 Context
func AuthMiddleware(tenants TenantEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		claims, err := security.ValidateTenantToken(token)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		viewer := &service.Viewer{
			TenantID: claims.TenantID(),
			Email:    claims.Email,
			Roles:    claims.Roles,
		}
		if tenants != nil {
			if _, err = tenants.EnsureTenant(c.Request.Context(), viewer.TenantID, viewer.NormalizedEmail()); err != nil {
				log.ErrorContext(c.Request.Context(), "ensure tenant failed", "tenant_id", viewer.TenantID, "err", err)
				response.Fail(c, response.InternalServerError, service.UnExpectedError.Error())
				c.Abort()
				return
			}
		}

		c.Set(consts.ViewerKey, viewer)
		c.Set(consts.RolesKey, claims.Roles)
		c.Next()
	}
}

// VisitorAuthMiddleware 访客 Token 只对签发它的工作区有效
func VisitorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		claims, err := security.ValidateVisitorToken(token)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}
		if wsID := c.Param("workspace_id"); wsID != "" && wsID != claims.WorkspaceID {
			response.Fail(c, response.Forbidden, service.ForbiddenError.Error())
			c.Abort()
			return
		}

		c.Set(consts.VisitorKey, claims)
		c.Next()
	}
}

// bearerToken 浏览器建立 WebSocket 时无法带 Header，退回 query 参数
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// GetViewer 由 AuthMiddleware 注入
func GetViewer(c *gin.Context) *service.Viewer {
	v, ok := c.Get(consts.ViewerKey)
	if !ok {
		return nil
	}
	viewer, _ := v.(*service.Viewer)
	return viewer
}

// GetVisitor 由 VisitorAuthMiddleware 注入
func GetVisitor(c *gin.Context) *security.VisitorClaims {
	v, ok := c.Get(consts.VisitorKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*security.VisitorClaims)
	return claims
}
