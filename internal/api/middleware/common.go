package middleware

import (
	"Helpdock/internal/pkg/consts"
	"fmt"

	"github.com/gin-gonic/gin"
)

// BaseURLMiddleware 未配置公网地址时，挂件脚本按请求推出自身地址
func BaseURLMiddleware(publicURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		baseURL := publicURL
		if baseURL == "" {
			scheme := "http"
			if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
				scheme = "https"
			}
			baseURL = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
		}
		c.Set(consts.BaseURLKey, baseURL)
		c.Next()
	}
}
