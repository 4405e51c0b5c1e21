package api

import (
	"Helpdock/internal/api/config"
	"Helpdock/internal/api/handler"
	"Helpdock/internal/api/middleware"
)

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	WorkspaceHandler    *handler.WorkspaceHandler
	ConversationHandler *handler.ConversationHandler
	WidgetHandler       *handler.WidgetHandler
	AnalyticsHandler    *handler.AnalyticsHandler
	BillingHandler      *handler.BillingHandler
	RealtimeHandler     *handler.RealtimeHandler
}

// RouterDeps 路由层需要的非 Handler 依赖
type RouterDeps struct {
	Tenants   middleware.TenantEnsurer
	PublicURL string
	Logstash  config.LogstashConfig
}
