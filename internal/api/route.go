package api

import (
	"Helpdock/internal/api/middleware"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup, deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.BaseURLMiddleware(deps.PublicURL))
	logger.SetupGin(r, deps.Logstash)

	auth := middleware.AuthMiddleware(deps.Tenants)
	visitor := middleware.VisitorAuthMiddleware()
	operator := middleware.CheckRoles(consts.RoleOperator)

	// 嵌入脚本与 iframe 页面
	widgetPages := r.Group("/widget")
	{
		widgetPages.GET("/loader.js", group.WidgetHandler.Loader)
		widgetPages.GET("/:workspace_id", group.WidgetHandler.Frame)
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		apiGroup.GET("/tenant/me", auth, group.BillingHandler.Me)
		apiGroup.GET("/realtime", auth, group.RealtimeHandler.Dashboard)

		workspaceGroup := apiGroup.Group("/workspaces")
		workspaceGroup.Use(auth)
		{
			workspaceGroup.GET("", group.WorkspaceHandler.List)
			workspaceGroup.POST("", group.WorkspaceHandler.Create)
			workspaceGroup.GET("/:id", group.WorkspaceHandler.Get)
			workspaceGroup.PUT("/:id", group.WorkspaceHandler.Update)
			workspaceGroup.DELETE("/:id", group.WorkspaceHandler.Delete)
			workspaceGroup.POST("/:id/logo", group.WorkspaceHandler.UploadLogo)
			workspaceGroup.POST("/:id/members", group.WorkspaceHandler.AddMember)
			workspaceGroup.DELETE("/:id/members", group.WorkspaceHandler.RemoveMember)
			workspaceGroup.GET("/:id/fields", group.WorkspaceHandler.ListFields)
			workspaceGroup.POST("/:id/fields", group.WorkspaceHandler.SaveField)
			workspaceGroup.DELETE("/:id/fields/:key", group.WorkspaceHandler.DeleteField)
			workspaceGroup.GET("/:id/conversations", group.WorkspaceHandler.ListConversations)
			workspaceGroup.GET("/:id/search", group.WorkspaceHandler.Search)
		}

		convGroup := apiGroup.Group("/conversations")
		convGroup.Use(auth)
		{
			convGroup.GET("/:id/messages", group.ConversationHandler.ListMessages)
			convGroup.POST("/:id/messages", group.ConversationHandler.SendMessage)
			convGroup.POST("/:id/images", group.ConversationHandler.SendImage)
			convGroup.POST("/:id/read", group.ConversationHandler.MarkRead)
			convGroup.PUT("/:id/status", group.ConversationHandler.UpdateStatus)
			convGroup.PUT("/:id/custom-data", group.ConversationHandler.UpdateCustomData)
		}

		planGroup := apiGroup.Group("")
		planGroup.Use(auth)
		{
			planGroup.GET("/plans", group.BillingHandler.PlanTable)
			planGroup.POST("/billing/upgrade-requests", group.BillingHandler.RequestUpgrade)
		}

		// 需要登录 & 拥有运营角色
		adminGroup := apiGroup.Group("")
		adminGroup.Use(auth, operator)
		{
			adminGroup.PUT("/plans/:tier", group.BillingHandler.UpdatePlan)
			adminGroup.GET("/admin/upgrade-requests", group.BillingHandler.ListUpgradeRequests)
			adminGroup.PUT("/admin/upgrade-requests/:id", group.BillingHandler.ReviewUpgrade)
			adminGroup.DELETE("/admin/workspaces/:id", group.BillingHandler.DeleteWorkspace)
		}

		analyticsGroup := apiGroup.Group("/analytics")
		{
			analyticsGroup.POST("/track", group.AnalyticsHandler.Track)
			analyticsGroup.GET("/track", group.AnalyticsHandler.TrackStatus)
			analyticsGroup.GET("/:workspace_id", auth, group.AnalyticsHandler.Rollup)
		}

		// 挂件公开接口；访客接口凭开启会话时签发的 token
		widgetGroup := apiGroup.Group("/widget/:workspace_id")
		{
			widgetGroup.GET("/config", group.WidgetHandler.Config)
			widgetGroup.POST("/conversations", group.WidgetHandler.StartConversation)
			widgetGroup.GET("/realtime", visitor, group.RealtimeHandler.Widget)

			visitorGroup := widgetGroup.Group("/conversation")
			visitorGroup.Use(visitor)
			{
				visitorGroup.GET("/messages", group.WidgetHandler.ListMessages)
				visitorGroup.POST("/messages", group.WidgetHandler.SendMessage)
				visitorGroup.POST("/images", group.WidgetHandler.SendImage)
				visitorGroup.POST("/read", group.WidgetHandler.MarkRead)
				visitorGroup.POST("/end", group.WidgetHandler.End)
			}
		}
	}

	return r
}
