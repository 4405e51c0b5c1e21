package handler

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/api/middleware"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/service"
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter 上报限流
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// AnalyticsHandler 上报与读取。对外契约是裸 JSON 与真实 HTTP 状态码，不走统一响应体
type AnalyticsHandler struct {
	analyticsSvc service.AnalyticsService
	workspaceSvc service.WorkspaceService
	limiter      RateLimiter
	rateLimit    int
	rateWindow   time.Duration
}

func NewAnalyticsHandler(
	analyticsSvc service.AnalyticsService,
	workspaceSvc service.WorkspaceService,
	limiter RateLimiter,
	rateLimit int,
	rateWindow time.Duration,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsSvc: analyticsSvc,
		workspaceSvc: workspaceSvc,
		limiter:      limiter,
		rateLimit:    rateLimit,
		rateWindow:   rateWindow,
	}
}

// Track POST /api/analytics/track
func (s *AnalyticsHandler) Track(c *gin.Context) {
	var req dto.TrackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	if req.Type == "" || req.WebsiteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: type, websiteId"})
		return
	}

	if !s.allow(c, req.WebsiteID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		return
	}

	err := s.analyticsSvc.Track(c, &req, dto.TrackContext{
		UserAgent: c.GetHeader("User-Agent"),
		Country:   firstHeader(c, "CF-IPCountry", "X-Vercel-IP-Country"),
	})
	if err != nil {
		if errors.Is(err, service.ErrParamInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported event type"})
			return
		}
		log.ErrorContext(c, "track analytics event failed", "website_id", req.WebsiteID, "type", req.Type, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to track event", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TrackStatus GET /api/analytics/track，探活用
func (s *AnalyticsHandler) TrackStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "endpoint": "analytics/track"})
}

// Rollup GET /api/analytics/:workspace_id?days=7
func (s *AnalyticsHandler) Rollup(c *gin.Context) {
	wsID := strings.TrimSpace(c.Param("workspace_id"))
	if wsID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing workspaceId"})
		return
	}
	if _, err := s.workspaceSvc.Authorize(c, middleware.GetViewer(c), wsID, service.AccessMember); err != nil {
		switch {
		case errors.Is(err, service.ErrWorkspaceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
		case errors.Is(err, service.ForbiddenError):
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		default:
			log.ErrorContext(c, "authorize analytics read failed", "workspace_id", wsID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analytics"})
		}
		return
	}

	days, _ := strconv.Atoi(c.Query("days"))
	res, err := s.analyticsSvc.Rollup(c, wsID, days)
	if err != nil {
		log.ErrorContext(c, "analytics rollup failed", "workspace_id", wsID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analytics", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// allow 限流器故障时放行，统计数据不值得因此丢失
func (s *AnalyticsHandler) allow(c *gin.Context, websiteID string) bool {
	if s.limiter == nil || s.rateLimit <= 0 {
		return true
	}
	key := consts.RateLimitTrackKey + websiteID + ":" + c.ClientIP()
	ok, err := s.limiter.Allow(c, key, s.rateLimit, s.rateWindow)
	if err != nil {
		log.WarnContext(c, "analytics rate limiter unavailable", "err", err)
		return true
	}
	return ok
}

func firstHeader(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(c.GetHeader(n)); v != "" {
			return v
		}
	}
	return ""
}
