package handler

import (
	"Helpdock/internal/api/config"
	"Helpdock/internal/api/dto"
	"Helpdock/internal/api/middleware"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/response"
	"Helpdock/internal/pkg/widget"
	"Helpdock/internal/service"
	"bytes"
	"errors"
	log "log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// WidgetHandler 挂件侧接口：嵌入脚本、iframe 页面、访客会话
type WidgetHandler struct {
	workspaceSvc service.WorkspaceService
	convSvc      service.ConversationService
	cfg          config.WidgetConfig
}

func NewWidgetHandler(workspaceSvc service.WorkspaceService, convSvc service.ConversationService, cfg config.WidgetConfig) *WidgetHandler {
	return &WidgetHandler{workspaceSvc: workspaceSvc, convSvc: convSvc, cfg: cfg}
}

// Loader 嵌入脚本，?variant=compact 使用窄版尺寸
func (s *WidgetHandler) Loader(c *gin.Context) {
	var buf bytes.Buffer
	err := widget.RenderLoader(&buf, widget.LoaderConfig{
		BaseURL:         c.GetString(consts.BaseURLKey),
		WebsiteIDGlobal: s.cfg.WebsiteIDGlobal,
		UserGlobal:      s.cfg.UserGlobal,
		Variant:         c.Query("variant"),
	})
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, widget.ErrInvalidVariant) {
			log.ErrorContext(c, "render widget loader failed", "err", err)
			status = http.StatusInternalServerError
		}
		c.Data(status, "application/javascript; charset=utf-8", []byte("/* "+err.Error()+" */\n"))
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", buf.Bytes())
}

// Frame iframe 页面
func (s *WidgetHandler) Frame(c *gin.Context) {
	cfg, err := s.workspaceSvc.PublicConfig(c, c.Param("workspace_id"))
	if err != nil {
		if errors.Is(err, service.ErrWorkspaceNotFound) {
			c.String(http.StatusNotFound, "workspace not found")
			return
		}
		log.ErrorContext(c, "load widget config failed", "err", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	var buf bytes.Buffer
	err = widget.RenderFrame(&buf, widget.FrameData{
		WorkspaceID:       cfg.WorkspaceID,
		Name:              cfg.Name,
		BrandColor:        cfg.BrandColor,
		DisplayName:       cfg.DisplayName,
		LogoURL:           cfg.LogoURL,
		APIBase:           c.GetString(consts.BaseURLKey) + "/api/widget/" + cfg.WorkspaceID,
		VisitorName:       c.Query("name"),
		VisitorEmail:      c.Query("email"),
		VisitorExternalID: c.Query("externalId"),
	})
	if err != nil {
		log.ErrorContext(c, "render widget frame failed", "err", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *WidgetHandler) Config(c *gin.Context) {
	res, err := s.workspaceSvc.PublicConfig(c, c.Param("workspace_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// StartConversation 开启或续接会话，返回访客 Token
func (s *WidgetHandler) StartConversation(c *gin.Context) {
	var req dto.StartConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.convSvc.Start(c, c.Param("workspace_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *WidgetHandler) conversation(c *gin.Context) *mongo.Conversation {
	claims := middleware.GetVisitor(c)
	conv, err := s.convSvc.AuthorizeVisitor(c, claims.WorkspaceID, claims.ConversationID)
	if err != nil {
		response.Error(c, err)
		return nil
	}
	return conv
}

func (s *WidgetHandler) ListMessages(c *gin.Context) {
	conv := s.conversation(c)
	if conv == nil {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	res, err := s.convSvc.ListMessages(c, conv, c.Query("before"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *WidgetHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	conv := s.conversation(c)
	if conv == nil {
		return
	}
	res, err := s.convSvc.SendMessage(c, conv, consts.RoleUser, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SendImage 套餐不允许时 data.limit.reason 为 upload，请求体不会被读取
func (s *WidgetHandler) SendImage(c *gin.Context) {
	conv := s.conversation(c)
	if conv == nil {
		return
	}
	res, err := s.convSvc.SendImage(c, conv, consts.RoleUser, formFileOpener(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *WidgetHandler) MarkRead(c *gin.Context) {
	conv := s.conversation(c)
	if conv == nil {
		return
	}
	n, err := s.convSvc.MarkRead(c, conv, consts.RoleUser)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.MarkReadResp{Cleared: n})
}

// End 访客结束会话，只关闭，不改变解决状态
func (s *WidgetHandler) End(c *gin.Context) {
	conv := s.conversation(c)
	if conv == nil {
		return
	}
	closed := false
	res, err := s.convSvc.SetStatus(c, conv, &dto.UpdateStatusReq{IsOpen: &closed})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
