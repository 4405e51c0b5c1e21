package handler

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/api/middleware"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/response"
	"Helpdock/internal/service"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 控制台侧的会话操作，发送方固定为 admin
type ConversationHandler struct {
	convSvc service.ConversationService
}

func NewConversationHandler(convSvc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convSvc: convSvc}
}

// open 鉴权并检查可见客户数；被锁定时已写出 limit 响应，返回 nil
func (s *ConversationHandler) open(c *gin.Context) *mongo.Conversation {
	conv, limit, err := s.convSvc.AuthorizeAdmin(c, middleware.GetViewer(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return nil
	}
	if limit != nil {
		response.Success(c, gin.H{"limit": limit})
		return nil
	}
	return conv
}

func (s *ConversationHandler) ListMessages(c *gin.Context) {
	conv := s.open(c)
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

func (s *ConversationHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	conv := s.open(c)
	if conv == nil {
		return
	}
	res, err := s.convSvc.SendMessage(c, conv, consts.RoleAdmin, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ConversationHandler) SendImage(c *gin.Context) {
	conv := s.open(c)
	if conv == nil {
		return
	}
	res, err := s.convSvc.SendImage(c, conv, consts.RoleAdmin, formFileOpener(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ConversationHandler) MarkRead(c *gin.Context) {
	conv := s.open(c)
	if conv == nil {
		return
	}
	n, err := s.convSvc.MarkRead(c, conv, consts.RoleAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.MarkReadResp{Cleared: n})
}

func (s *ConversationHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	conv := s.open(c)
	if conv == nil {
		return
	}
	res, err := s.convSvc.SetStatus(c, conv, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *ConversationHandler) UpdateCustomData(c *gin.Context) {
	var req dto.CustomDataReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	conv := s.open(c)
	if conv == nil {
		return
	}
	res, err := s.convSvc.UpdateCustomData(c, conv, req.Data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// formFileOpener 延迟到套餐检查通过后才解析 multipart
func formFileOpener(c *gin.Context) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return nil, service.ErrParamInvalid
		}
		return openImage(fileHeader)
	}
}

func openImage(fileHeader *multipart.FileHeader) (io.ReadCloser, error) {
	if fileHeader.Size > maxImageBytes {
		return nil, service.ErrFileTooLarge
	}
	return fileHeader.Open()
}
