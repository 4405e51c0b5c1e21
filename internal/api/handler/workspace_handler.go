package handler

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/api/middleware"
	"Helpdock/internal/pkg/response"
	"Helpdock/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type WorkspaceHandler struct {
	workspaceSvc service.WorkspaceService
	convSvc      service.ConversationService
}

func NewWorkspaceHandler(workspaceSvc service.WorkspaceService, convSvc service.ConversationService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceSvc: workspaceSvc, convSvc: convSvc}
}

func (s *WorkspaceHandler) List(c *gin.Context) {
	res, err := s.workspaceSvc.List(c, middleware.GetViewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Create 配额不足时仍返回成功，data.limit 说明原因
func (s *WorkspaceHandler) Create(c *gin.Context) {
	var req dto.CreateWorkspaceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.workspaceSvc.Create(c, middleware.GetViewer(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *WorkspaceHandler) Get(c *gin.Context) {
	res, err := s.workspaceSvc.Get(c, middleware.GetViewer(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *WorkspaceHandler) Update(c *gin.Context) {
	var req dto.UpdateWorkspaceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.workspaceSvc.Update(c, middleware.GetViewer(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *WorkspaceHandler) Delete(c *gin.Context) {
	if err := s.workspaceSvc.Delete(c, middleware.GetViewer(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// UploadLogo multipart 字段 file
func (s *WorkspaceHandler) UploadLogo(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	res, err := s.workspaceSvc.UploadLogo(c, middleware.GetViewer(c), c.Param("id"),
		file, fileHeader.Size, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *WorkspaceHandler) AddMember(c *gin.Context) {
	var req dto.MemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	limit, err := s.workspaceSvc.AddMember(c, middleware.GetViewer(c), c.Param("id"), req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	if limit != nil {
		response.Success(c, gin.H{"limit": limit})
		return
	}
	response.Success(c, nil)
}

func (s *WorkspaceHandler) RemoveMember(c *gin.Context) {
	var req dto.MemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := s.workspaceSvc.RemoveMember(c, middleware.GetViewer(c), c.Param("id"), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *WorkspaceHandler) ListFields(c *gin.Context) {
	res, err := s.workspaceSvc.ListFields(c, middleware.GetViewer(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *WorkspaceHandler) SaveField(c *gin.Context) {
	var req dto.CustomFieldReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.workspaceSvc.SaveField(c, middleware.GetViewer(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// DeleteField 只隐藏定义，已写入的值保留
func (s *WorkspaceHandler) DeleteField(c *gin.Context) {
	if err := s.workspaceSvc.DeleteField(c, middleware.GetViewer(c), c.Param("id"), c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ListConversations 最近更新在前，超出套餐的标记 locked
func (s *WorkspaceHandler) ListConversations(c *gin.Context) {
	res, err := s.convSvc.ListForWorkspace(c, middleware.GetViewer(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *WorkspaceHandler) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	res, err := s.workspaceSvc.SearchMessages(c, middleware.GetViewer(c), c.Param("id"), c.Query("q"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
