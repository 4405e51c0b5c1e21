package handler

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/api/middleware"
	"Helpdock/internal/pkg/response"
	"Helpdock/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

// BillingHandler 套餐、升级申请与运营后台
type BillingHandler struct {
	planSvc      service.PlanService
	upgradeSvc   service.UpgradeService
	workspaceSvc service.WorkspaceService
}

func NewBillingHandler(planSvc service.PlanService, upgradeSvc service.UpgradeService, workspaceSvc service.WorkspaceService) *BillingHandler {
	return &BillingHandler{planSvc: planSvc, upgradeSvc: upgradeSvc, workspaceSvc: workspaceSvc}
}

// Me 当前租户、套餐额度与是否有待审核申请
func (s *BillingHandler) Me(c *gin.Context) {
	res, err := s.upgradeSvc.Me(c, middleware.GetViewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *BillingHandler) PlanTable(c *gin.Context) {
	res, err := s.planSvc.GetPlanTable(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *BillingHandler) UpdatePlan(c *gin.Context) {
	var req dto.PlanLimitsPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.planSvc.UpdatePlan(c, c.Param("tier"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *BillingHandler) RequestUpgrade(c *gin.Context) {
	var req dto.UpgradeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.upgradeSvc.Request(c, middleware.GetViewer(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *BillingHandler) ListUpgradeRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	res, err := s.upgradeSvc.List(c, c.Query("status"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *BillingHandler) ReviewUpgrade(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var req dto.ReviewUpgradeReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	res, err := s.upgradeSvc.Review(c, middleware.GetViewer(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// DeleteWorkspace 运营删除任意工作区
func (s *BillingHandler) DeleteWorkspace(c *gin.Context) {
	if err := s.workspaceSvc.Delete(c, middleware.GetViewer(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
