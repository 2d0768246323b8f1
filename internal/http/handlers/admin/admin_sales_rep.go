package admin

import (
	"strconv"

	handlershared "github.com/commission-next/internal/http/handlers/shared"
	"github.com/commission-next/internal/http/response"
	"github.com/commission-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListSalesReps 获取销售代表列表
func (h *Handler) ListSalesReps(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repositorySalesRepFilter(c, page, pageSize)
	reps, total, err := h.SalesRepService.ListSalesReps(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "销售代表列表获取失败", err)
		return
	}
	response.SuccessWithPage(c, reps, response.NewPagination(page, pageSize, total))
}

// GetSalesRep 获取销售代表详情
func (h *Handler) GetSalesRep(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rep, err := h.SalesRepService.GetSalesRep(id)
	if err != nil {
		respondServiceError(c, err, "销售代表获取失败")
		return
	}
	response.Success(c, rep)
}

// CreateSalesRep 创建销售代表
func (h *Handler) CreateSalesRep(c *gin.Context) {
	var req service.SalesRepInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	rep, err := h.SalesRepService.CreateSalesRep(req)
	if err != nil {
		respondServiceError(c, err, "销售代表创建失败")
		return
	}
	response.Success(c, rep)
}

// UpdateSalesRep 更新销售代表
func (h *Handler) UpdateSalesRep(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.SalesRepInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	rep, err := h.SalesRepService.UpdateSalesRep(id, req)
	if err != nil {
		respondServiceError(c, err, "销售代表更新失败")
		return
	}
	response.Success(c, rep)
}
