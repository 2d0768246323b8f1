package admin

import (
	"strconv"

	handlershared "github.com/commission-next/internal/http/handlers/shared"
	"github.com/commission-next/internal/http/response"
	"github.com/commission-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListCommissions 获取佣金记录列表
func (h *Handler) ListCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	records, total, err := h.CommissionService.ListRecords(repositoryCommissionFilter(c, page, pageSize))
	if err != nil {
		respondError(c, response.CodeInternal, "佣金记录列表获取失败", err)
		return
	}
	response.SuccessWithPage(c, records, response.NewPagination(page, pageSize, total))
}

// GetCommission 获取佣金记录详情
func (h *Handler) GetCommission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	record, err := h.CommissionService.GetRecord(id)
	if err != nil {
		respondServiceError(c, err, "佣金记录获取失败")
		return
	}
	response.Success(c, record)
}

// ListCommissionEvents 获取佣金记录的审批事件链
func (h *Handler) ListCommissionEvents(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	events, err := h.CommissionService.ListEvents(id)
	if err != nil {
		respondServiceError(c, err, "审批事件获取失败")
		return
	}
	response.Success(c, events)
}

// CalculateCommissionRequest 手工触发计算请求
type CalculateCommissionRequest struct {
	DealID uint `json:"deal_id" binding:"required"`
}

// CalculateCommission 手工触发佣金计算
func (h *Handler) CalculateCommission(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req CalculateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	record, err := h.CommissionService.CalculateForDeal(req.DealID, adminID)
	if err != nil {
		respondServiceError(c, err, "佣金计算失败")
		return
	}
	response.Success(c, record)
}

// PreviewCommission 佣金试算（不落库）
func (h *Handler) PreviewCommission(c *gin.Context) {
	var req service.PreviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	result, err := h.CommissionService.Preview(req)
	if err != nil {
		respondServiceError(c, err, "佣金试算失败")
		return
	}
	response.Success(c, result)
}
