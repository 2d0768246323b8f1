package admin

import (
	"strconv"

	handlershared "github.com/commission-next/internal/http/handlers/shared"
	"github.com/commission-next/internal/http/response"
	"github.com/commission-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListDeals 获取成交单列表
func (h *Handler) ListDeals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	deals, total, err := h.DealService.ListDeals(repositoryDealFilter(c, page, pageSize))
	if err != nil {
		respondError(c, response.CodeInternal, "成交单列表获取失败", err)
		return
	}
	response.SuccessWithPage(c, deals, response.NewPagination(page, pageSize, total))
}

// GetDeal 获取成交单详情
func (h *Handler) GetDeal(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	deal, err := h.DealService.GetDeal(id)
	if err != nil {
		respondServiceError(c, err, "成交单获取失败")
		return
	}
	response.Success(c, deal)
}

// CreateDeal 录入成交单（赢单自动触发佣金计算）
func (h *Handler) CreateDeal(c *gin.Context) {
	var req service.DealInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	deal, err := h.DealService.CreateDeal(req)
	if err != nil {
		respondServiceError(c, err, "成交单创建失败")
		return
	}
	response.Success(c, deal)
}
