package public

import (
	"github.com/commission-next/internal/http/response"
	"github.com/commission-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateDeal 外部系统录入成交单，赢单自动触发佣金计算
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
