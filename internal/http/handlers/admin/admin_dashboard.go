package admin

import (
	"github.com/commission-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetDashboard 获取经营看板快照
func (h *Handler) GetDashboard(c *gin.Context) {
	rangeKey := c.DefaultQuery("range", "30d")
	snapshot, err := h.DashboardService.GetSnapshot(c.Request.Context(), queryCompanyID(c), rangeKey)
	if err != nil {
		respondError(c, response.CodeInternal, "看板数据获取失败", err)
		return
	}
	response.Success(c, snapshot)
}
