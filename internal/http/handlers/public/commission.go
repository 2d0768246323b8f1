package public

import (
	"strconv"

	handlershared "github.com/commission-next/internal/http/handlers/shared"
	"github.com/commission-next/internal/http/response"
	"github.com/commission-next/internal/repository"
	"github.com/commission-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PreviewCommission 佣金试算，不产生任何写入
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

// ListRepCommissions 查询指定销售代表的佣金记录
func (h *Handler) ListRepCommissions(c *gin.Context) {
	repID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || repID == 0 {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return
	}

	rep, err := h.SalesRepService.GetSalesRep(uint(repID))
	if err != nil {
		respondServiceError(c, err, "销售代表查询失败")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	records, total, err := h.CommissionService.ListRecords(repository.CommissionListFilter{
		Page:       page,
		PageSize:   pageSize,
		CompanyID:  rep.CompanyID,
		SalesRepID: rep.ID,
		Status:     c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "佣金记录查询失败", err)
		return
	}
	response.SuccessWithPage(c, records, response.NewPagination(page, pageSize, total))
}
