package public

import (
	"errors"

	handlershared "github.com/commission-next/internal/http/handlers/shared"
	"github.com/commission-next/internal/http/response"
	"github.com/commission-next/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// respondServiceError 公开接口的业务错误映射
func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, service.ErrSalesRepNotFound):
		respondError(c, response.CodeNotFound, "销售代表不存在", nil)
	case errors.Is(err, service.ErrSalesRepInactive):
		respondError(c, response.CodeBadRequest, "销售代表已停用", nil)
	case errors.Is(err, service.ErrDealNoExists):
		respondError(c, response.CodeConflict, "成交单编号已存在", nil)
	case errors.Is(err, service.ErrDealNotClosedWon):
		respondError(c, response.CodeBadRequest, "成交单阶段不合法", nil)
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "记录不存在", nil)
	default:
		respondError(c, response.CodeInternal, fallbackMsg, err)
	}
}
