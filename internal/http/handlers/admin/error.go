package admin

import (
	"errors"

	handlershared "github.com/commission-next/internal/http/handlers/shared"
	"github.com/commission-next/internal/http/response"
	"github.com/commission-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

var commonServiceErrorRules = []mappedHandlerError{
	{target: service.ErrSalesRepNotFound, code: response.CodeNotFound, msg: "销售代表不存在"},
	{target: service.ErrSalesRepInactive, code: response.CodeBadRequest, msg: "销售代表已停用"},
	{target: service.ErrDealNotFound, code: response.CodeNotFound, msg: "成交单不存在"},
	{target: service.ErrDealNoExists, code: response.CodeConflict, msg: "成交单编号已存在"},
	{target: service.ErrDealNotClosedWon, code: response.CodeBadRequest, msg: "成交单阶段不支持该操作"},
	{target: service.ErrCommissionNotFound, code: response.CodeNotFound, msg: "佣金记录不存在"},
	{target: service.ErrCommissionExists, code: response.CodeConflict, msg: "该成交单已生成佣金记录"},
	{target: service.ErrRuleNotFound, code: response.CodeNotFound, msg: "佣金规则不存在"},
	{target: service.ErrRulePriorityRange, code: response.CodeBadRequest, msg: "规则优先级超出允许范围"},
	{target: service.ErrRuleTiersRequired, code: response.CodeBadRequest, msg: "阶梯规则必须配置阶梯"},
	{target: service.ErrRuleTiersInvalid, code: response.CodeBadRequest, msg: "阶梯配置不合法"},
	{target: service.ErrConcurrentUpdate, code: response.CodeConflict, msg: "记录已被其他操作修改，请刷新后重试"},
	{target: service.ErrAdjustmentReasonTooShort, code: response.CodeBadRequest, msg: "调整原因长度不足"},
	{target: service.ErrAdjustmentAmountInvalid, code: response.CodeBadRequest, msg: "调整金额不合法"},
	{target: service.ErrBulkNothingToApprove, code: response.CodeBadRequest, msg: "批量审批列表为空"},
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "记录不存在"},
}

// respondServiceError 把业务错误映射为统一接口响应。
// 非法状态流转与批量预检失败携带细节数据返回。
func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	var transitionErr *service.IllegalTransitionError
	if errors.As(err, &transitionErr) {
		handlershared.RespondErrorWithData(c, response.CodeConflict, "当前状态不允许该操作", gin.H{
			"action": transitionErr.Action,
			"status": transitionErr.Status,
		}, nil)
		return
	}

	var precheckErr *service.BulkPrecheckError
	if errors.As(err, &precheckErr) {
		handlershared.RespondErrorWithData(c, response.CodeBadRequest, "批量审批预检失败，未执行任何变更", gin.H{
			"issues": precheckErr.Issues,
		}, nil)
		return
	}

	if errors.Is(err, service.ErrRuleConfigInvalid) {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}

	for _, rule := range commonServiceErrorRules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, response.CodeInternal, fallbackMsg, err)
}
