package service

import "errors"

// 服务层哨兵错误，处理器据此映射 HTTP 状态码与提示文案。
var (
	ErrNotFound           = errors.New("记录不存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidPassword    = errors.New("原密码错误")
	ErrWeakPassword       = errors.New("密码强度不足")
	ErrCaptchaRequired    = errors.New("需要验证码")
	ErrCaptchaInvalid     = errors.New("验证码错误")

	ErrSalesRepNotFound   = errors.New("销售代表不存在")
	ErrSalesRepInactive   = errors.New("销售代表已停用")
	ErrDealNotFound       = errors.New("成交单不存在")
	ErrDealNoExists       = errors.New("成交单号已存在")
	ErrDealNotClosedWon   = errors.New("成交单未赢单，无法计算佣金")
	ErrCommissionExists   = errors.New("该成交单已生成佣金记录")
	ErrCommissionNotFound = errors.New("佣金记录不存在")

	ErrRuleNotFound      = errors.New("佣金规则不存在")
	ErrRuleConfigInvalid = errors.New("规则配置不合法")
	ErrRulePriorityRange = errors.New("规则优先级超出允许区间")
	ErrRuleTiersRequired = errors.New("阶梯规则必须至少配置一个阶梯")
	ErrRuleTiersInvalid  = errors.New("阶梯配置不合法")
	ErrNoApplicableRules = errors.New("没有可应用的佣金规则")

	ErrConcurrentUpdate         = errors.New("记录已被其他操作修改，请刷新后重试")
	ErrAdjustmentReasonTooShort = errors.New("调整原因不足最小长度")
	ErrAdjustmentAmountInvalid  = errors.New("调整金额不合法")
	ErrBulkNothingToApprove     = errors.New("批量审批列表为空")
	ErrBulkPrecheckFailed       = errors.New("批量审批预校验失败")
)

// IllegalTransitionError 非法状态流转
type IllegalTransitionError struct {
	Action string
	Status string
}

func (e *IllegalTransitionError) Error() string {
	return "cannot " + e.Action + " in " + e.Status
}
