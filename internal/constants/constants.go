package constants

// 佣金记录状态常量
const (
	CommissionStatusCalculated    = "calculated"
	CommissionStatusPendingReview = "pending_review"
	CommissionStatusApproved      = "approved"
	CommissionStatusRejected      = "rejected"
	CommissionStatusPaid          = "paid"
)

// 审批动作常量
const (
	ApprovalActionCalculate        = "calculate"
	ApprovalActionReview           = "review"
	ApprovalActionApprove          = "approve"
	ApprovalActionReject           = "reject"
	ApprovalActionPay              = "pay"
	ApprovalActionAdjustAndApprove = "adjust_and_approve"
)

// 规则类型常量（内置计算策略）
const (
	RuleTypeBaseRate        = "base_rate"
	RuleTypeTiered          = "tiered"
	RuleTypeBonus           = "bonus"
	RuleTypeAccelerator     = "accelerator"
	RuleTypeDecelerator     = "decelerator"
	RuleTypeProductRate     = "product_rate"
	RuleTypePerformanceGate = "performance_gate"
	RuleTypeTeamSplit       = "team_split"
)

// 规则合并策略常量
const (
	CalculationTypeCumulative = "cumulative"
	CalculationTypeReplace    = "replace"
	CalculationTypeMax        = "max"
)

// 阶梯类型常量
const (
	TierTypeGraduated  = "graduated"
	TierTypeCliff      = "cliff"
	TierTypeCumulative = "cumulative"
)

// 交易阶段常量
const (
	DealStageClosedWon  = "closed_won"
	DealStageClosedLost = "closed_lost"
)

// 默认公司（单租户部署时的兜底租户）
const (
	DefaultCompanyID uint = 1
)

// 规则优先级边界
const (
	RulePriorityMin = 1
	RulePriorityMax = 1000
)

// 审批备注/调整原因长度限制
const (
	AdjustmentReasonMinLength = 10
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskCommissionCalculate = "commission:calculate"
	TaskCommissionNotify    = "commission:status_notify"
)
