package models

import (
	"time"
)

// CommissionRecord 佣金记录表
// 每笔交易只产生一条记录；状态只能通过审批状态机推进，记录本身从不删除。
type CommissionRecord struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                                    // 主键
	DealID           uint       `gorm:"not null;uniqueIndex" json:"deal_id"`                                     // 关联交易ID
	CompanyID        uint       `gorm:"not null;index" json:"company_id"`                                        // 所属公司ID
	SalesRepID       uint       `gorm:"not null;index" json:"sales_rep_id"`                                      // 销售人员ID
	Status           string     `gorm:"type:varchar(32);not null;index" json:"status"`                           // 审批状态
	CommissionAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`          // 佣金金额
	OriginalAmount   *Money     `gorm:"type:decimal(20,2)" json:"original_amount,omitempty"`                     // 调整前金额（仅调整后有值）
	AdjustmentReason string     `gorm:"type:varchar(255)" json:"adjustment_reason,omitempty"`                    // 调整原因
	AdjustedBy       *uint      `json:"adjusted_by,omitempty"`                                                   // 调整人
	AdjustedAt       *time.Time `json:"adjusted_at,omitempty"`                                                   // 调整时间
	AppliedRules     JSONArray  `gorm:"type:json" json:"applied_rules"`                                          // 应用规则轨迹（有序）
	PeriodStart      time.Time  `gorm:"index" json:"period_start"`                                               // 佣金周期起（含）
	PeriodEnd        time.Time  `gorm:"index" json:"period_end"`                                                 // 佣金周期止（不含）
	CalculatedAt     time.Time  `gorm:"index" json:"calculated_at"`                                              // 计算时间
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`                                                   // 提交复核时间
	ReviewedBy       *uint      `json:"reviewed_by,omitempty"`                                                   // 复核提交人
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`                                                   // 审批通过时间
	ApprovedBy       *uint      `json:"approved_by,omitempty"`                                                   // 审批人
	RejectedAt       *time.Time `json:"rejected_at,omitempty"`                                                   // 驳回时间
	RejectedBy       *uint      `json:"rejected_by,omitempty"`                                                   // 驳回人
	RejectionReason  string     `gorm:"type:varchar(255)" json:"rejection_reason,omitempty"`                     // 驳回原因
	PaidAt           *time.Time `json:"paid_at,omitempty"`                                                       // 发放时间
	PaidBy           *uint      `json:"paid_by,omitempty"`                                                       // 发放操作人
	PaymentReference string     `gorm:"type:varchar(100)" json:"payment_reference,omitempty"`                    // 发放凭证号
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                                 // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                                              // 更新时间

	Deal     Deal     `gorm:"foreignKey:DealID" json:"deal,omitempty"`          // 关联交易
	SalesRep SalesRep `gorm:"foreignKey:SalesRepID" json:"sales_rep,omitempty"` // 销售人员
}

// TableName 指定表名
func (CommissionRecord) TableName() string {
	return "commission_records"
}
