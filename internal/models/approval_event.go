package models

import (
	"time"
)

// ApprovalEvent 审批事件表
// 只追加；每次成功的状态迁移写入一条，PreviousStatus 必须等于迁移前的记录状态。
type ApprovalEvent struct {
	ID             uint      `gorm:"primarykey" json:"id"`                              // 主键
	CommissionID   uint      `gorm:"not null;index" json:"commission_id"`               // 佣金记录ID
	Action         string    `gorm:"type:varchar(32);not null;index" json:"action"`     // 审批动作
	PerformedBy    uint      `gorm:"not null;index" json:"performed_by"`                // 操作人（0 为系统）
	PreviousStatus string    `gorm:"type:varchar(32);not null" json:"previous_status"`  // 迁移前状态（初始事件为空）
	NewStatus      string    `gorm:"type:varchar(32);not null" json:"new_status"`       // 迁移后状态
	Notes          string    `gorm:"type:varchar(500)" json:"notes,omitempty"`          // 备注
	Metadata       JSON      `gorm:"type:json" json:"metadata,omitempty"`               // 附加信息
	PerformedAt    time.Time `gorm:"not null;index" json:"performed_at"`                // 操作时间
}

// TableName 指定表名
func (ApprovalEvent) TableName() string {
	return "approval_events"
}
