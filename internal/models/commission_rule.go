package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionRule 佣金规则表
// Priority 越小越先执行；EffectiveFrom/EffectiveTo 为左闭右开有效期窗口。
type CommissionRule struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                          // 主键
	CompanyID       uint           `gorm:"not null;index" json:"company_id"`                              // 所属公司ID
	Name            string         `gorm:"type:varchar(100);not null" json:"name"`                        // 规则名称
	RuleType        string         `gorm:"type:varchar(32);not null;index" json:"rule_type"`              // 策略类型
	Priority        int            `gorm:"not null;default:100;index" json:"priority"`                    // 执行优先级（小者先行）
	Config          JSON           `gorm:"type:json" json:"config"`                                       // 策略参数
	Conditions      JSON           `gorm:"type:json" json:"conditions,omitempty"`                         // 条件树（all/any），空则无条件生效
	CalculationType string         `gorm:"type:varchar(20);not null;default:'cumulative'" json:"calculation_type"` // 合并策略
	EffectiveFrom   *time.Time     `gorm:"index" json:"effective_from"`                                   // 生效起（含）
	EffectiveTo     *time.Time     `gorm:"index" json:"effective_to,omitempty"`                           // 生效止（不含，空为长期）
	IsActive        bool           `gorm:"default:true;index" json:"is_active"`                           // 是否启用
	StopsProcessing bool           `gorm:"not null;default:false" json:"stops_processing"`                // 命中后终止流水线
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                                    // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	Tiers []RuleTier `gorm:"foreignKey:RuleID" json:"tiers,omitempty"` // 阶梯（仅 tiered 规则）
}

// TableName 指定表名
func (CommissionRule) TableName() string {
	return "commission_rules"
}

// RuleTier 佣金规则阶梯表
// 费率保留 4 位小数，阈值按金额口径保留 2 位。
type RuleTier struct {
	ID           uint            `gorm:"primarykey" json:"id"`                                       // 主键
	RuleID       uint            `gorm:"not null;index" json:"rule_id"`                              // 所属规则ID
	TierNumber   int             `gorm:"not null" json:"tier_number"`                                // 阶梯序号（升序评估）
	ThresholdMin Money           `gorm:"type:decimal(20,2);not null;default:0" json:"threshold_min"` // 阶梯下限
	ThresholdMax *Money          `gorm:"type:decimal(20,2)" json:"threshold_max,omitempty"`          // 阶梯上限（空为开放区间）
	Rate         decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"rate"`          // 阶梯费率
	TierType     string          `gorm:"type:varchar(20);not null;default:'graduated'" json:"tier_type"` // graduated/cliff/cumulative
}

// TableName 指定表名
func (RuleTier) TableName() string {
	return "commission_rule_tiers"
}
