package models

import (
	"time"

	"gorm.io/gorm"
)

// Deal 交易表（佣金计算的输入，计算期间只读）
type Deal struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                 // 主键
	DealNo          string         `gorm:"uniqueIndex;not null" json:"deal_no"`                  // 交易编号
	CompanyID       uint           `gorm:"not null;index" json:"company_id"`                     // 所属公司ID
	SalesRepID      uint           `gorm:"not null;index" json:"sales_rep_id"`                   // 销售人员ID
	Amount          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`  // 成交金额
	ProductType     string         `gorm:"type:varchar(50);index" json:"product_type"`           // 产品类型
	ProductCategory string         `gorm:"type:varchar(50);index" json:"product_category"`       // 产品类目
	Stage           string         `gorm:"type:varchar(32);not null;index" json:"stage"`         // 交易阶段
	CloseDate       *time.Time     `gorm:"index" json:"close_date"`                              // 成交日期
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                           // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间

	SalesRep SalesRep `gorm:"foreignKey:SalesRepID" json:"sales_rep,omitempty"` // 销售人员
}

// TableName 指定表名
func (Deal) TableName() string {
	return "deals"
}
