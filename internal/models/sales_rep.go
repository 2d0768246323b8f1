package models

import (
	"time"

	"gorm.io/gorm"
)

// SalesRep 销售人员表（佣金归属主体，配额用于计算达成率）
type SalesRep struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                      // 主键
	CompanyID   uint           `gorm:"not null;index" json:"company_id"`                          // 所属公司ID
	Name        string         `gorm:"type:varchar(100);not null" json:"name"`                    // 姓名
	Email       string         `gorm:"uniqueIndex;not null" json:"email"`                         // 邮箱
	QuotaAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"quota_amount"` // 周期配额金额
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`                       // 是否在职启用
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (SalesRep) TableName() string {
	return "sales_reps"
}
