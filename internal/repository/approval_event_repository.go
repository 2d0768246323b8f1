package repository

import (
	"github.com/commission-next/internal/models"

	"gorm.io/gorm"
)

// ApprovalEventRepository 审批事件数据访问接口
// 事件表只追加不修改，构成每条佣金的完整审计链。
type ApprovalEventRepository interface {
	Create(event *models.ApprovalEvent) error
	ListByCommission(commissionID uint) ([]models.ApprovalEvent, error)
	WithTx(tx *gorm.DB) *GormApprovalEventRepository
}

// GormApprovalEventRepository GORM 实现
type GormApprovalEventRepository struct {
	db *gorm.DB
}

// NewApprovalEventRepository 创建审批事件仓库
func NewApprovalEventRepository(db *gorm.DB) *GormApprovalEventRepository {
	return &GormApprovalEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormApprovalEventRepository) WithTx(tx *gorm.DB) *GormApprovalEventRepository {
	if tx == nil {
		return r
	}
	return &GormApprovalEventRepository{db: tx}
}

// Create 追加审批事件
func (r *GormApprovalEventRepository) Create(event *models.ApprovalEvent) error {
	return r.db.Create(event).Error
}

// ListByCommission 按时间正序返回佣金的全部审批事件
func (r *GormApprovalEventRepository) ListByCommission(commissionID uint) ([]models.ApprovalEvent, error) {
	events := make([]models.ApprovalEvent, 0)
	err := r.db.
		Where("commission_id = ?", commissionID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
