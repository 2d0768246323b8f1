package repository

import (
	"errors"
	"time"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/models"

	"gorm.io/gorm"
)

// CommissionRepository 佣金记录数据访问接口
// UpdateStatusIf 是审批状态机的并发闸门：仅当记录仍处于期望状态时更新，
// 返回实际命中的行数，0 行表示状态已被并发改写。
type CommissionRepository interface {
	Create(record *models.CommissionRecord) error
	GetByID(id uint) (*models.CommissionRecord, error)
	GetByDealID(dealID uint) (*models.CommissionRecord, error)
	List(filter CommissionListFilter) ([]models.CommissionRecord, int64, error)
	ListByIDs(ids []uint) ([]models.CommissionRecord, error)
	ListStaleCalculated(before time.Time, limit int) ([]models.CommissionRecord, error)
	UpdateStatusIf(id uint, expectedStatus string, updates map[string]interface{}) (int64, error)
	WithTx(tx *gorm.DB) *GormCommissionRepository
}

// GormCommissionRepository GORM 实现
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金记录仓库
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) *GormCommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Create 创建佣金记录（deal_id 唯一索引保证幂等）
func (r *GormCommissionRepository) Create(record *models.CommissionRecord) error {
	return r.db.Create(record).Error
}

// GetByID 根据 ID 获取佣金记录
func (r *GormCommissionRepository) GetByID(id uint) (*models.CommissionRecord, error) {
	var record models.CommissionRecord
	if err := r.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetByDealID 根据成交单 ID 获取佣金记录
func (r *GormCommissionRepository) GetByDealID(dealID uint) (*models.CommissionRecord, error) {
	var record models.CommissionRecord
	if err := r.db.Where("deal_id = ?", dealID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// List 分页查询佣金记录
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.CommissionRecord, int64, error) {
	query := r.db.Model(&models.CommissionRecord{})
	if filter.CompanyID > 0 {
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.SalesRepID > 0 {
		query = query.Where("sales_rep_id = ?", filter.SalesRepID)
	}
	if filter.DealID > 0 {
		query = query.Where("deal_id = ?", filter.DealID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PeriodStart != nil {
		query = query.Where("period_start >= ?", filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		query = query.Where("period_end <= ?", filter.PeriodEnd)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at < ?", filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	records := make([]models.CommissionRecord, 0)
	err := applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize).Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListByIDs 批量获取佣金记录（批量审批的预校验用）
func (r *GormCommissionRepository) ListByIDs(ids []uint) ([]models.CommissionRecord, error) {
	records := make([]models.CommissionRecord, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListStaleCalculated 查询长期停留在 calculated 的记录，供后台自动送审
func (r *GormCommissionRepository) ListStaleCalculated(before time.Time, limit int) ([]models.CommissionRecord, error) {
	records := make([]models.CommissionRecord, 0)
	query := r.db.
		Where("status = ? AND calculated_at < ?", constants.CommissionStatusCalculated, before).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateStatusIf 条件更新：WHERE id = ? AND status = ?
// 并发下两个操作者只有一个能命中，未命中方据此返回冲突。
func (r *GormCommissionRepository) UpdateStatusIf(id uint, expectedStatus string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&models.CommissionRecord{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
