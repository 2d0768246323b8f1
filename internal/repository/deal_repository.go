package repository

import (
	"errors"
	"time"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DealRepository 成交单数据访问接口
// 聚合方法为计算上下文提供销售指标（累计销售额、成交笔数）。
type DealRepository interface {
	Create(deal *models.Deal) error
	GetByID(id uint) (*models.Deal, error)
	GetByDealNo(dealNo string) (*models.Deal, error)
	List(filter DealListFilter) ([]models.Deal, int64, error)
	Update(deal *models.Deal) error
	SumClosedAmountByRep(salesRepID uint, periodStart, periodEnd time.Time, excludeDealID uint) (decimal.Decimal, error)
	CountClosedByRep(salesRepID uint, periodStart, periodEnd time.Time, excludeDealID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormDealRepository
}

// GormDealRepository GORM 实现
type GormDealRepository struct {
	db *gorm.DB
}

// NewDealRepository 创建成交单仓库
func NewDealRepository(db *gorm.DB) *GormDealRepository {
	return &GormDealRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDealRepository) WithTx(tx *gorm.DB) *GormDealRepository {
	if tx == nil {
		return r
	}
	return &GormDealRepository{db: tx}
}

// Create 创建成交单
func (r *GormDealRepository) Create(deal *models.Deal) error {
	return r.db.Create(deal).Error
}

// GetByID 根据 ID 获取成交单
func (r *GormDealRepository) GetByID(id uint) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.Preload("SalesRep").First(&deal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deal, nil
}

// GetByDealNo 根据业务单号获取成交单
func (r *GormDealRepository) GetByDealNo(dealNo string) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.Preload("SalesRep").Where("deal_no = ?", dealNo).First(&deal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deal, nil
}

// List 分页查询成交单
func (r *GormDealRepository) List(filter DealListFilter) ([]models.Deal, int64, error) {
	query := r.db.Model(&models.Deal{})
	if filter.CompanyID > 0 {
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.SalesRepID > 0 {
		query = query.Where("sales_rep_id = ?", filter.SalesRepID)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.DealNo != "" {
		query = query.Where("deal_no = ?", filter.DealNo)
	}
	if filter.ClosedFrom != nil {
		query = query.Where("close_date >= ?", filter.ClosedFrom)
	}
	if filter.ClosedTo != nil {
		query = query.Where("close_date < ?", filter.ClosedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	deals := make([]models.Deal, 0)
	err := applyPagination(query.Preload("SalesRep").Order("id DESC"), filter.Page, filter.PageSize).
		Find(&deals).Error
	if err != nil {
		return nil, 0, err
	}
	return deals, total, nil
}

// Update 更新成交单
func (r *GormDealRepository) Update(deal *models.Deal) error {
	return r.db.Save(deal).Error
}

func (r *GormDealRepository) closedWonBase(salesRepID uint, periodStart, periodEnd time.Time, excludeDealID uint) *gorm.DB {
	query := r.db.Model(&models.Deal{}).
		Where("sales_rep_id = ? AND stage = ?", salesRepID, constants.DealStageClosedWon).
		Where("close_date >= ? AND close_date < ?", periodStart, periodEnd)
	if excludeDealID > 0 {
		query = query.Where("id <> ?", excludeDealID)
	}
	return query
}

// SumClosedAmountByRep 统计周期内已成交金额（可排除当前正在计算的成交单）
func (r *GormDealRepository) SumClosedAmountByRep(salesRepID uint, periodStart, periodEnd time.Time, excludeDealID uint) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.closedWonBase(salesRepID, periodStart, periodEnd, excludeDealID).
		Select("COALESCE(SUM(amount), 0) as total").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// CountClosedByRep 统计周期内成交笔数
func (r *GormDealRepository) CountClosedByRep(salesRepID uint, periodStart, periodEnd time.Time, excludeDealID uint) (int64, error) {
	var count int64
	err := r.closedWonBase(salesRepID, periodStart, periodEnd, excludeDealID).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
