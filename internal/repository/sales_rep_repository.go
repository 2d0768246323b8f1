package repository

import (
	"errors"
	"strings"

	"github.com/commission-next/internal/models"

	"gorm.io/gorm"
)

// SalesRepRepository 销售代表数据访问接口
type SalesRepRepository interface {
	GetByID(id uint) (*models.SalesRep, error)
	GetByEmail(companyID uint, email string) (*models.SalesRep, error)
	List(filter SalesRepListFilter) ([]models.SalesRep, int64, error)
	Create(rep *models.SalesRep) error
	Update(rep *models.SalesRep) error
	Delete(id uint) error
}

// GormSalesRepRepository GORM 实现
type GormSalesRepRepository struct {
	db *gorm.DB
}

// NewSalesRepRepository 创建销售代表仓库
func NewSalesRepRepository(db *gorm.DB) *GormSalesRepRepository {
	return &GormSalesRepRepository{db: db}
}

// GetByID 根据 ID 获取销售代表
func (r *GormSalesRepRepository) GetByID(id uint) (*models.SalesRep, error) {
	var rep models.SalesRep
	if err := r.db.First(&rep, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rep, nil
}

// GetByEmail 公司内按邮箱查找销售代表
func (r *GormSalesRepRepository) GetByEmail(companyID uint, email string) (*models.SalesRep, error) {
	var rep models.SalesRep
	err := r.db.
		Where("company_id = ? AND email = ?", companyID, strings.ToLower(strings.TrimSpace(email))).
		First(&rep).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rep, nil
}

// List 分页查询销售代表
func (r *GormSalesRepRepository) List(filter SalesRepListFilter) ([]models.SalesRep, int64, error) {
	query := r.db.Model(&models.SalesRep{})
	if filter.CompanyID > 0 {
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		operator := likeOperatorByDialect(dbDialectName(r.db))
		query = query.Where("name "+operator+" ? OR email "+operator+" ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	reps := make([]models.SalesRep, 0)
	err := applyPagination(query.Order("id ASC"), filter.Page, filter.PageSize).Find(&reps).Error
	if err != nil {
		return nil, 0, err
	}
	return reps, total, nil
}

// Create 创建销售代表
func (r *GormSalesRepRepository) Create(rep *models.SalesRep) error {
	return r.db.Create(rep).Error
}

// Update 更新销售代表
func (r *GormSalesRepRepository) Update(rep *models.SalesRep) error {
	return r.db.Save(rep).Error
}

// Delete 删除销售代表（软删除）
func (r *GormSalesRepRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.SalesRep{}, id).Error
}
