package repository

import (
	"errors"
	"strings"

	"github.com/commission-next/internal/models"

	"gorm.io/gorm"
)

// RuleRepository 佣金规则数据访问接口
type RuleRepository interface {
	Create(rule *models.CommissionRule) error
	GetByID(id uint) (*models.CommissionRule, error)
	List(filter RuleListFilter) ([]models.CommissionRule, int64, error)
	ListActiveForCompany(companyID uint) ([]models.CommissionRule, error)
	Update(rule *models.CommissionRule) error
	ReplaceTiers(ruleID uint, tiers []models.RuleTier) error
	Delete(id uint) error
	WithTx(tx *gorm.DB) *GormRuleRepository
}

// GormRuleRepository GORM 实现
type GormRuleRepository struct {
	db *gorm.DB
}

// NewRuleRepository 创建佣金规则仓库
func NewRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRuleRepository) WithTx(tx *gorm.DB) *GormRuleRepository {
	if tx == nil {
		return r
	}
	return &GormRuleRepository{db: tx}
}

// Create 创建规则及其阶梯
func (r *GormRuleRepository) Create(rule *models.CommissionRule) error {
	return r.db.Create(rule).Error
}

// GetByID 根据 ID 获取规则（含阶梯）
func (r *GormRuleRepository) GetByID(id uint) (*models.CommissionRule, error) {
	var rule models.CommissionRule
	err := r.db.
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("tier_number ASC") }).
		First(&rule, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// List 分页查询规则
func (r *GormRuleRepository) List(filter RuleListFilter) ([]models.CommissionRule, int64, error) {
	query := r.db.Model(&models.CommissionRule{})
	if filter.CompanyID > 0 {
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.RuleType != "" {
		query = query.Where("rule_type = ?", filter.RuleType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		operator := likeOperatorByDialect(dbDialectName(r.db))
		query = query.Where("name "+operator+" ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rules := make([]models.CommissionRule, 0)
	err := applyPagination(
		query.Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("tier_number ASC") }).
			Order("priority ASC, id ASC"),
		filter.Page, filter.PageSize).
		Find(&rules).Error
	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// ListActiveForCompany 查询公司全部启用规则，按优先级升序供流水线消费
func (r *GormRuleRepository) ListActiveForCompany(companyID uint) ([]models.CommissionRule, error) {
	rules := make([]models.CommissionRule, 0)
	err := r.db.
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("tier_number ASC") }).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("priority ASC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// Update 更新规则主体（不含阶梯）
func (r *GormRuleRepository) Update(rule *models.CommissionRule) error {
	return r.db.Omit("Tiers").Save(rule).Error
}

// ReplaceTiers 全量替换规则阶梯
func (r *GormRuleRepository) ReplaceTiers(ruleID uint, tiers []models.RuleTier) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", ruleID).Delete(&models.RuleTier{}).Error; err != nil {
			return err
		}
		for i := range tiers {
			tiers[i].ID = 0
			tiers[i].RuleID = ruleID
		}
		if len(tiers) > 0 {
			if err := tx.Create(&tiers).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete 删除规则（软删除，阶梯保留供审计）
func (r *GormRuleRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.CommissionRule{}, id).Error
}
