package service

import (
	"strings"

	"github.com/commission-next/internal/models"
	"github.com/commission-next/internal/repository"

	"github.com/shopspring/decimal"
)

// SalesRepService 销售代表管理服务
type SalesRepService struct {
	salesRepRepo repository.SalesRepRepository
}

// NewSalesRepService 创建销售代表服务
func NewSalesRepService(salesRepRepo repository.SalesRepRepository) *SalesRepService {
	return &SalesRepService{salesRepRepo: salesRepRepo}
}

// SalesRepInput 销售代表录入
type SalesRepInput struct {
	CompanyID   uint            `json:"company_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Email       string          `json:"email" binding:"required,email"`
	QuotaAmount decimal.Decimal `json:"quota_amount"`
	IsActive    *bool           `json:"is_active"`
}

// CreateSalesRep 创建销售代表
func (s *SalesRepService) CreateSalesRep(input SalesRepInput) (*models.SalesRep, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if existing, err := s.salesRepRepo.GetByEmail(input.CompanyID, email); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	rep := &models.SalesRep{
		CompanyID:   input.CompanyID,
		Name:        strings.TrimSpace(input.Name),
		Email:       email,
		QuotaAmount: models.NewMoneyFromDecimal(input.QuotaAmount),
		IsActive:    isActive,
	}
	if err := s.salesRepRepo.Create(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// UpdateSalesRep 更新销售代表
func (s *SalesRepService) UpdateSalesRep(id uint, input SalesRepInput) (*models.SalesRep, error) {
	rep, err := s.salesRepRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrSalesRepNotFound
	}

	rep.Name = strings.TrimSpace(input.Name)
	rep.Email = strings.ToLower(strings.TrimSpace(input.Email))
	rep.QuotaAmount = models.NewMoneyFromDecimal(input.QuotaAmount)
	if input.IsActive != nil {
		rep.IsActive = *input.IsActive
	}
	if err := s.salesRepRepo.Update(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// GetSalesRep 获取销售代表
func (s *SalesRepService) GetSalesRep(id uint) (*models.SalesRep, error) {
	rep, err := s.salesRepRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrSalesRepNotFound
	}
	return rep, nil
}

// ListSalesReps 分页查询销售代表
func (s *SalesRepService) ListSalesReps(filter repository.SalesRepListFilter) ([]models.SalesRep, int64, error) {
	return s.salesRepRepo.List(filter)
}
