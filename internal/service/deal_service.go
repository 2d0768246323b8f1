package service

import (
	"strings"
	"time"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/models"
	"github.com/commission-next/internal/queue"
	"github.com/commission-next/internal/repository"

	"github.com/shopspring/decimal"
)

// DealService 成交单接入服务
// 赢单成交入库后投递异步计算任务；队列不可用时降级为同步计算。
type DealService struct {
	dealRepo          repository.DealRepository
	salesRepRepo      repository.SalesRepRepository
	commissionService *CommissionService
	queueClient       *queue.Client
}

// NewDealService 创建成交单服务
func NewDealService(dealRepo repository.DealRepository, salesRepRepo repository.SalesRepRepository, commissionService *CommissionService, queueClient *queue.Client) *DealService {
	return &DealService{
		dealRepo:          dealRepo,
		salesRepRepo:      salesRepRepo,
		commissionService: commissionService,
		queueClient:       queueClient,
	}
}

// DealInput 成交单录入
type DealInput struct {
	DealNo          string          `json:"deal_no" binding:"required"`
	SalesRepID      uint            `json:"sales_rep_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	ProductType     string          `json:"product_type"`
	ProductCategory string          `json:"product_category"`
	Stage           string          `json:"stage" binding:"required"`
	CloseDate       *time.Time      `json:"close_date"`
}

// CreateDeal 录入成交单，赢单时触发佣金计算
func (s *DealService) CreateDeal(input DealInput) (*models.Deal, error) {
	switch input.Stage {
	case constants.DealStageClosedWon, constants.DealStageClosedLost:
	default:
		return nil, ErrDealNotClosedWon
	}

	rep, err := s.salesRepRepo.GetByID(input.SalesRepID)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrSalesRepNotFound
	}
	if !rep.IsActive {
		return nil, ErrSalesRepInactive
	}

	dealNo := strings.TrimSpace(input.DealNo)
	if existing, err := s.dealRepo.GetByDealNo(dealNo); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDealNoExists
	}

	closeDate := input.CloseDate
	if closeDate == nil && input.Stage == constants.DealStageClosedWon {
		now := time.Now().UTC()
		closeDate = &now
	}

	deal := &models.Deal{
		DealNo:          dealNo,
		CompanyID:       rep.CompanyID,
		SalesRepID:      rep.ID,
		Amount:          models.NewMoneyFromDecimal(input.Amount),
		ProductType:     strings.TrimSpace(input.ProductType),
		ProductCategory: strings.TrimSpace(input.ProductCategory),
		Stage:           input.Stage,
		CloseDate:       closeDate,
	}
	if err := s.dealRepo.Create(deal); err != nil {
		return nil, err
	}

	if deal.Stage == constants.DealStageClosedWon {
		s.triggerCalculation(deal.ID)
	}
	return deal, nil
}

// triggerCalculation 优先异步投递，失败或未启用队列时同步兜底
func (s *DealService) triggerCalculation(dealID uint) {
	if s.queueClient != nil {
		err := s.queueClient.EnqueueCommissionCalculate(dealID)
		if err == nil {
			return
		}
		logger.Warnw("enqueue_commission_calculate_failed", "deal_id", dealID, "error", err)
	}
	if _, err := s.commissionService.CalculateForDeal(dealID, 0); err != nil && err != ErrCommissionExists {
		logger.Errorw("sync_commission_calculate_failed", "deal_id", dealID, "error", err)
	}
}

// GetDeal 获取成交单
func (s *DealService) GetDeal(id uint) (*models.Deal, error) {
	deal, err := s.dealRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}
	return deal, nil
}

// ListDeals 分页查询成交单
func (s *DealService) ListDeals(filter repository.DealListFilter) ([]models.Deal, int64, error) {
	return s.dealRepo.List(filter)
}
