package service

import (
	"time"

	"github.com/commission-next/internal/config"
	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/engine"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/models"
	"github.com/commission-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService 佣金计算服务
// 围绕计算流水线组织数据：装配销售指标、执行引擎、落库记录与初始审批事件。
type CommissionService struct {
	db             *gorm.DB
	cfg            *config.Config
	registry       *engine.Registry
	dealRepo       repository.DealRepository
	salesRepRepo   repository.SalesRepRepository
	ruleRepo       repository.RuleRepository
	commissionRepo repository.CommissionRepository
	eventRepo      repository.ApprovalEventRepository
}

// NewCommissionService 创建佣金计算服务
func NewCommissionService(db *gorm.DB, cfg *config.Config, registry *engine.Registry, dealRepo repository.DealRepository, salesRepRepo repository.SalesRepRepository, ruleRepo repository.RuleRepository, commissionRepo repository.CommissionRepository, eventRepo repository.ApprovalEventRepository) *CommissionService {
	return &CommissionService{
		db:             db,
		cfg:            cfg,
		registry:       registry,
		dealRepo:       dealRepo,
		salesRepRepo:   salesRepRepo,
		ruleRepo:       ruleRepo,
		commissionRepo: commissionRepo,
		eventRepo:      eventRepo,
	}
}

func (s *CommissionService) newEngine() *engine.Engine {
	roundPerRule := true
	if s.cfg != nil {
		roundPerRule = s.cfg.Commission.RoundPerRule
	}
	return engine.NewEngine(s.registry, roundPerRule)
}

// periodBounds 按成交日期所在自然月确定佣金周期，左闭右开
func periodBounds(deal *models.Deal) (time.Time, time.Time) {
	anchor := time.Now().UTC()
	if deal.CloseDate != nil {
		anchor = deal.CloseDate.UTC()
	}
	start := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// buildMetrics 装配计算上下文需要的销售指标
// 累计口径：周期内其余赢单金额为 userSalesTotal，当前成交计入达成率与均单值。
func (s *CommissionService) buildMetrics(deal *models.Deal) (engine.Metrics, error) {
	var metrics engine.Metrics

	periodStart, periodEnd := periodBounds(deal)
	priorSales, err := s.dealRepo.SumClosedAmountByRep(deal.SalesRepID, periodStart, periodEnd, deal.ID)
	if err != nil {
		return metrics, err
	}
	priorCount, err := s.dealRepo.CountClosedByRep(deal.SalesRepID, periodStart, periodEnd, deal.ID)
	if err != nil {
		return metrics, err
	}

	totalWithCurrent := priorSales.Add(deal.Amount.Decimal)
	countWithCurrent := priorCount + 1

	metrics.UserSalesTotal = priorSales
	metrics.DealCount = countWithCurrent
	metrics.AverageDealSize = totalWithCurrent.Div(decimal.NewFromInt(countWithCurrent)).Round(2)

	rep, err := s.salesRepRepo.GetByID(deal.SalesRepID)
	if err != nil {
		return metrics, err
	}
	if rep != nil && rep.QuotaAmount.Decimal.IsPositive() {
		metrics.AttainmentPercentage = totalWithCurrent.
			Div(rep.QuotaAmount.Decimal).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return metrics, nil
}

// CalculateForDeal 对单笔成交计算并落库佣金记录
// deal_id 唯一索引保证幂等：已有记录时返回 ErrCommissionExists，
// 记录与初始 calculate 事件在同一事务内写入。
func (s *CommissionService) CalculateForDeal(dealID uint, performedBy uint) (*models.CommissionRecord, error) {
	deal, err := s.dealRepo.GetByID(dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}
	if deal.Stage != constants.DealStageClosedWon {
		return nil, ErrDealNotClosedWon
	}

	if existing, err := s.commissionRepo.GetByDealID(dealID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, ErrCommissionExists
	}

	rules, err := s.ruleRepo.ListActiveForCompany(deal.CompanyID)
	if err != nil {
		return nil, err
	}

	metrics, err := s.buildMetrics(deal)
	if err != nil {
		return nil, err
	}

	result, err := s.newEngine().Calculate(deal, rules, metrics)
	if err != nil {
		return nil, err
	}

	periodStart, periodEnd := periodBounds(deal)
	record := &models.CommissionRecord{
		DealID:           deal.ID,
		CompanyID:        deal.CompanyID,
		SalesRepID:       deal.SalesRepID,
		Status:           constants.CommissionStatusCalculated,
		CommissionAmount: models.NewMoneyFromDecimal(result.TotalCommission),
		AppliedRules:     engine.AppliedRulesJSON(result.AppliedRules),
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		CalculatedAt:     result.CalculatedAt,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commissionRepo.WithTx(tx).Create(record); err != nil {
			return err
		}
		event := &models.ApprovalEvent{
			CommissionID:   record.ID,
			Action:         constants.ApprovalActionCalculate,
			PerformedBy:    performedBy,
			PreviousStatus: "",
			NewStatus:      constants.CommissionStatusCalculated,
			Metadata: models.JSON{
				"applied_rule_count": len(result.AppliedRules),
				"total_commission":   result.TotalCommission.StringFixed(2),
			},
			PerformedAt: result.CalculatedAt,
		}
		return s.eventRepo.WithTx(tx).Create(event)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("commission_calculated",
		"deal_id", deal.ID,
		"commission_id", record.ID,
		"amount", record.CommissionAmount.String(),
		"applied_rules", len(result.AppliedRules))
	return record, nil
}

// PreviewInput 佣金试算输入（不落库）
type PreviewInput struct {
	SalesRepID      uint            `json:"sales_rep_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	ProductType     string          `json:"product_type"`
	ProductCategory string          `json:"product_category"`
	CloseDate       *time.Time      `json:"close_date"`
}

// PreviewResult 试算结果
type PreviewResult struct {
	TotalCommission string               `json:"total_commission"`
	AppliedRules    []engine.AppliedRule `json:"applied_rules"`
	Metrics         engine.Metrics       `json:"metrics"`
}

// Preview 按当前生效规则试算佣金，不产生任何写入
func (s *CommissionService) Preview(input PreviewInput) (*PreviewResult, error) {
	rep, err := s.salesRepRepo.GetByID(input.SalesRepID)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrSalesRepNotFound
	}

	deal := &models.Deal{
		CompanyID:       rep.CompanyID,
		SalesRepID:      rep.ID,
		Amount:          models.NewMoneyFromDecimal(input.Amount),
		ProductType:     input.ProductType,
		ProductCategory: input.ProductCategory,
		Stage:           constants.DealStageClosedWon,
		CloseDate:       input.CloseDate,
	}

	rules, err := s.ruleRepo.ListActiveForCompany(rep.CompanyID)
	if err != nil {
		return nil, err
	}
	metrics, err := s.buildMetrics(deal)
	if err != nil {
		return nil, err
	}
	result, err := s.newEngine().Calculate(deal, rules, metrics)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		TotalCommission: result.TotalCommission.StringFixed(2),
		AppliedRules:    result.AppliedRules,
		Metrics:         metrics,
	}, nil
}

// GetRecord 获取佣金记录
func (s *CommissionService) GetRecord(id uint) (*models.CommissionRecord, error) {
	record, err := s.commissionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrCommissionNotFound
	}
	return record, nil
}

// ListRecords 分页查询佣金记录
func (s *CommissionService) ListRecords(filter repository.CommissionListFilter) ([]models.CommissionRecord, int64, error) {
	return s.commissionRepo.List(filter)
}

// ListEvents 查询佣金的审批事件链
func (s *CommissionService) ListEvents(commissionID uint) ([]models.ApprovalEvent, error) {
	record, err := s.commissionRepo.GetByID(commissionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrCommissionNotFound
	}
	return s.eventRepo.ListByCommission(commissionID)
}
