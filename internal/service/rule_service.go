package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/engine"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/models"
	"github.com/commission-next/internal/repository"

	"github.com/shopspring/decimal"
)

// RuleService 佣金规则管理服务
type RuleService struct {
	registry *engine.Registry
	ruleRepo repository.RuleRepository
}

// NewRuleService 创建规则服务
func NewRuleService(registry *engine.Registry, ruleRepo repository.RuleRepository) *RuleService {
	return &RuleService{
		registry: registry,
		ruleRepo: ruleRepo,
	}
}

// RuleTierInput 阶梯输入
type RuleTierInput struct {
	TierNumber   int              `json:"tier_number" binding:"required"`
	ThresholdMin decimal.Decimal  `json:"threshold_min"`
	ThresholdMax *decimal.Decimal `json:"threshold_max"`
	Rate         decimal.Decimal  `json:"rate" binding:"required"`
	TierType     string           `json:"tier_type"`
}

// RuleInput 规则创建/更新输入
type RuleInput struct {
	Name            string          `json:"name" binding:"required"`
	RuleType        string          `json:"rule_type" binding:"required"`
	Priority        int             `json:"priority"`
	Config          models.JSON     `json:"config"`
	Conditions      models.JSON     `json:"conditions"`
	CalculationType string          `json:"calculation_type"`
	EffectiveFrom   *time.Time      `json:"effective_from"`
	EffectiveTo     *time.Time      `json:"effective_to"`
	IsActive        *bool           `json:"is_active"`
	StopsProcessing bool            `json:"stops_processing"`
	Tiers           []RuleTierInput `json:"tiers"`
}

// validateInput 规则入库前的全量校验
func (s *RuleService) validateInput(input *RuleInput) error {
	strategy, ok := s.registry.Get(input.RuleType)
	if !ok {
		return fmt.Errorf("%w: 未知规则类型 %s", ErrRuleConfigInvalid, input.RuleType)
	}

	if input.Priority == 0 {
		input.Priority = 100
	}
	if input.Priority < constants.RulePriorityMin || input.Priority > constants.RulePriorityMax {
		return ErrRulePriorityRange
	}

	switch input.CalculationType {
	case "":
		input.CalculationType = constants.CalculationTypeCumulative
	case constants.CalculationTypeCumulative, constants.CalculationTypeReplace, constants.CalculationTypeMax:
	default:
		return fmt.Errorf("%w: 未知合并策略 %s", ErrRuleConfigInvalid, input.CalculationType)
	}

	if input.EffectiveFrom != nil && input.EffectiveTo != nil && !input.EffectiveTo.After(*input.EffectiveFrom) {
		return fmt.Errorf("%w: 生效止必须晚于生效起", ErrRuleConfigInvalid)
	}

	if err := strategy.Validate(input.Config); err != nil {
		return fmt.Errorf("%w: %v", ErrRuleConfigInvalid, err)
	}

	if len(input.Conditions) > 0 {
		node, err := engine.ParseConditions(input.Conditions)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRuleConfigInvalid, err)
		}
		// 空规则树和条件叶缺少 fact 都在这里挡下
		if _, err := engine.EvaluateConditions(node, map[string]interface{}{}); err != nil {
			return fmt.Errorf("%w: %v", ErrRuleConfigInvalid, err)
		}
	}

	if input.RuleType == constants.RuleTypeTiered {
		if len(input.Tiers) == 0 {
			return ErrRuleTiersRequired
		}
		if err := validateTiers(input.Tiers); err != nil {
			return err
		}
	}
	return nil
}

func validateTiers(tiers []RuleTierInput) error {
	seen := make(map[int]struct{}, len(tiers))
	for _, tier := range tiers {
		if _, duplicate := seen[tier.TierNumber]; duplicate {
			return fmt.Errorf("%w: 阶梯序号 %d 重复", ErrRuleTiersInvalid, tier.TierNumber)
		}
		seen[tier.TierNumber] = struct{}{}
		if tier.Rate.IsNegative() {
			return fmt.Errorf("%w: 阶梯费率不得为负", ErrRuleTiersInvalid)
		}
		if tier.ThresholdMin.IsNegative() {
			return fmt.Errorf("%w: 阶梯下限不得为负", ErrRuleTiersInvalid)
		}
		if tier.ThresholdMax != nil && !tier.ThresholdMax.GreaterThan(tier.ThresholdMin) {
			return fmt.Errorf("%w: 阶梯上限必须大于下限", ErrRuleTiersInvalid)
		}
		switch strings.TrimSpace(tier.TierType) {
		case "", constants.TierTypeGraduated, constants.TierTypeCliff, constants.TierTypeCumulative:
		default:
			return fmt.Errorf("%w: 未知阶梯类型 %s", ErrRuleTiersInvalid, tier.TierType)
		}
	}
	return nil
}

func buildTiers(inputs []RuleTierInput) []models.RuleTier {
	tiers := make([]models.RuleTier, 0, len(inputs))
	for _, input := range inputs {
		tierType := strings.TrimSpace(input.TierType)
		if tierType == "" {
			tierType = constants.TierTypeGraduated
		}
		tier := models.RuleTier{
			TierNumber:   input.TierNumber,
			ThresholdMin: models.NewMoneyFromDecimal(input.ThresholdMin),
			Rate:         input.Rate,
			TierType:     tierType,
		}
		if input.ThresholdMax != nil {
			max := models.NewMoneyFromDecimal(*input.ThresholdMax)
			tier.ThresholdMax = &max
		}
		tiers = append(tiers, tier)
	}
	return tiers
}

// ValidateRule 只做校验不落库，供前端保存前试探配置是否合法
func (s *RuleService) ValidateRule(input RuleInput) error {
	return s.validateInput(&input)
}

// CreateRule 创建规则
func (s *RuleService) CreateRule(companyID uint, input RuleInput) (*models.CommissionRule, error) {
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	rule := &models.CommissionRule{
		CompanyID:       companyID,
		Name:            strings.TrimSpace(input.Name),
		RuleType:        input.RuleType,
		Priority:        input.Priority,
		Config:          input.Config,
		Conditions:      input.Conditions,
		CalculationType: input.CalculationType,
		EffectiveFrom:   input.EffectiveFrom,
		EffectiveTo:     input.EffectiveTo,
		IsActive:        isActive,
		StopsProcessing: input.StopsProcessing,
		Tiers:           buildTiers(input.Tiers),
	}
	if err := s.ruleRepo.Create(rule); err != nil {
		return nil, err
	}
	logger.Infow("commission_rule_created",
		"rule_id", rule.ID, "rule_type", rule.RuleType, "priority", rule.Priority)
	return rule, nil
}

// UpdateRule 更新规则（阶梯全量替换）
func (s *RuleService) UpdateRule(id uint, input RuleInput) (*models.CommissionRule, error) {
	rule, err := s.ruleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	rule.Name = strings.TrimSpace(input.Name)
	rule.RuleType = input.RuleType
	rule.Priority = input.Priority
	rule.Config = input.Config
	rule.Conditions = input.Conditions
	rule.CalculationType = input.CalculationType
	rule.EffectiveFrom = input.EffectiveFrom
	rule.EffectiveTo = input.EffectiveTo
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	rule.StopsProcessing = input.StopsProcessing

	if err := s.ruleRepo.Update(rule); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.ReplaceTiers(rule.ID, buildTiers(input.Tiers)); err != nil {
		return nil, err
	}
	return s.ruleRepo.GetByID(rule.ID)
}

// SetActive 启停规则
func (s *RuleService) SetActive(id uint, active bool) (*models.CommissionRule, error) {
	rule, err := s.ruleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	rule.IsActive = active
	if err := s.ruleRepo.Update(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// GetRule 获取规则
func (s *RuleService) GetRule(id uint) (*models.CommissionRule, error) {
	rule, err := s.ruleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// ListRules 分页查询规则
func (s *RuleService) ListRules(filter repository.RuleListFilter) ([]models.CommissionRule, int64, error) {
	return s.ruleRepo.List(filter)
}

// DeleteRule 删除规则
func (s *RuleService) DeleteRule(id uint) error {
	rule, err := s.ruleRepo.GetByID(id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrRuleNotFound
	}
	return s.ruleRepo.Delete(id)
}

// StrategyTypes 已注册的策略类型列表
func (s *RuleService) StrategyTypes() []string {
	return s.registry.Types()
}
