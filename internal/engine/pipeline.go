package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/models"

	"github.com/shopspring/decimal"
)

// AppliedRule 单条规则的命中轨迹，落库到 commission_records.applied_rules
type AppliedRule struct {
	RuleID           uint            `json:"rule_id"`
	RuleName         string          `json:"rule_name"`
	RuleType         string          `json:"rule_type"`
	CalculationType  string          `json:"calculation_type"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

// Result 一次完整计算的产出
type Result struct {
	TotalCommission decimal.Decimal
	AppliedRules    []AppliedRule
	CalculatedAt    time.Time
}

// Engine 佣金计算流水线：按优先级串行执行规则并合并结果
type Engine struct {
	registry     *Registry
	roundPerRule bool
}

// NewEngine roundPerRule 为 true 时每条规则产出先归整到分再合并
func NewEngine(registry *Registry, roundPerRule bool) *Engine {
	return &Engine{registry: registry, roundPerRule: roundPerRule}
}

// Calculate 对单笔成交执行全部生效规则
// 规则按 priority 升序稳定排序（同优先级保持入参顺序），依次做
// 生效期过滤、条件评估、策略计算，再按 calculation_type 合并；
// stops_processing 的规则执行后立即停止流水线。
func (e *Engine) Calculate(deal *models.Deal, rules []models.CommissionRule, metrics Metrics) (*Result, error) {
	if deal == nil {
		return nil, fmt.Errorf("deal is required")
	}

	now := time.Now()
	effectiveDate := now
	if deal.CloseDate != nil {
		effectiveDate = *deal.CloseDate
	}

	ordered := make([]models.CommissionRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	ctx := NewContext(deal, metrics)
	total := decimal.Zero
	applied := make([]AppliedRule, 0, len(ordered))

	for i := range ordered {
		rule := &ordered[i]
		if !rule.IsActive {
			continue
		}
		if rule.EffectiveFrom != nil && effectiveDate.Before(*rule.EffectiveFrom) {
			continue
		}
		if rule.EffectiveTo != nil && !effectiveDate.Before(*rule.EffectiveTo) {
			continue
		}

		conditions, err := ParseConditions(rule.Conditions)
		if err != nil {
			return nil, fmt.Errorf("rule %d conditions invalid: %w", rule.ID, err)
		}
		matched, err := EvaluateConditions(conditions, ctx.Facts)
		if err != nil {
			return nil, fmt.Errorf("rule %d condition evaluation failed: %w", rule.ID, err)
		}
		if !matched {
			continue
		}

		strategy, ok := e.registry.Get(rule.RuleType)
		if !ok {
			// 策略未注册（如扩展插件被下线而规则仍在库）时降级跳过，不中断整笔计算
			logger.Warnw("commission_rule_type_unregistered",
				"rule_id", rule.ID, "rule_type", rule.RuleType)
			continue
		}

		ctx.Config = rule.Config
		ctx.Tiers = rule.Tiers
		amount, err := strategy.Calculate(ctx)
		if err != nil {
			return nil, fmt.Errorf("rule %d calculate failed: %w", rule.ID, err)
		}
		if e.roundPerRule {
			amount = amount.Round(2)
		}

		switch rule.CalculationType {
		case constants.CalculationTypeReplace:
			total = amount
		case constants.CalculationTypeMax:
			if amount.GreaterThan(total) {
				total = amount
			}
		default:
			total = total.Add(amount)
		}
		// 后续规则（gate/split）基于当前累计金额计算
		ctx.BaseCommission = total

		applied = append(applied, AppliedRule{
			RuleID:           rule.ID,
			RuleName:         rule.Name,
			RuleType:         rule.RuleType,
			CalculationType:  rule.CalculationType,
			CommissionAmount: amount.Round(2),
		})

		if rule.StopsProcessing {
			logger.Debugw("pipeline_stopped", "rule_id", rule.ID, "deal_id", deal.ID)
			break
		}
	}

	return &Result{
		TotalCommission: total.Round(2),
		AppliedRules:    applied,
		CalculatedAt:    now,
	}, nil
}

// AppliedRulesJSON 将轨迹转为存储层可落库的 JSONArray
func AppliedRulesJSON(applied []AppliedRule) models.JSONArray {
	rows := make(models.JSONArray, 0, len(applied))
	for _, item := range applied {
		rows = append(rows, map[string]interface{}{
			"rule_id":           item.RuleID,
			"rule_name":         item.RuleName,
			"rule_type":         item.RuleType,
			"calculation_type":  item.CalculationType,
			"commission_amount": item.CommissionAmount.StringFixed(2),
		})
	}
	return rows
}
