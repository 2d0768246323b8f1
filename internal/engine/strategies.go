package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/models"

	"github.com/shopspring/decimal"
)

var (
	decimalOne     = decimal.NewFromInt(1)
	decimalHundred = decimal.NewFromInt(100)
)

func dealAmount(ctx *Context) decimal.Decimal {
	if ctx == nil || ctx.Deal == nil {
		return decimal.Zero
	}
	return ctx.Deal.Amount.Decimal
}

// BaseRateStrategy 固定费率：amount × rate
type BaseRateStrategy struct{}

// Validate 校验费率区间
func (BaseRateStrategy) Validate(config models.JSON) error {
	rate, ok := configDecimal(config, "rate")
	if !ok {
		return missingConfigErr(constants.RuleTypeBaseRate, "rate")
	}
	if rate.IsNegative() || rate.GreaterThan(decimalOne) {
		return fmt.Errorf("base_rate rate must be within [0, 1], got %s", rate)
	}
	return nil
}

// Calculate 计算固定费率佣金
func (BaseRateStrategy) Calculate(ctx *Context) (decimal.Decimal, error) {
	rate, ok := configDecimal(ctx.Config, "rate")
	if !ok {
		return decimal.Zero, missingConfigErr(constants.RuleTypeBaseRate, "rate")
	}
	return dealAmount(ctx).Mul(rate), nil
}

// TieredStrategy 阶梯费率
// 以 userSalesTotal + amount 作为累计销售额评估各阶梯：
// graduated/cumulative 逐档累加 rate × (min(totalSales, max) − max(prev, min))；
// cliff 用最后命中阶梯的费率整单覆盖。
type TieredStrategy struct{}

// Validate 阶梯在规则层校验（必须至少一档），配置本体无必填项
func (TieredStrategy) Validate(config models.JSON) error {
	return nil
}

// Calculate 计算阶梯佣金
func (TieredStrategy) Calculate(ctx *Context) (decimal.Decimal, error) {
	if len(ctx.Tiers) == 0 {
		return decimal.Zero, fmt.Errorf("tiered rule requires at least one tier")
	}
	tiers := make([]models.RuleTier, len(ctx.Tiers))
	copy(tiers, ctx.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].TierNumber < tiers[j].TierNumber
	})

	amount := dealAmount(ctx)
	totalSales := ctx.UserSalesTotal.Add(amount)
	total := decimal.Zero
	previousThreshold := decimal.Zero

	for _, tier := range tiers {
		thresholdMin := tier.ThresholdMin.Decimal
		if !totalSales.GreaterThan(thresholdMin) {
			continue
		}
		switch strings.TrimSpace(tier.TierType) {
		case constants.TierTypeCliff:
			// cliff 整单覆盖，后命中的阶梯胜出
			total = amount.Mul(tier.Rate)
		default:
			upper := totalSales
			if tier.ThresholdMax != nil && upper.GreaterThan(tier.ThresholdMax.Decimal) {
				upper = tier.ThresholdMax.Decimal
			}
			lower := previousThreshold
			if thresholdMin.GreaterThan(lower) {
				lower = thresholdMin
			}
			if upper.GreaterThan(lower) {
				total = total.Add(tier.Rate.Mul(upper.Sub(lower)))
			}
		}
		if tier.ThresholdMax != nil {
			previousThreshold = tier.ThresholdMax.Decimal
		} else {
			previousThreshold = totalSales
		}
	}
	return total, nil
}

// BonusStrategy 固定奖金（SPIFF）：简单门槛全部通过则发放 config.amount
type BonusStrategy struct{}

// Validate 校验奖金金额非负
func (BonusStrategy) Validate(config models.JSON) error {
	amount, ok := configDecimal(config, "amount")
	if !ok {
		return missingConfigErr(constants.RuleTypeBonus, "amount")
	}
	if amount.IsNegative() {
		return fmt.Errorf("bonus amount must be >= 0, got %s", amount)
	}
	return nil
}

// Calculate 门槛不满足时返回 0
func (BonusStrategy) Calculate(ctx *Context) (decimal.Decimal, error) {
	amount, ok := configDecimal(ctx.Config, "amount")
	if !ok {
		return decimal.Zero, missingConfigErr(constants.RuleTypeBonus, "amount")
	}

	if minAmount, hasMin := configDecimal(ctx.Config, "min_amount"); hasMin {
		if dealAmount(ctx).LessThan(minAmount) {
			return decimal.Zero, nil
		}
	}
	if productTypes := configStringSlice(ctx.Config, "product_types"); len(productTypes) > 0 {
		if ctx.Deal == nil || !containsFold(productTypes, ctx.Deal.ProductType) {
			return decimal.Zero, nil
		}
	}
	if stages := configStringSlice(ctx.Config, "stages"); len(stages) > 0 {
		if ctx.Deal == nil || !containsFold(stages, ctx.Deal.Stage) {
			return decimal.Zero, nil
		}
	}
	return amount, nil
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(target)) {
			return true
		}
	}
	return false
}

// multiplierEntry 加减速档位
type multiplierEntry struct {
	Threshold  decimal.Decimal
	Multiplier decimal.Decimal
}

func parseMultiplierEntries(config models.JSON, key string) []multiplierEntry {
	rows := configObjectSlice(config, key)
	entries := make([]multiplierEntry, 0, len(rows))
	for _, row := range rows {
		threshold, thresholdOK := toDecimal(row["threshold"])
		multiplier, multiplierOK := toDecimal(row["multiplier"])
		if !thresholdOK || !multiplierOK {
			continue
		}
		entries = append(entries, multiplierEntry{Threshold: threshold, Multiplier: multiplier})
	}
	// 兼容历史单档配置 {threshold, multiplier}
	if len(entries) == 0 {
		threshold, thresholdOK := configDecimal(config, "threshold")
		multiplier, multiplierOK := configDecimal(config, "multiplier")
		if thresholdOK && multiplierOK {
			entries = append(entries, multiplierEntry{Threshold: threshold, Multiplier: multiplier})
		}
	}
	return entries
}

// AcceleratorStrategy 加速器：达成率命中的最高档倍数放大 amount × base_rate
type AcceleratorStrategy struct{}

// Validate 校验基础费率与倍数下限
func (AcceleratorStrategy) Validate(config models.JSON) error {
	if _, ok := configDecimal(config, "base_rate"); !ok {
		return missingConfigErr(constants.RuleTypeAccelerator, "base_rate")
	}
	entries := parseMultiplierEntries(config, "accelerators")
	if len(entries) == 0 {
		return missingConfigErr(constants.RuleTypeAccelerator, "accelerators")
	}
	for _, entry := range entries {
		if entry.Multiplier.LessThan(decimalOne) {
			return fmt.Errorf("accelerator multiplier must be >= 1, got %s", entry.Multiplier)
		}
	}
	return nil
}

// Calculate 从高到低找第一个满足 attainment >= threshold 的档位
func (AcceleratorStrategy) Calculate(ctx *Context) (decimal.Decimal, error) {
	baseRate, ok := configDecimal(ctx.Config, "base_rate")
	if !ok {
		return decimal.Zero, missingConfigErr(constants.RuleTypeAccelerator, "base_rate")
	}
	entries := parseMultiplierEntries(ctx.Config, "accelerators")
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Threshold.GreaterThan(entries[j].Threshold)
	})

	multiplier := decimalOne
	for _, entry := range entries {
		if ctx.AttainmentPercentage.GreaterThanOrEqual(entry.Threshold) {
			multiplier = entry.Multiplier
			break
		}
	}
	return dealAmount(ctx).Mul(baseRate).Mul(multiplier), nil
}

// DeceleratorStrategy 减速器：最高的未达标档位决定惩罚倍数（最坏档胜出）
type DeceleratorStrategy struct{}

// Validate 校验倍数区间 (0, 1]
func (DeceleratorStrategy) Validate(config models.JSON) error {
	if _, ok := configDecimal(config, "base_rate"); !ok {
		return missingConfigErr(constants.RuleTypeDecelerator, "base_rate")
	}
	entries := parseMultiplierEntries(config, "decelerators")
	if len(entries) == 0 {
		return missingConfigErr(constants.RuleTypeDecelerator, "decelerators")
	}
	for _, entry := range entries {
		if !entry.Multiplier.IsPositive() || entry.Multiplier.GreaterThan(decimalOne) {
			return fmt.Errorf("decelerator multiplier must be within (0, 1], got %s", entry.Multiplier)
		}
	}
	return nil
}

// Calculate 升序遍历并持续覆盖：每个 attainment < threshold 的档位都会改写倍数
func (DeceleratorStrategy) Calculate(ctx *Context) (decimal.Decimal, error) {
	baseRate, ok := configDecimal(ctx.Config, "base_rate")
	if !ok {
		return decimal.Zero, missingConfigErr(constants.RuleTypeDecelerator, "base_rate")
	}
	entries := parseMultiplierEntries(ctx.Config, "decelerators")
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Threshold.LessThan(entries[j].Threshold)
	})

	multiplier := decimalOne
	for _, entry := range entries {
		if ctx.AttainmentPercentage.LessThan(entry.Threshold) {
			multiplier = entry.Multiplier
		}
	}
	return dealAmount(ctx).Mul(baseRate).Mul(multiplier), nil
}

// ProductRateStrategy 按产品类型/类目匹配费率，未命中用 default_rate
type ProductRateStrategy struct{}

// Validate 至少要有产品表或默认费率
func (ProductRateStrategy) Validate(config models.JSON) error {
	products := configObject(config, "products")
	_, hasDefault := configDecimal(config, "default_rate")
	if len(products) == 0 && !hasDefault {
		return missingConfigErr(constants.RuleTypeProductRate, "products or default_rate")
	}
	for key, value := range products {
		if _, ok := toDecimal(value); !ok {
			return fmt.Errorf("product_rate products.%s must be numeric", key)
		}
	}
	return nil
}

// Calculate 先按产品类型查表，再按类目，最后回落默认费率
func (ProductRateStrategy) Calculate(ctx *Context) (decimal.Decimal, error) {
	products := configObject(ctx.Config, "products")
	rate, found := decimal.Zero, false
	if ctx.Deal != nil {
		if value, ok := products[ctx.Deal.ProductType]; ok {
			rate, found = toDecimal(value)
		}
		if !found {
			if value, ok := products[ctx.Deal.ProductCategory]; ok {
				rate, found = toDecimal(value)
			}
		}
	}
	if !found {
		defaultRate, ok := configDecimal(ctx.Config, "default_rate")
		if !ok {
			return decimal.Zero, nil
		}
		rate = defaultRate
	}
	return dealAmount(ctx).Mul(rate), nil
}

// PerformanceGateStrategy 业绩门槛
// 硬性 zero_commission 未达标立即归零短路；percentage_reduction 叠减惩罚倍数；
// 软性门槛只记日志，不影响金额。
type PerformanceGateStrategy struct{}

var gateMetrics = map[string]struct{}{
	"quota_attainment":  {},
	"total_sales":       {},
	"deal_count":        {},
	"average_deal_size": {},
}

var gateOperators = map[string]struct{}{
	">=": {}, ">": {}, "<=": {}, "<": {}, "==": {},
}

// Validate 校验门槛列表与惩罚参数
func (PerformanceGateStrategy) Validate(config models.JSON) error {
	gates := configObjectSlice(config, "gates")
	if len(gates) == 0 {
		return missingConfigErr(constants.RuleTypePerformanceGate, "gates")
	}
	for i, gate := range gates {
		if _, ok := toDecimal(gate["value"]); !ok {
			return fmt.Errorf("performance_gate gates[%d].value must be numeric", i)
		}
		penaltyType, _ := gate["penalty_type"].(string)
		if penaltyType == "percentage_reduction" {
			if _, ok := toDecimal(gate["penalty_value"]); !ok {
				return fmt.Errorf("performance_gate gates[%d].penalty_value must be numeric", i)
			}
		}
	}
	return nil
}

// Calculate 对 baseCommission 施加门槛结果
func (PerformanceGateStrategy) Calculate(ctx *Context) (decimal.Decimal, error) {
	gates := configObjectSlice(ctx.Config, "gates")
	penaltyMultiplier := decimalOne

	for _, gate := range gates {
		metric, _ := gate["metric"].(string)
		operator, _ := gate["operator"].(string)
		if _, known := gateMetrics[metric]; !known {
			logger.Warnw("performance_gate_unknown_metric", "metric", metric)
			continue
		}
		if _, known := gateOperators[operator]; !known {
			logger.Warnw("performance_gate_unknown_operator", "operator", operator)
			continue
		}
		expected, ok := toDecimal(gate["value"])
		if !ok {
			logger.Warnw("performance_gate_invalid_value", "metric", metric)
			continue
		}

		if gatePasses(gateMetricValue(ctx, metric), operator, expected) {
			continue
		}

		enforcement, _ := gate["enforcement"].(string)
		if enforcement != "hard" {
			logger.Infow("performance_gate_soft_failed", "metric", metric)
			continue
		}
		penaltyType, _ := gate["penalty_type"].(string)
		switch penaltyType {
		case "zero_commission":
			// 硬性归零短路：无视其余门槛与已有累计
			return decimal.Zero, nil
		case "percentage_reduction":
			penaltyValue, _ := toDecimal(gate["penalty_value"])
			penaltyMultiplier = penaltyMultiplier.Sub(penaltyValue.Div(decimalHundred))
			if penaltyMultiplier.IsNegative() {
				penaltyMultiplier = decimal.Zero
			}
		default:
			logger.Warnw("performance_gate_unknown_penalty_type", "penalty_type", penaltyType)
		}
	}
	return ctx.BaseCommission.Mul(penaltyMultiplier), nil
}

func gateMetricValue(ctx *Context, metric string) decimal.Decimal {
	switch metric {
	case "quota_attainment":
		return ctx.AttainmentPercentage
	case "total_sales":
		return ctx.UserSalesTotal
	case "deal_count":
		return decimal.NewFromInt(ctx.DealCount)
	case "average_deal_size":
		return ctx.AverageDealSize
	default:
		return decimal.Zero
	}
}

func gatePasses(actual decimal.Decimal, operator string, expected decimal.Decimal) bool {
	switch operator {
	case ">=":
		return actual.GreaterThanOrEqual(expected)
	case ">":
		return actual.GreaterThan(expected)
	case "<=":
		return actual.LessThanOrEqual(expected)
	case "<":
		return actual.LessThan(expected)
	case "==":
		return actual.Equal(expected)
	default:
		return false
	}
}

// TeamSplitStrategy 团队分成
// 返回首位受益人的份额；完整分配明细由调用方按 config.splits 自行落库。
type TeamSplitStrategy struct{}

// Validate 校验分成列表
func (TeamSplitStrategy) Validate(config models.JSON) error {
	splits := configObjectSlice(config, "splits")
	if len(splits) == 0 {
		return missingConfigErr(constants.RuleTypeTeamSplit, "splits")
	}
	for i, split := range splits {
		percentage, ok := toDecimal(split["percentage"])
		if !ok || !percentage.IsPositive() {
			return fmt.Errorf("team_split splits[%d].percentage must be > 0", i)
		}
	}
	return nil
}

// Calculate 按百分比切分 baseCommission
func (TeamSplitStrategy) Calculate(ctx *Context) (decimal.Decimal, error) {
	splits := configObjectSlice(ctx.Config, "splits")
	if len(splits) == 0 {
		return decimal.Zero, missingConfigErr(constants.RuleTypeTeamSplit, "splits")
	}

	sum := decimal.Zero
	for _, split := range splits {
		if percentage, ok := toDecimal(split["percentage"]); ok {
			sum = sum.Add(percentage)
		}
	}
	if !sum.Equal(decimalHundred) {
		logger.Warnw("team_split_percentage_sum_mismatch", "sum", sum.String())
	}

	first, ok := toDecimal(splits[0]["percentage"])
	if !ok {
		return decimal.Zero, fmt.Errorf("team_split splits[0].percentage must be numeric")
	}
	return ctx.BaseCommission.Mul(first).Div(decimalHundred), nil
}
