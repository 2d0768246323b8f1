package engine

import (
	"testing"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/models"

	"github.com/shopspring/decimal"
)

func makeTestDeal(amount string) *models.Deal {
	money, err := models.NewMoneyFromString(amount)
	if err != nil {
		panic(err)
	}
	return &models.Deal{
		DealNo:      "D-TEST-001",
		CompanyID:   1,
		SalesRepID:  1,
		Amount:      money,
		ProductType: "software",
		Stage:       constants.DealStageClosedWon,
	}
}

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", value, err)
	}
	return d
}

func assertAmount(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if got.Round(2).StringFixed(2) != want {
		t.Fatalf("expected amount %s, got %s", want, got.Round(2).StringFixed(2))
	}
}

func TestBaseRateCalculate(t *testing.T) {
	ctx := NewContext(makeTestDeal("100000"), Metrics{})
	ctx.Config = models.JSON{"rate": 0.05}

	got, err := BaseRateStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "5000.00")
}

func TestBaseRateValidateRejectsOutOfRange(t *testing.T) {
	if err := (BaseRateStrategy{}).Validate(models.JSON{"rate": 1.5}); err == nil {
		t.Fatal("expected rate > 1 to be rejected")
	}
	if err := (BaseRateStrategy{}).Validate(models.JSON{}); err == nil {
		t.Fatal("expected missing rate to be rejected")
	}
}

func graduatedTestTiers(t *testing.T) []models.RuleTier {
	t.Helper()
	capFirst, err := models.NewMoneyFromString("50000")
	if err != nil {
		t.Fatalf("build tier cap: %v", err)
	}
	return []models.RuleTier{
		{
			TierNumber:   1,
			ThresholdMin: models.NewMoneyFromDecimal(decimal.Zero),
			ThresholdMax: &capFirst,
			Rate:         mustDecimal(t, "0.03"),
			TierType:     constants.TierTypeGraduated,
		},
		{
			TierNumber:   2,
			ThresholdMin: capFirst,
			ThresholdMax: nil,
			Rate:         mustDecimal(t, "0.05"),
			TierType:     constants.TierTypeGraduated,
		},
	}
}

func TestTieredGraduatedSpansTiers(t *testing.T) {
	ctx := NewContext(makeTestDeal("80000"), Metrics{})
	ctx.Tiers = graduatedTestTiers(t)

	// 50000×0.03 + 30000×0.05
	got, err := TieredStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "3000.00")
}

func TestTieredGraduatedResumesFromPriorSales(t *testing.T) {
	ctx := NewContext(makeTestDeal("20000"), Metrics{
		UserSalesTotal: mustDecimal(t, "50000"),
	})
	ctx.Tiers = graduatedTestTiers(t)

	// 已有销售额 50000 占满第一阶梯，整单落在第二阶梯
	got, err := TieredStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "1000.00")
}

func TestTieredCliffLastMatchedTierWins(t *testing.T) {
	capFirst, _ := models.NewMoneyFromString("50000")
	ctx := NewContext(makeTestDeal("80000"), Metrics{})
	ctx.Tiers = []models.RuleTier{
		{
			TierNumber:   1,
			ThresholdMin: models.NewMoneyFromDecimal(decimal.Zero),
			ThresholdMax: &capFirst,
			Rate:         mustDecimal(t, "0.03"),
			TierType:     constants.TierTypeCliff,
		},
		{
			TierNumber:   2,
			ThresholdMin: capFirst,
			ThresholdMax: nil,
			Rate:         mustDecimal(t, "0.05"),
			TierType:     constants.TierTypeCliff,
		},
	}

	got, err := TieredStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "4000.00")
}

func TestTieredRequiresTiers(t *testing.T) {
	ctx := NewContext(makeTestDeal("80000"), Metrics{})
	if _, err := (TieredStrategy{}).Calculate(ctx); err == nil {
		t.Fatal("expected error without tiers")
	}
}

func TestBonusGatedByThresholds(t *testing.T) {
	ctx := NewContext(makeTestDeal("60000"), Metrics{})
	ctx.Config = models.JSON{
		"amount":        1000,
		"min_amount":    50000,
		"product_types": []interface{}{"software"},
	}

	got, err := BonusStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "1000.00")

	ctx.Config["min_amount"] = 100000
	got, err = BonusStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "0.00")
}

func TestAcceleratorPicksHighestMetThreshold(t *testing.T) {
	ctx := NewContext(makeTestDeal("100000"), Metrics{
		AttainmentPercentage: mustDecimal(t, "125"),
	})
	ctx.Config = models.JSON{
		"base_rate": 0.05,
		"accelerators": []interface{}{
			map[string]interface{}{"threshold": 100, "multiplier": 1.2},
			map[string]interface{}{"threshold": 120, "multiplier": 1.5},
		},
	}

	// 125% 同时满足两档，取更高门槛的 1.5
	got, err := AcceleratorStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "7500.00")
}

func TestAcceleratorDefaultsToBaseRate(t *testing.T) {
	ctx := NewContext(makeTestDeal("100000"), Metrics{
		AttainmentPercentage: mustDecimal(t, "80"),
	})
	ctx.Config = models.JSON{
		"base_rate": 0.05,
		"accelerators": []interface{}{
			map[string]interface{}{"threshold": 100, "multiplier": 1.2},
		},
	}

	got, err := AcceleratorStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "5000.00")
}

func TestDeceleratorWorstUnmetThresholdWins(t *testing.T) {
	ctx := NewContext(makeTestDeal("100000"), Metrics{
		AttainmentPercentage: mustDecimal(t, "40"),
	})
	ctx.Config = models.JSON{
		"base_rate": 0.05,
		"decelerators": []interface{}{
			map[string]interface{}{"threshold": 50, "multiplier": 0.5},
			map[string]interface{}{"threshold": 80, "multiplier": 0.8},
		},
	}

	// 40% 两档均未达标，但 0.5 是更严厉的覆盖结果
	got, err := DeceleratorStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "2500.00")
}

func TestDeceleratorNoOpWhenAllThresholdsMet(t *testing.T) {
	ctx := NewContext(makeTestDeal("100000"), Metrics{
		AttainmentPercentage: mustDecimal(t, "90"),
	})
	ctx.Config = models.JSON{
		"base_rate": 0.05,
		"decelerators": []interface{}{
			map[string]interface{}{"threshold": 50, "multiplier": 0.5},
			map[string]interface{}{"threshold": 80, "multiplier": 0.8},
		},
	}

	got, err := DeceleratorStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "5000.00")
}

func TestProductRateFallsBackToDefault(t *testing.T) {
	ctx := NewContext(makeTestDeal("10000"), Metrics{})
	ctx.Config = models.JSON{
		"products":     map[string]interface{}{"hardware": 0.02},
		"default_rate": 0.04,
	}

	got, err := ProductRateStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "400.00")

	ctx.Deal.ProductType = "hardware"
	got, err = ProductRateStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "200.00")
}

func TestPerformanceGateHardZeroCommission(t *testing.T) {
	ctx := NewContext(makeTestDeal("100000"), Metrics{
		AttainmentPercentage: mustDecimal(t, "30"),
	})
	ctx.BaseCommission = mustDecimal(t, "5000")
	ctx.Config = models.JSON{
		"gates": []interface{}{
			map[string]interface{}{
				"metric":       "quota_attainment",
				"operator":     ">=",
				"value":        50,
				"enforcement":  "hard",
				"penalty_type": "zero_commission",
			},
		},
	}

	got, err := PerformanceGateStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "0.00")
}

func TestPerformanceGatePercentageReduction(t *testing.T) {
	ctx := NewContext(makeTestDeal("100000"), Metrics{
		AttainmentPercentage: mustDecimal(t, "30"),
	})
	ctx.BaseCommission = mustDecimal(t, "5000")
	ctx.Config = models.JSON{
		"gates": []interface{}{
			map[string]interface{}{
				"metric":        "quota_attainment",
				"operator":      ">=",
				"value":         50,
				"enforcement":   "hard",
				"penalty_type":  "percentage_reduction",
				"penalty_value": 40,
			},
		},
	}

	got, err := PerformanceGateStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "3000.00")
}

func TestPerformanceGateSoftFailureKeepsAmount(t *testing.T) {
	ctx := NewContext(makeTestDeal("100000"), Metrics{
		AttainmentPercentage: mustDecimal(t, "30"),
	})
	ctx.BaseCommission = mustDecimal(t, "5000")
	ctx.Config = models.JSON{
		"gates": []interface{}{
			map[string]interface{}{
				"metric":       "quota_attainment",
				"operator":     ">=",
				"value":        50,
				"enforcement":  "soft",
				"penalty_type": "zero_commission",
			},
		},
	}

	got, err := PerformanceGateStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "5000.00")
}

func TestTeamSplitFirstRecipientShare(t *testing.T) {
	ctx := NewContext(makeTestDeal("100000"), Metrics{})
	ctx.BaseCommission = mustDecimal(t, "5000")
	ctx.Config = models.JSON{
		"splits": []interface{}{
			map[string]interface{}{"sales_rep_id": 1, "percentage": 60},
			map[string]interface{}{"sales_rep_id": 2, "percentage": 40},
		},
	}

	got, err := TeamSplitStrategy{}.Calculate(ctx)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	assertAmount(t, got, "3000.00")
}

func TestRegistryHasAllBuiltinTypes(t *testing.T) {
	registry := NewRegistry()
	for _, ruleType := range []string{
		constants.RuleTypeBaseRate,
		constants.RuleTypeTiered,
		constants.RuleTypeBonus,
		constants.RuleTypeAccelerator,
		constants.RuleTypeDecelerator,
		constants.RuleTypeProductRate,
		constants.RuleTypePerformanceGate,
		constants.RuleTypeTeamSplit,
	} {
		if _, ok := registry.Get(ruleType); !ok {
			t.Fatalf("builtin strategy %s not registered", ruleType)
		}
	}
	if _, ok := registry.Get("unknown"); ok {
		t.Fatal("unexpected strategy for unknown type")
	}
}
