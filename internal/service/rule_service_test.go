package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/engine"
	"github.com/commission-next/internal/models"
	"github.com/commission-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRuleServiceTest(t *testing.T) (*RuleService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:rule_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.CommissionRule{}, &models.RuleTier{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewRuleService(engine.NewRegistry(), repository.NewRuleRepository(db)), db
}

func TestCreateRuleDefaults(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	rule, err := svc.CreateRule(1, RuleInput{
		Name:     "  基础费率  ",
		RuleType: constants.RuleTypeBaseRate,
		Config:   models.JSON{"rate": 0.05},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if rule.Name != "基础费率" {
		t.Fatalf("expected trimmed name, got %q", rule.Name)
	}
	if rule.Priority != 100 {
		t.Fatalf("expected default priority 100, got %d", rule.Priority)
	}
	if rule.CalculationType != constants.CalculationTypeCumulative {
		t.Fatalf("expected default cumulative, got %s", rule.CalculationType)
	}
	if !rule.IsActive {
		t.Fatal("expected rule active by default")
	}
}

func TestValidateRuleDryRun(t *testing.T) {
	svc, db := setupRuleServiceTest(t)

	if err := svc.ValidateRule(RuleInput{
		Name:     "试运行",
		RuleType: constants.RuleTypeBaseRate,
		Config:   models.JSON{"rate": 0.05},
	}); err != nil {
		t.Fatalf("expected valid input to pass, got %v", err)
	}
	if err := svc.ValidateRule(RuleInput{
		Name:     "试运行",
		RuleType: constants.RuleTypeBaseRate,
	}); !errors.Is(err, ErrRuleConfigInvalid) {
		t.Fatalf("expected ErrRuleConfigInvalid, got %v", err)
	}

	// 校验不落库
	var count int64
	if err := db.Model(&models.CommissionRule{}).Count(&count).Error; err != nil {
		t.Fatalf("count rules failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no rules persisted, got %d", count)
	}
}

func TestCreateRuleUnknownType(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	_, err := svc.CreateRule(1, RuleInput{
		Name:     "未知类型",
		RuleType: "lottery",
	})
	if !errors.Is(err, ErrRuleConfigInvalid) {
		t.Fatalf("expected ErrRuleConfigInvalid, got %v", err)
	}
}

func TestCreateRulePriorityRange(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	for _, priority := range []int{-1, constants.RulePriorityMax + 1} {
		_, err := svc.CreateRule(1, RuleInput{
			Name:     "越界优先级",
			RuleType: constants.RuleTypeBaseRate,
			Priority: priority,
			Config:   models.JSON{"rate": 0.05},
		})
		if !errors.Is(err, ErrRulePriorityRange) {
			t.Fatalf("priority %d: expected ErrRulePriorityRange, got %v", priority, err)
		}
	}
}

func TestCreateRuleBadConfig(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	// base_rate 缺 rate
	_, err := svc.CreateRule(1, RuleInput{
		Name:     "缺参数",
		RuleType: constants.RuleTypeBaseRate,
		Config:   models.JSON{},
	})
	if !errors.Is(err, ErrRuleConfigInvalid) {
		t.Fatalf("expected ErrRuleConfigInvalid, got %v", err)
	}

	// 未知合并策略
	_, err = svc.CreateRule(1, RuleInput{
		Name:            "坏合并策略",
		RuleType:        constants.RuleTypeBaseRate,
		Config:          models.JSON{"rate": 0.05},
		CalculationType: "average",
	})
	if !errors.Is(err, ErrRuleConfigInvalid) {
		t.Fatalf("expected ErrRuleConfigInvalid, got %v", err)
	}
}

func TestCreateRuleEffectiveWindow(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, -1, 0)
	_, err := svc.CreateRule(1, RuleInput{
		Name:          "倒置窗口",
		RuleType:      constants.RuleTypeBaseRate,
		Config:        models.JSON{"rate": 0.05},
		EffectiveFrom: &from,
		EffectiveTo:   &to,
	})
	if !errors.Is(err, ErrRuleConfigInvalid) {
		t.Fatalf("expected ErrRuleConfigInvalid, got %v", err)
	}
}

func TestCreateRuleBadConditions(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	// 条件叶缺 fact
	_, err := svc.CreateRule(1, RuleInput{
		Name:     "空条件叶",
		RuleType: constants.RuleTypeBaseRate,
		Config:   models.JSON{"rate": 0.05},
		Conditions: models.JSON{
			"all": []interface{}{
				map[string]interface{}{"operator": "equal", "value": "software"},
			},
		},
	})
	if !errors.Is(err, ErrRuleConfigInvalid) {
		t.Fatalf("expected ErrRuleConfigInvalid, got %v", err)
	}

	// 合法条件树可通过
	_, err = svc.CreateRule(1, RuleInput{
		Name:     "产品类型条件",
		RuleType: constants.RuleTypeBaseRate,
		Config:   models.JSON{"rate": 0.05},
		Conditions: models.JSON{
			"all": []interface{}{
				map[string]interface{}{"fact": "product_type", "operator": "equal", "value": "software"},
			},
		},
	})
	if err != nil {
		t.Fatalf("valid conditions rejected: %v", err)
	}
}

func TestCreateTieredRuleValidation(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	// 阶梯规则必须带阶梯
	_, err := svc.CreateRule(1, RuleInput{
		Name:     "无阶梯",
		RuleType: constants.RuleTypeTiered,
	})
	if !errors.Is(err, ErrRuleTiersRequired) {
		t.Fatalf("expected ErrRuleTiersRequired, got %v", err)
	}

	// 阶梯序号重复
	_, err = svc.CreateRule(1, RuleInput{
		Name:     "重复序号",
		RuleType: constants.RuleTypeTiered,
		Tiers: []RuleTierInput{
			{TierNumber: 1, Rate: decimal.NewFromFloat(0.03)},
			{TierNumber: 1, Rate: decimal.NewFromFloat(0.05)},
		},
	})
	if !errors.Is(err, ErrRuleTiersInvalid) {
		t.Fatalf("expected ErrRuleTiersInvalid, got %v", err)
	}

	// 上限小于下限
	badMax := decimal.NewFromInt(100)
	_, err = svc.CreateRule(1, RuleInput{
		Name:     "倒置阈值",
		RuleType: constants.RuleTypeTiered,
		Tiers: []RuleTierInput{
			{TierNumber: 1, ThresholdMin: decimal.NewFromInt(500), ThresholdMax: &badMax, Rate: decimal.NewFromFloat(0.03)},
		},
	})
	if !errors.Is(err, ErrRuleTiersInvalid) {
		t.Fatalf("expected ErrRuleTiersInvalid, got %v", err)
	}
}

func TestCreateTieredRulePersistsTiers(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	max := decimal.NewFromInt(100000)
	rule, err := svc.CreateRule(1, RuleInput{
		Name:     "阶梯费率",
		RuleType: constants.RuleTypeTiered,
		Tiers: []RuleTierInput{
			{TierNumber: 1, ThresholdMin: decimal.Zero, ThresholdMax: &max, Rate: decimal.NewFromFloat(0.03)},
			{TierNumber: 2, ThresholdMin: decimal.NewFromInt(100000), Rate: decimal.NewFromFloat(0.05)},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := svc.GetRule(rule.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(stored.Tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(stored.Tiers))
	}
	if stored.Tiers[0].TierType != constants.TierTypeGraduated {
		t.Fatalf("expected default graduated tier type, got %s", stored.Tiers[0].TierType)
	}
}

func TestUpdateRuleReplacesTiers(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	rule, err := svc.CreateRule(1, RuleInput{
		Name:     "阶梯费率",
		RuleType: constants.RuleTypeTiered,
		Tiers: []RuleTierInput{
			{TierNumber: 1, Rate: decimal.NewFromFloat(0.03)},
			{TierNumber: 2, ThresholdMin: decimal.NewFromInt(50000), Rate: decimal.NewFromFloat(0.05)},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.UpdateRule(rule.ID, RuleInput{
		Name:     "阶梯费率 v2",
		RuleType: constants.RuleTypeTiered,
		Priority: 50,
		Tiers: []RuleTierInput{
			{TierNumber: 1, Rate: decimal.NewFromFloat(0.04)},
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "阶梯费率 v2" || updated.Priority != 50 {
		t.Fatalf("unexpected updated rule: %+v", updated)
	}
	if len(updated.Tiers) != 1 {
		t.Fatalf("expected tiers replaced to 1, got %d", len(updated.Tiers))
	}
}

func TestSetActiveAndDelete(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	rule, err := svc.CreateRule(1, RuleInput{
		Name:     "基础费率",
		RuleType: constants.RuleTypeBaseRate,
		Config:   models.JSON{"rate": 0.05},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	disabled, err := svc.SetActive(rule.ID, false)
	if err != nil {
		t.Fatalf("set active failed: %v", err)
	}
	if disabled.IsActive {
		t.Fatal("expected rule disabled")
	}

	if err := svc.DeleteRule(rule.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.GetRule(rule.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound after delete, got %v", err)
	}
	if err := svc.DeleteRule(rule.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound on second delete, got %v", err)
	}
}

func TestStrategyTypes(t *testing.T) {
	svc, _ := setupRuleServiceTest(t)

	types := svc.StrategyTypes()
	if len(types) != 8 {
		t.Fatalf("expected 8 builtin strategies, got %d: %v", len(types), types)
	}
}
