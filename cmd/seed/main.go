package main

import (
	"time"

	"github.com/commission-next/internal/config"
	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	companyID := constants.DefaultCompanyID

	// 示例销售代表
	reps := []models.SalesRep{
		{CompanyID: companyID, Name: "张伟", Email: "zhang.wei@example.com", QuotaAmount: models.NewMoneyFromFloat(500000)},
		{CompanyID: companyID, Name: "李娜", Email: "li.na@example.com", QuotaAmount: models.NewMoneyFromFloat(300000)},
		{CompanyID: companyID, Name: "Sam Carter", Email: "sam.carter@example.com", QuotaAmount: models.NewMoneyFromFloat(800000)},
	}
	for i := range reps {
		var existing models.SalesRep
		if err := models.DB.Where("email = ?", reps[i].Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&reps[i]).Error; err != nil {
				stdLog.Printf("Failed to create sales rep %s: %v", reps[i].Email, err)
			} else {
				stdLog.Printf("Created sales rep: %s", reps[i].Email)
			}
		} else {
			reps[i] = existing
			stdLog.Printf("Sales rep already exists: %s", reps[i].Email)
		}
	}

	now := time.Now().UTC()

	// 全类型规则示例，覆盖八种内置策略
	rules := []models.CommissionRule{
		{
			CompanyID: companyID,
			Name:      "基础佣金 5%",
			RuleType:  constants.RuleTypeBaseRate,
			Priority:  10,
			Config: models.JSON{
				"rate": 0.05,
			},
			CalculationType: constants.CalculationTypeCumulative,
			EffectiveFrom:   &now,
			IsActive:        true,
		},
		{
			CompanyID: companyID,
			Name:      "季度阶梯佣金",
			RuleType:  constants.RuleTypeTiered,
			Priority:  20,
			Config: models.JSON{
				"tier_type": constants.TierTypeGraduated,
			},
			CalculationType: constants.CalculationTypeReplace,
			EffectiveFrom:   &now,
			IsActive:        false,
			Tiers: []models.RuleTier{
				{TierNumber: 1, ThresholdMin: models.NewMoneyFromFloat(0), ThresholdMax: moneyPtr(100000), Rate: decimal.NewFromFloat(0.03), TierType: constants.TierTypeGraduated},
				{TierNumber: 2, ThresholdMin: models.NewMoneyFromFloat(100000), ThresholdMax: moneyPtr(300000), Rate: decimal.NewFromFloat(0.05), TierType: constants.TierTypeGraduated},
				{TierNumber: 3, ThresholdMin: models.NewMoneyFromFloat(300000), Rate: decimal.NewFromFloat(0.08), TierType: constants.TierTypeGraduated},
			},
		},
		{
			CompanyID: companyID,
			Name:      "大单奖励",
			RuleType:  constants.RuleTypeBonus,
			Priority:  30,
			Config: models.JSON{
				"bonus_amount": 2000,
				"min_amount":   200000,
			},
			CalculationType: constants.CalculationTypeCumulative,
			EffectiveFrom:   &now,
			IsActive:        true,
		},
		{
			CompanyID: companyID,
			Name:      "超额达成加速器",
			RuleType:  constants.RuleTypeAccelerator,
			Priority:  40,
			Config: models.JSON{
				"base_rate": 0.05,
				"multipliers": []map[string]interface{}{
					{"threshold": 100, "multiplier": 1.2},
					{"threshold": 120, "multiplier": 1.5},
				},
			},
			CalculationType: constants.CalculationTypeReplace,
			EffectiveFrom:   &now,
			IsActive:        false,
		},
		{
			CompanyID: companyID,
			Name:      "低达成减速器",
			RuleType:  constants.RuleTypeDecelerator,
			Priority:  50,
			Config: models.JSON{
				"base_rate": 0.05,
				"multipliers": []map[string]interface{}{
					{"threshold": 50, "multiplier": 0.5},
					{"threshold": 80, "multiplier": 0.8},
				},
			},
			CalculationType: constants.CalculationTypeReplace,
			EffectiveFrom:   &now,
			IsActive:        false,
		},
		{
			CompanyID: companyID,
			Name:      "产品线差异费率",
			RuleType:  constants.RuleTypeProductRate,
			Priority:  60,
			Config: models.JSON{
				"rates": map[string]interface{}{
					"software": 0.06,
					"hardware": 0.03,
					"services": 0.08,
				},
				"default_rate": 0.04,
			},
			CalculationType: constants.CalculationTypeReplace,
			EffectiveFrom:   &now,
			IsActive:        false,
		},
		{
			CompanyID: companyID,
			Name:      "业绩门槛",
			RuleType:  constants.RuleTypePerformanceGate,
			Priority:  5,
			Config: models.JSON{
				"metric":       "quota_attainment",
				"operator":     ">=",
				"value":        40,
				"gate_type":    "hard",
				"penalty_type": "zero_commission",
			},
			CalculationType: constants.CalculationTypeCumulative,
			EffectiveFrom:   &now,
			IsActive:        false,
		},
		{
			CompanyID: companyID,
			Name:      "团队分成 70%",
			RuleType:  constants.RuleTypeTeamSplit,
			Priority:  90,
			Config: models.JSON{
				"splits": []map[string]interface{}{
					{"role": "owner", "percentage": 70},
					{"role": "support", "percentage": 30},
				},
			},
			CalculationType: constants.CalculationTypeReplace,
			EffectiveFrom:   &now,
			IsActive:        false,
		},
	}

	for i := range rules {
		var existing models.CommissionRule
		if err := models.DB.Where("company_id = ? AND name = ?", companyID, rules[i].Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&rules[i]).Error; err != nil {
				stdLog.Printf("Failed to create rule %s: %v", rules[i].Name, err)
			} else {
				stdLog.Printf("Created rule: %s", rules[i].Name)
			}
		} else {
			stdLog.Printf("Rule already exists: %s", rules[i].Name)
		}
	}

	// 示例成交单（未触发计算，供演示手工计算与试算）
	if len(reps) > 0 && reps[0].ID != 0 {
		closeDate := now.AddDate(0, 0, -3)
		deals := []models.Deal{
			{DealNo: "DEMO-2026-0001", CompanyID: companyID, SalesRepID: reps[0].ID, Amount: models.NewMoneyFromFloat(150000), ProductType: "software", Stage: constants.DealStageClosedWon, CloseDate: &closeDate},
			{DealNo: "DEMO-2026-0002", CompanyID: companyID, SalesRepID: reps[0].ID, Amount: models.NewMoneyFromFloat(80000), ProductType: "hardware", Stage: constants.DealStageClosedWon, CloseDate: &closeDate},
		}
		for i := range deals {
			var existing models.Deal
			if err := models.DB.Where("deal_no = ?", deals[i].DealNo).First(&existing).Error; err != nil {
				if err := models.DB.Create(&deals[i]).Error; err != nil {
					stdLog.Printf("Failed to create deal %s: %v", deals[i].DealNo, err)
				} else {
					stdLog.Printf("Created deal: %s", deals[i].DealNo)
				}
			} else {
				stdLog.Printf("Deal already exists: %s", deals[i].DealNo)
			}
		}
	}

	stdLog.Println("Seed finished")
}

func moneyPtr(value float64) *models.Money {
	m := models.NewMoneyFromFloat(value)
	return &m
}
