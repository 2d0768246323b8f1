package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/commission-next/internal/config"
	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/engine"
	"github.com/commission-next/internal/models"
	"github.com/commission-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCommissionServiceTest(t *testing.T) (*CommissionService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.SalesRep{},
		&models.Deal{},
		&models.CommissionRule{},
		&models.RuleTier{},
		&models.CommissionRecord{},
		&models.ApprovalEvent{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	cfg := &config.Config{
		Commission: config.CommissionConfig{RoundPerRule: true},
	}
	svc := NewCommissionService(db, cfg, engine.NewRegistry(),
		repository.NewDealRepository(db),
		repository.NewSalesRepRepository(db),
		repository.NewRuleRepository(db),
		repository.NewCommissionRepository(db),
		repository.NewApprovalEventRepository(db))
	return svc, db
}

func createCommissionTestRep(t *testing.T, db *gorm.DB, quota string) *models.SalesRep {
	t.Helper()
	quotaAmount, err := models.NewMoneyFromString(quota)
	if err != nil {
		t.Fatalf("build quota: %v", err)
	}
	rep := models.SalesRep{
		CompanyID:   1,
		Name:        "测试销售",
		Email:       fmt.Sprintf("rep_%d@example.com", time.Now().UnixNano()),
		QuotaAmount: quotaAmount,
		IsActive:    true,
	}
	if err := db.Create(&rep).Error; err != nil {
		t.Fatalf("create rep failed: %v", err)
	}
	return &rep
}

func createCommissionTestDeal(t *testing.T, db *gorm.DB, repID uint, amount string, stage string) *models.Deal {
	t.Helper()
	dealAmount, err := models.NewMoneyFromString(amount)
	if err != nil {
		t.Fatalf("build amount: %v", err)
	}
	closeDate := time.Now().UTC()
	deal := models.Deal{
		DealNo:     fmt.Sprintf("T-%d", time.Now().UnixNano()),
		CompanyID:  1,
		SalesRepID: repID,
		Amount:     dealAmount,
		Stage:      stage,
		CloseDate:  &closeDate,
	}
	if err := db.Create(&deal).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}
	return &deal
}

func createCommissionTestRule(t *testing.T, db *gorm.DB, name string, priority int, rate float64) *models.CommissionRule {
	t.Helper()
	rule := models.CommissionRule{
		CompanyID:       1,
		Name:            name,
		RuleType:        constants.RuleTypeBaseRate,
		Priority:        priority,
		Config:          models.JSON{"rate": rate},
		CalculationType: constants.CalculationTypeCumulative,
		IsActive:        true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatalf("create rule failed: %v", err)
	}
	return &rule
}

func TestCalculateForDeal(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	rep := createCommissionTestRep(t, db, "100000")
	deal := createCommissionTestDeal(t, db, rep.ID, "50000", constants.DealStageClosedWon)
	createCommissionTestRule(t, db, "基础费率 5%", 10, 0.05)

	record, err := svc.CalculateForDeal(deal.ID, 7)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if record.Status != constants.CommissionStatusCalculated {
		t.Fatalf("expected calculated, got %s", record.Status)
	}
	if record.CommissionAmount.String() != "2500.00" {
		t.Fatalf("expected commission 2500.00, got %s", record.CommissionAmount.String())
	}
	if len(record.AppliedRules) != 1 {
		t.Fatalf("expected 1 applied rule, got %d", len(record.AppliedRules))
	}
	if record.PeriodStart.Day() != 1 || !record.PeriodEnd.Equal(record.PeriodStart.AddDate(0, 1, 0)) {
		t.Fatalf("expected calendar month period, got %s..%s", record.PeriodStart, record.PeriodEnd)
	}

	var events []models.ApprovalEvent
	if err := db.Where("commission_id = ?", record.ID).Find(&events).Error; err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	if len(events) != 1 || events[0].Action != constants.ApprovalActionCalculate || events[0].PerformedBy != 7 {
		t.Fatalf("expected initial calculate event, got %+v", events)
	}
}

func TestCalculateForDealIdempotent(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	rep := createCommissionTestRep(t, db, "100000")
	deal := createCommissionTestDeal(t, db, rep.ID, "50000", constants.DealStageClosedWon)
	createCommissionTestRule(t, db, "基础费率 5%", 10, 0.05)

	first, err := svc.CalculateForDeal(deal.ID, 1)
	if err != nil {
		t.Fatalf("first calculate failed: %v", err)
	}

	second, err := svc.CalculateForDeal(deal.ID, 1)
	if !errors.Is(err, ErrCommissionExists) {
		t.Fatalf("expected ErrCommissionExists, got %v", err)
	}
	if second == nil || second.ID != first.ID {
		t.Fatalf("expected existing record back, got %+v", second)
	}

	var count int64
	db.Model(&models.CommissionRecord{}).Where("deal_id = ?", deal.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected single record, got %d", count)
	}
}

func TestCalculateForDealGuards(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	rep := createCommissionTestRep(t, db, "100000")

	if _, err := svc.CalculateForDeal(99999, 1); !errors.Is(err, ErrDealNotFound) {
		t.Fatalf("expected ErrDealNotFound, got %v", err)
	}

	open := createCommissionTestDeal(t, db, rep.ID, "50000", "negotiation")
	if _, err := svc.CalculateForDeal(open.ID, 1); !errors.Is(err, ErrDealNotClosedWon) {
		t.Fatalf("expected ErrDealNotClosedWon, got %v", err)
	}
}

func TestCalculateForDealMetrics(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	rep := createCommissionTestRep(t, db, "100000")

	// 同周期内已有一笔 30000 赢单，配额达成率按含当前单口径计算
	createCommissionTestDeal(t, db, rep.ID, "30000", constants.DealStageClosedWon)
	deal := createCommissionTestDeal(t, db, rep.ID, "50000", constants.DealStageClosedWon)

	createCommissionTestRule(t, db, "基础费率 5%", 10, 0.05)
	gate := models.CommissionRule{
		CompanyID: 1,
		Name:      "达成率门槛",
		RuleType:  constants.RuleTypePerformanceGate,
		Priority:  20,
		Config: models.JSON{
			"gates": []interface{}{
				map[string]interface{}{
					"metric":       "quota_attainment",
					"operator":     ">=",
					"value":        90,
					"enforcement":  "hard",
					"penalty_type": "zero_commission",
				},
			},
		},
		CalculationType: constants.CalculationTypeReplace,
		IsActive:        true,
	}
	if err := db.Create(&gate).Error; err != nil {
		t.Fatalf("create gate rule failed: %v", err)
	}

	// 含当前单共 80000，达成率 80% 不满足 90% 门槛，佣金清零
	record, err := svc.CalculateForDeal(deal.ID, 1)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if !record.CommissionAmount.Decimal.IsZero() {
		t.Fatalf("expected gated commission 0, got %s", record.CommissionAmount.String())
	}
}

func TestPreviewDoesNotWrite(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	rep := createCommissionTestRep(t, db, "100000")
	createCommissionTestRule(t, db, "基础费率 5%", 10, 0.05)

	result, err := svc.Preview(PreviewInput{
		SalesRepID: rep.ID,
		Amount:     decimal.NewFromInt(50000),
	})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if result.TotalCommission != "2500.00" {
		t.Fatalf("expected 2500.00, got %s", result.TotalCommission)
	}
	if len(result.AppliedRules) != 1 {
		t.Fatalf("expected 1 applied rule, got %d", len(result.AppliedRules))
	}

	var records int64
	db.Model(&models.CommissionRecord{}).Count(&records)
	var events int64
	db.Model(&models.ApprovalEvent{}).Count(&events)
	if records != 0 || events != 0 {
		t.Fatalf("preview must not write, got records=%d events=%d", records, events)
	}
}

func TestPreviewUnknownRep(t *testing.T) {
	svc, _ := setupCommissionServiceTest(t)

	_, err := svc.Preview(PreviewInput{SalesRepID: 99999, Amount: decimal.NewFromInt(100)})
	if !errors.Is(err, ErrSalesRepNotFound) {
		t.Fatalf("expected ErrSalesRepNotFound, got %v", err)
	}
}

func TestListEventsUnknownCommission(t *testing.T) {
	svc, _ := setupCommissionServiceTest(t)

	if _, err := svc.ListEvents(99999); !errors.Is(err, ErrCommissionNotFound) {
		t.Fatalf("expected ErrCommissionNotFound, got %v", err)
	}
}
