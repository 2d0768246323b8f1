package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupCommissionRepositoryTest(t *testing.T) (*GormCommissionRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.SalesRep{},
		&models.Deal{},
		&models.CommissionRecord{},
		&models.ApprovalEvent{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewCommissionRepository(db), db
}

func createCommissionTestRecord(t *testing.T, db *gorm.DB, dealID uint, status string) *models.CommissionRecord {
	t.Helper()
	amount, err := models.NewMoneyFromString("5000")
	if err != nil {
		t.Fatalf("build amount: %v", err)
	}
	record := models.CommissionRecord{
		DealID:           dealID,
		CompanyID:        1,
		SalesRepID:       1,
		Status:           status,
		CommissionAmount: amount,
		CalculatedAt:     time.Now().UTC(),
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("create record failed: %v", err)
	}
	return &record
}

func TestCommissionRepositoryDealIDUnique(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)

	createCommissionTestRecord(t, db, 100, constants.CommissionStatusCalculated)

	amount, _ := models.NewMoneyFromString("1")
	duplicate := &models.CommissionRecord{
		DealID:           100,
		CompanyID:        1,
		SalesRepID:       1,
		Status:           constants.CommissionStatusCalculated,
		CommissionAmount: amount,
		CalculatedAt:     time.Now().UTC(),
	}
	if err := repo.Create(duplicate); err == nil {
		t.Fatal("expected duplicate deal_id to be rejected")
	}
}

func TestCommissionRepositoryUpdateStatusIf(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)
	record := createCommissionTestRecord(t, db, 101, constants.CommissionStatusPendingReview)

	affected, err := repo.UpdateStatusIf(record.ID, constants.CommissionStatusPendingReview, map[string]interface{}{
		"status": constants.CommissionStatusApproved,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}

	// 第二次以同一期望状态更新必须落空
	affected, err = repo.UpdateStatusIf(record.ID, constants.CommissionStatusPendingReview, map[string]interface{}{
		"status": constants.CommissionStatusRejected,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected stale update to affect 0 rows, got %d", affected)
	}

	current, err := repo.GetByID(record.ID)
	if err != nil || current == nil {
		t.Fatalf("get record failed: %v", err)
	}
	if current.Status != constants.CommissionStatusApproved {
		t.Fatalf("expected approved, got %s", current.Status)
	}
}

func TestCommissionRepositoryListStaleCalculated(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)

	stale := createCommissionTestRecord(t, db, 102, constants.CommissionStatusCalculated)
	old := time.Now().UTC().Add(-96 * time.Hour)
	if err := db.Model(stale).Update("calculated_at", old).Error; err != nil {
		t.Fatalf("backdate failed: %v", err)
	}
	createCommissionTestRecord(t, db, 103, constants.CommissionStatusCalculated)
	createCommissionTestRecord(t, db, 104, constants.CommissionStatusPendingReview)

	records, err := repo.ListStaleCalculated(time.Now().UTC().Add(-72*time.Hour), 50)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != stale.ID {
		t.Fatalf("expected only stale record %d, got %+v", stale.ID, records)
	}
}

func TestCommissionRepositoryListFilters(t *testing.T) {
	repo, db := setupCommissionRepositoryTest(t)

	createCommissionTestRecord(t, db, 110, constants.CommissionStatusCalculated)
	createCommissionTestRecord(t, db, 111, constants.CommissionStatusApproved)
	createCommissionTestRecord(t, db, 112, constants.CommissionStatusApproved)

	records, total, err := repo.List(CommissionListFilter{
		Page:     1,
		PageSize: 10,
		Status:   constants.CommissionStatusApproved,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Fatalf("expected 2 approved records, got total=%d len=%d", total, len(records))
	}
}
