package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/commission-next/internal/config"
	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/models"
	"github.com/commission-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupApprovalServiceTest(t *testing.T) (*ApprovalService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:approval_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	svc := NewApprovalService(db, &config.Config{},
		repository.NewCommissionRepository(db),
		repository.NewApprovalEventRepository(db))
	return svc, db
}

var approvalTestDealSeq uint = 1000

func createApprovalTestRecord(t *testing.T, db *gorm.DB, status string) *models.CommissionRecord {
	t.Helper()
	approvalTestDealSeq++
	amount, err := models.NewMoneyFromString("5000")
	if err != nil {
		t.Fatalf("build amount: %v", err)
	}
	record := models.CommissionRecord{
		DealID:           approvalTestDealSeq,
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

func listApprovalTestEvents(t *testing.T, db *gorm.DB, commissionID uint) []models.ApprovalEvent {
	t.Helper()
	var events []models.ApprovalEvent
	if err := db.Where("commission_id = ?", commissionID).Order("id asc").Find(&events).Error; err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	return events
}

func TestProcessApprovalReview(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)
	record := createApprovalTestRecord(t, db, constants.CommissionStatusCalculated)

	updated, err := svc.ProcessApproval(record.ID, constants.ApprovalActionReview, 7, "送审")
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if updated.Status != constants.CommissionStatusPendingReview {
		t.Fatalf("expected pending_review, got %s", updated.Status)
	}
	if updated.ReviewedAt == nil || updated.ReviewedBy == nil || *updated.ReviewedBy != 7 {
		t.Fatalf("expected reviewed_at/reviewed_by to be set: %+v", updated)
	}

	events := listApprovalTestEvents(t, db, record.ID)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.Action != constants.ApprovalActionReview ||
		event.PreviousStatus != constants.CommissionStatusCalculated ||
		event.NewStatus != constants.CommissionStatusPendingReview ||
		event.PerformedBy != 7 {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestProcessApprovalFullChain(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)
	record := createApprovalTestRecord(t, db, constants.CommissionStatusCalculated)

	steps := []struct {
		action string
		status string
	}{
		{constants.ApprovalActionReview, constants.CommissionStatusPendingReview},
		{constants.ApprovalActionApprove, constants.CommissionStatusApproved},
		{constants.ApprovalActionPay, constants.CommissionStatusPaid},
	}
	for _, step := range steps {
		updated, err := svc.ProcessApproval(record.ID, step.action, 7, "")
		if err != nil {
			t.Fatalf("%s failed: %v", step.action, err)
		}
		if updated.Status != step.status {
			t.Fatalf("after %s expected %s, got %s", step.action, step.status, updated.Status)
		}
	}

	events := listApprovalTestEvents(t, db, record.ID)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
}

func TestProcessApprovalRejectStoresReason(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)
	record := createApprovalTestRecord(t, db, constants.CommissionStatusPendingReview)

	updated, err := svc.ProcessApproval(record.ID, constants.ApprovalActionReject, 3, "  金额口径有误  ")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if updated.Status != constants.CommissionStatusRejected {
		t.Fatalf("expected rejected, got %s", updated.Status)
	}
	if updated.RejectionReason != "金额口径有误" {
		t.Fatalf("expected trimmed rejection reason, got %q", updated.RejectionReason)
	}
	if updated.RejectedAt == nil || updated.RejectedBy == nil || *updated.RejectedBy != 3 {
		t.Fatalf("expected rejected_at/rejected_by to be set: %+v", updated)
	}
}

func TestProcessApprovalRejectedCanBeResubmitted(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)
	record := createApprovalTestRecord(t, db, constants.CommissionStatusRejected)

	updated, err := svc.ProcessApproval(record.ID, constants.ApprovalActionReview, 7, "修正后重新送审")
	if err != nil {
		t.Fatalf("re-review failed: %v", err)
	}
	if updated.Status != constants.CommissionStatusPendingReview {
		t.Fatalf("expected pending_review, got %s", updated.Status)
	}
}

func TestProcessApprovalPayReference(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)

	// 备注作为支付参考号
	record := createApprovalTestRecord(t, db, constants.CommissionStatusApproved)
	updated, err := svc.ProcessApproval(record.ID, constants.ApprovalActionPay, 9, " BANK-20260831-01 ")
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if updated.PaymentReference != "BANK-20260831-01" {
		t.Fatalf("expected notes as payment reference, got %q", updated.PaymentReference)
	}

	// 无备注时自动生成参考号
	record = createApprovalTestRecord(t, db, constants.CommissionStatusApproved)
	updated, err = svc.ProcessApproval(record.ID, constants.ApprovalActionPay, 9, "   ")
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if !strings.HasPrefix(updated.PaymentReference, "PAY-") || len(updated.PaymentReference) != len("PAY-")+8 {
		t.Fatalf("expected generated PAY- reference, got %q", updated.PaymentReference)
	}
}

func TestProcessApprovalIllegalTransition(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)

	cases := []struct {
		action string
		status string
	}{
		{constants.ApprovalActionPay, constants.CommissionStatusCalculated},
		{constants.ApprovalActionReview, constants.CommissionStatusApproved},
		{constants.ApprovalActionApprove, constants.CommissionStatusPaid},
		{constants.ApprovalActionReject, constants.CommissionStatusPaid},
	}
	for _, tc := range cases {
		record := createApprovalTestRecord(t, db, tc.status)
		_, err := svc.ProcessApproval(record.ID, tc.action, 1, "")
		var transitionErr *IllegalTransitionError
		if !errors.As(err, &transitionErr) {
			t.Fatalf("%s in %s: expected IllegalTransitionError, got %v", tc.action, tc.status, err)
		}
		expected := "cannot " + tc.action + " in " + tc.status
		if transitionErr.Error() != expected {
			t.Fatalf("expected %q, got %q", expected, transitionErr.Error())
		}

		current, _ := svc.commissionRepo.GetByID(record.ID)
		if current.Status != tc.status {
			t.Fatalf("illegal transition must not change status, got %s", current.Status)
		}
		if events := listApprovalTestEvents(t, db, record.ID); len(events) != 0 {
			t.Fatalf("illegal transition must not append events, got %d", len(events))
		}
	}
}

func TestProcessApprovalUnknownAction(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)
	record := createApprovalTestRecord(t, db, constants.CommissionStatusCalculated)

	if _, err := svc.ProcessApproval(record.ID, "escalate", 1, ""); err == nil {
		t.Fatal("expected unknown action to be rejected")
	}
	// 复合调整动作必须走专用入口
	if _, err := svc.ProcessApproval(record.ID, constants.ApprovalActionAdjustAndApprove, 1, ""); err == nil {
		t.Fatal("expected adjust_and_approve to be rejected by ProcessApproval")
	}
}

func TestProcessApprovalNotFound(t *testing.T) {
	svc, _ := setupApprovalServiceTest(t)

	if _, err := svc.ProcessApproval(99999, constants.ApprovalActionReview, 1, ""); !errors.Is(err, ErrCommissionNotFound) {
		t.Fatalf("expected ErrCommissionNotFound, got %v", err)
	}
}

func TestProcessAdjustAndApprove(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)
	record := createApprovalTestRecord(t, db, constants.CommissionStatusPendingReview)

	updated, err := svc.ProcessAdjustAndApprove(record.ID, 5, AdjustInput{
		NewAmount: decimal.NewFromFloat(4200.50),
		Reason:    "客户合同金额修订，按新合同重算",
	})
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if updated.Status != constants.CommissionStatusApproved {
		t.Fatalf("expected approved, got %s", updated.Status)
	}
	if updated.CommissionAmount.String() != "4200.50" {
		t.Fatalf("expected commission_amount 4200.50, got %s", updated.CommissionAmount.String())
	}
	if updated.OriginalAmount == nil || updated.OriginalAmount.String() != "5000.00" {
		t.Fatalf("expected original_amount 5000.00, got %+v", updated.OriginalAmount)
	}
	if updated.AdjustedBy == nil || *updated.AdjustedBy != 5 || updated.AdjustedAt == nil {
		t.Fatalf("expected adjusted_by/adjusted_at to be set: %+v", updated)
	}
	if updated.ApprovedBy == nil || *updated.ApprovedBy != 5 || updated.ApprovedAt == nil {
		t.Fatalf("expected approved_by/approved_at to be set: %+v", updated)
	}

	events := listApprovalTestEvents(t, db, record.ID)
	if len(events) != 1 {
		t.Fatalf("expected single compound event, got %d", len(events))
	}
	event := events[0]
	if event.Action != constants.ApprovalActionAdjustAndApprove {
		t.Fatalf("unexpected event action: %s", event.Action)
	}
	if event.Metadata["original_amount"] != "5000.00" || event.Metadata["new_amount"] != "4200.50" {
		t.Fatalf("unexpected event metadata: %+v", event.Metadata)
	}
}

func TestProcessAdjustAndApproveValidation(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)
	record := createApprovalTestRecord(t, db, constants.CommissionStatusCalculated)

	_, err := svc.ProcessAdjustAndApprove(record.ID, 5, AdjustInput{
		NewAmount: decimal.NewFromInt(100),
		Reason:    "太短",
	})
	if !errors.Is(err, ErrAdjustmentReasonTooShort) {
		t.Fatalf("expected ErrAdjustmentReasonTooShort, got %v", err)
	}

	_, err = svc.ProcessAdjustAndApprove(record.ID, 5, AdjustInput{
		NewAmount: decimal.NewFromInt(-100),
		Reason:    "合同金额修订，需要下调佣金",
	})
	if !errors.Is(err, ErrAdjustmentAmountInvalid) {
		t.Fatalf("expected ErrAdjustmentAmountInvalid, got %v", err)
	}

	// 已支付记录不允许调整
	paid := createApprovalTestRecord(t, db, constants.CommissionStatusPaid)
	_, err = svc.ProcessAdjustAndApprove(paid.ID, 5, AdjustInput{
		NewAmount: decimal.NewFromInt(100),
		Reason:    "合同金额修订，需要下调佣金",
	})
	var transitionErr *IllegalTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected IllegalTransitionError, got %v", err)
	}
}

func TestProcessBulkApproval(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)

	first := createApprovalTestRecord(t, db, constants.CommissionStatusPendingReview)
	second := createApprovalTestRecord(t, db, constants.CommissionStatusCalculated)

	results, err := svc.ProcessBulkApproval([]uint{first.ID, second.ID}, constants.ApprovalActionApprove, 4, "季度批量批准")
	if err != nil {
		t.Fatalf("bulk approve failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		if !result.Success {
			t.Fatalf("expected success for %d: %s", result.CommissionID, result.Error)
		}
	}
	for _, id := range []uint{first.ID, second.ID} {
		current, _ := svc.commissionRepo.GetByID(id)
		if current.Status != constants.CommissionStatusApproved {
			t.Fatalf("expected approved for %d, got %s", id, current.Status)
		}
	}
}

func TestProcessBulkApprovalReject(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)

	first := createApprovalTestRecord(t, db, constants.CommissionStatusPendingReview)
	second := createApprovalTestRecord(t, db, constants.CommissionStatusCalculated)

	results, err := svc.ProcessBulkApproval([]uint{first.ID, second.ID}, constants.ApprovalActionReject, 4, "口径调整，整批退回")
	if err != nil {
		t.Fatalf("bulk reject failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, id := range []uint{first.ID, second.ID} {
		current, _ := svc.commissionRepo.GetByID(id)
		if current.Status != constants.CommissionStatusRejected {
			t.Fatalf("expected rejected for %d, got %s", id, current.Status)
		}
		if current.RejectionReason != "口径调整，整批退回" {
			t.Fatalf("expected rejection reason stored for %d", id)
		}
	}
}

// 单条驳回可以撤回 approved 记录，但批量动作只接受 calculated/pending_review
func TestProcessBulkApprovalRejectExcludesApproved(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)

	pending := createApprovalTestRecord(t, db, constants.CommissionStatusCalculated)
	approved := createApprovalTestRecord(t, db, constants.CommissionStatusApproved)

	_, err := svc.ProcessBulkApproval([]uint{pending.ID, approved.ID}, constants.ApprovalActionReject, 4, "误批撤回")
	if !errors.Is(err, ErrBulkPrecheckFailed) {
		t.Fatalf("expected ErrBulkPrecheckFailed, got %v", err)
	}

	// 整批拒绝后不能有任何写入
	for _, record := range []*models.CommissionRecord{pending, approved} {
		current, _ := svc.commissionRepo.GetByID(record.ID)
		if current.Status != record.Status {
			t.Fatalf("expected %d to keep status %s, got %s", record.ID, record.Status, current.Status)
		}
	}
	if events := listApprovalTestEvents(t, db, approved.ID); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestProcessBulkApprovalPrecheckRejectsWholeBatch(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)

	valid := createApprovalTestRecord(t, db, constants.CommissionStatusPendingReview)
	paid := createApprovalTestRecord(t, db, constants.CommissionStatusPaid)
	missingID := paid.ID + 1000

	_, err := svc.ProcessBulkApproval([]uint{valid.ID, paid.ID, missingID}, constants.ApprovalActionApprove, 4, "")
	if !errors.Is(err, ErrBulkPrecheckFailed) {
		t.Fatalf("expected ErrBulkPrecheckFailed, got %v", err)
	}
	var precheckErr *BulkPrecheckError
	if !errors.As(err, &precheckErr) {
		t.Fatalf("expected BulkPrecheckError, got %v", err)
	}
	if len(precheckErr.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", precheckErr.Issues)
	}

	// 整批拒绝，任何记录都不应被改写
	current, _ := svc.commissionRepo.GetByID(valid.ID)
	if current.Status != constants.CommissionStatusPendingReview {
		t.Fatalf("precheck failure must not change status, got %s", current.Status)
	}
	if events := listApprovalTestEvents(t, db, valid.ID); len(events) != 0 {
		t.Fatalf("precheck failure must not append events, got %d", len(events))
	}
}

func TestProcessBulkApprovalEmpty(t *testing.T) {
	svc, _ := setupApprovalServiceTest(t)

	if _, err := svc.ProcessBulkApproval(nil, constants.ApprovalActionApprove, 4, ""); !errors.Is(err, ErrBulkNothingToApprove) {
		t.Fatalf("expected ErrBulkNothingToApprove, got %v", err)
	}
}

func TestEscalateStaleCalculated(t *testing.T) {
	svc, db := setupApprovalServiceTest(t)

	stale := createApprovalTestRecord(t, db, constants.CommissionStatusCalculated)
	if err := db.Model(stale).Update("calculated_at", time.Now().UTC().Add(-96*time.Hour)).Error; err != nil {
		t.Fatalf("backdate failed: %v", err)
	}
	fresh := createApprovalTestRecord(t, db, constants.CommissionStatusCalculated)

	escalated, err := svc.EscalateStaleCalculated(72*time.Hour, 50)
	if err != nil {
		t.Fatalf("escalate failed: %v", err)
	}
	if escalated != 1 {
		t.Fatalf("expected 1 escalated, got %d", escalated)
	}

	current, _ := svc.commissionRepo.GetByID(stale.ID)
	if current.Status != constants.CommissionStatusPendingReview {
		t.Fatalf("expected stale record escalated, got %s", current.Status)
	}
	current, _ = svc.commissionRepo.GetByID(fresh.ID)
	if current.Status != constants.CommissionStatusCalculated {
		t.Fatalf("fresh record must stay calculated, got %s", current.Status)
	}

	events := listApprovalTestEvents(t, db, stale.ID)
	if len(events) != 1 || events[0].PerformedBy != 0 || events[0].Notes != "auto review" {
		t.Fatalf("expected system auto review event, got %+v", events)
	}
}
