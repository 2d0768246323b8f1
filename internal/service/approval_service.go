package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/commission-next/internal/config"
	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/models"
	"github.com/commission-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// allowedTransitions 审批动作允许的起始状态
var allowedTransitions = map[string][]string{
	constants.ApprovalActionReview: {
		constants.CommissionStatusCalculated,
		constants.CommissionStatusRejected,
	},
	constants.ApprovalActionApprove: {
		constants.CommissionStatusPendingReview,
		constants.CommissionStatusCalculated,
	},
	constants.ApprovalActionReject: {
		constants.CommissionStatusCalculated,
		constants.CommissionStatusPendingReview,
		constants.CommissionStatusApproved,
	},
	constants.ApprovalActionPay: {
		constants.CommissionStatusApproved,
	},
	constants.ApprovalActionAdjustAndApprove: {
		constants.CommissionStatusCalculated,
		constants.CommissionStatusPendingReview,
	},
}

// targetStatus 审批动作的目标状态
var targetStatus = map[string]string{
	constants.ApprovalActionReview:           constants.CommissionStatusPendingReview,
	constants.ApprovalActionApprove:          constants.CommissionStatusApproved,
	constants.ApprovalActionReject:           constants.CommissionStatusRejected,
	constants.ApprovalActionPay:              constants.CommissionStatusPaid,
	constants.ApprovalActionAdjustAndApprove: constants.CommissionStatusApproved,
}

func transitionAllowed(action, status string) bool {
	for _, allowed := range allowedTransitions[action] {
		if allowed == status {
			return true
		}
	}
	return false
}

// ApprovalService 审批状态机服务
// 状态推进走条件更新（WHERE id AND status），并发竞争中落败的一方
// 得到 ErrConcurrentUpdate；每次成功迁移在同一事务内追加审批事件。
type ApprovalService struct {
	db             *gorm.DB
	cfg            *config.Config
	commissionRepo repository.CommissionRepository
	eventRepo      repository.ApprovalEventRepository
}

// NewApprovalService 创建审批服务
func NewApprovalService(db *gorm.DB, cfg *config.Config, commissionRepo repository.CommissionRepository, eventRepo repository.ApprovalEventRepository) *ApprovalService {
	return &ApprovalService{
		db:             db,
		cfg:            cfg,
		commissionRepo: commissionRepo,
		eventRepo:      eventRepo,
	}
}

// buildActionUpdates 组装动作对应的字段更新
func buildActionUpdates(action string, performedBy uint, notes string, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{
		"status":     targetStatus[action],
		"updated_at": now,
	}
	operator := performedBy
	switch action {
	case constants.ApprovalActionReview:
		updates["reviewed_at"] = now
		updates["reviewed_by"] = operator
	case constants.ApprovalActionApprove:
		updates["approved_at"] = now
		updates["approved_by"] = operator
	case constants.ApprovalActionReject:
		updates["rejected_at"] = now
		updates["rejected_by"] = operator
		updates["rejection_reason"] = strings.TrimSpace(notes)
	case constants.ApprovalActionPay:
		reference := strings.TrimSpace(notes)
		if reference == "" {
			reference = "PAY-" + strings.ToUpper(uuid.NewString()[:8])
		}
		updates["paid_at"] = now
		updates["paid_by"] = operator
		updates["payment_reference"] = reference
	}
	return updates
}

// ProcessApproval 执行单个审批动作
func (s *ApprovalService) ProcessApproval(commissionID uint, action string, performedBy uint, notes string) (*models.CommissionRecord, error) {
	target, ok := targetStatus[action]
	if !ok || action == constants.ApprovalActionAdjustAndApprove {
		return nil, fmt.Errorf("unknown approval action: %s", action)
	}

	record, err := s.commissionRepo.GetByID(commissionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrCommissionNotFound
	}
	if !transitionAllowed(action, record.Status) {
		return nil, &IllegalTransitionError{Action: action, Status: record.Status}
	}

	now := time.Now().UTC()
	previousStatus := record.Status
	updates := buildActionUpdates(action, performedBy, notes, now)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		affected, err := s.commissionRepo.WithTx(tx).UpdateStatusIf(commissionID, previousStatus, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrConcurrentUpdate
		}
		event := &models.ApprovalEvent{
			CommissionID:   commissionID,
			Action:         action,
			PerformedBy:    performedBy,
			PreviousStatus: previousStatus,
			NewStatus:      target,
			Notes:          strings.TrimSpace(notes),
			PerformedAt:    now,
		}
		return s.eventRepo.WithTx(tx).Create(event)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("commission_status_changed",
		"commission_id", commissionID,
		"action", action,
		"from", previousStatus,
		"to", target,
		"performed_by", performedBy)
	return s.commissionRepo.GetByID(commissionID)
}

// AdjustInput 调整并批准输入
type AdjustInput struct {
	NewAmount decimal.Decimal `json:"new_amount" binding:"required"`
	Reason    string          `json:"reason" binding:"required"`
}

// ProcessAdjustAndApprove 调整金额并批准（单事件复合动作）
// 保留原金额供审计；调整原因强制最小长度。
func (s *ApprovalService) ProcessAdjustAndApprove(commissionID uint, performedBy uint, input AdjustInput) (*models.CommissionRecord, error) {
	reason := strings.TrimSpace(input.Reason)
	if len([]rune(reason)) < constants.AdjustmentReasonMinLength {
		return nil, ErrAdjustmentReasonTooShort
	}
	if input.NewAmount.IsNegative() {
		return nil, ErrAdjustmentAmountInvalid
	}

	record, err := s.commissionRepo.GetByID(commissionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrCommissionNotFound
	}
	action := constants.ApprovalActionAdjustAndApprove
	if !transitionAllowed(action, record.Status) {
		return nil, &IllegalTransitionError{Action: action, Status: record.Status}
	}

	now := time.Now().UTC()
	previousStatus := record.Status
	originalAmount := record.CommissionAmount
	newAmount := models.NewMoneyFromDecimal(input.NewAmount)

	updates := map[string]interface{}{
		"status":            constants.CommissionStatusApproved,
		"commission_amount": newAmount,
		"original_amount":   originalAmount,
		"adjustment_reason": reason,
		"adjusted_by":       performedBy,
		"adjusted_at":       now,
		"approved_at":       now,
		"approved_by":       performedBy,
		"updated_at":        now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		affected, err := s.commissionRepo.WithTx(tx).UpdateStatusIf(commissionID, previousStatus, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrConcurrentUpdate
		}
		event := &models.ApprovalEvent{
			CommissionID:   commissionID,
			Action:         action,
			PerformedBy:    performedBy,
			PreviousStatus: previousStatus,
			NewStatus:      constants.CommissionStatusApproved,
			Notes:          reason,
			Metadata: models.JSON{
				"original_amount": originalAmount.String(),
				"new_amount":      newAmount.String(),
			},
			PerformedAt: now,
		}
		return s.eventRepo.WithTx(tx).Create(event)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("commission_adjusted_and_approved",
		"commission_id", commissionID,
		"original_amount", originalAmount.String(),
		"new_amount", newAmount.String(),
		"performed_by", performedBy)
	return s.commissionRepo.GetByID(commissionID)
}

// BulkItemResult 批量审批单条结果
type BulkItemResult struct {
	CommissionID uint   `json:"commission_id"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// BulkPrecheckIssue 预校验失败明细
type BulkPrecheckIssue struct {
	CommissionID uint   `json:"commission_id"`
	Reason       string `json:"reason"`
}

// BulkPrecheckError 预校验失败时整批拒绝
type BulkPrecheckError struct {
	Issues []BulkPrecheckIssue
}

func (e *BulkPrecheckError) Error() string {
	return fmt.Sprintf("批量审批预校验失败：%d 条记录不满足条件", len(e.Issues))
}

func (e *BulkPrecheckError) Is(target error) bool {
	return target == ErrBulkPrecheckFailed
}

// 批量审批只接受还停留在审批前置状态的记录。
// 单条驳回允许撤回已批准的记录，批量动作刻意收窄到这两个状态，
// 防止一次误操作大面积回退已批准的佣金。
func bulkActionable(status string) bool {
	return status == constants.CommissionStatusCalculated ||
		status == constants.CommissionStatusPendingReview
}

// ProcessBulkApproval 批量审批
// 先整批预校验（存在性与状态是否属于可批量集合），任何一条不合格则
// 整批拒绝、不产生写入；预校验通过后逐条执行，单条失败不影响其他条目。
func (s *ApprovalService) ProcessBulkApproval(ids []uint, action string, performedBy uint, notes string) ([]BulkItemResult, error) {
	if len(ids) == 0 {
		return nil, ErrBulkNothingToApprove
	}
	if _, ok := targetStatus[action]; !ok || action == constants.ApprovalActionAdjustAndApprove {
		return nil, fmt.Errorf("unknown approval action: %s", action)
	}

	records, err := s.commissionRepo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.CommissionRecord, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}

	issues := make([]BulkPrecheckIssue, 0)
	for _, id := range ids {
		record, found := byID[id]
		if !found {
			issues = append(issues, BulkPrecheckIssue{CommissionID: id, Reason: ErrCommissionNotFound.Error()})
			continue
		}
		if !bulkActionable(record.Status) {
			issues = append(issues, BulkPrecheckIssue{
				CommissionID: id,
				Reason:       fmt.Sprintf("status %q is not eligible for bulk %s", record.Status, action),
			})
		}
	}
	if len(issues) > 0 {
		return nil, &BulkPrecheckError{Issues: issues}
	}

	results := make([]BulkItemResult, 0, len(ids))
	for _, id := range ids {
		if _, err := s.ProcessApproval(id, action, performedBy, notes); err != nil {
			logger.Warnw("bulk_approval_item_failed",
				"commission_id", id, "action", action, "error", err)
			results = append(results, BulkItemResult{CommissionID: id, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, BulkItemResult{CommissionID: id, Success: true})
	}
	return results, nil
}

// EscalateStaleCalculated 把长期停留在 calculated 的记录自动送审（操作人 0 为系统）
func (s *ApprovalService) EscalateStaleCalculated(olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	records, err := s.commissionRepo.ListStaleCalculated(cutoff, limit)
	if err != nil {
		return 0, err
	}
	escalated := 0
	for i := range records {
		if _, err := s.ProcessApproval(records[i].ID, constants.ApprovalActionReview, 0, "auto review"); err != nil {
			logger.Warnw("auto_review_escalation_failed",
				"commission_id", records[i].ID, "error", err)
			continue
		}
		escalated++
	}
	return escalated, nil
}
