package admin

import (
	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/http/response"
	"github.com/commission-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ApprovalRequest 审批动作请求
type ApprovalRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) processApprovalAction(c *gin.Context, action string) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	// 备注可选，空请求体不视为错误
	var req ApprovalRequest
	_ = c.ShouldBindJSON(&req)
	record, err := h.ApprovalService.ProcessApproval(id, action, adminID, req.Notes)
	if err != nil {
		respondServiceError(c, err, "审批操作失败")
		return
	}
	response.Success(c, record)
}

// ReviewCommission 提交复核
func (h *Handler) ReviewCommission(c *gin.Context) {
	h.processApprovalAction(c, constants.ApprovalActionReview)
}

// ApproveCommission 批准
func (h *Handler) ApproveCommission(c *gin.Context) {
	h.processApprovalAction(c, constants.ApprovalActionApprove)
}

// RejectCommission 驳回
func (h *Handler) RejectCommission(c *gin.Context) {
	h.processApprovalAction(c, constants.ApprovalActionReject)
}

// PayCommission 发放
func (h *Handler) PayCommission(c *gin.Context) {
	h.processApprovalAction(c, constants.ApprovalActionPay)
}

// AdjustApproveCommission 调整金额并批准
func (h *Handler) AdjustApproveCommission(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.AdjustInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	record, err := h.ApprovalService.ProcessAdjustAndApprove(id, adminID, req)
	if err != nil {
		respondServiceError(c, err, "调整审批失败")
		return
	}
	response.Success(c, record)
}

// BulkApprovalRequest 批量审批请求
type BulkApprovalRequest struct {
	IDs   []uint `json:"ids" binding:"required"`
	Notes string `json:"notes"`
}

func (h *Handler) processBulkApproval(c *gin.Context, action string) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req BulkApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	results, err := h.ApprovalService.ProcessBulkApproval(req.IDs, action, adminID, req.Notes)
	if err != nil {
		respondServiceError(c, err, "批量审批失败")
		return
	}
	succeeded := 0
	for _, item := range results {
		if item.Success {
			succeeded++
		}
	}
	requestLog(c).Infow("admin_bulk_approval_finished",
		"action", action,
		"total", len(results),
		"succeeded", succeeded,
	)
	response.Success(c, gin.H{
		"total":     len(results),
		"succeeded": succeeded,
		"results":   results,
	})
}

// BulkApproveCommissions 批量批准
func (h *Handler) BulkApproveCommissions(c *gin.Context) {
	h.processBulkApproval(c, constants.ApprovalActionApprove)
}

// BulkRejectCommissions 批量驳回
func (h *Handler) BulkRejectCommissions(c *gin.Context) {
	h.processBulkApproval(c, constants.ApprovalActionReject)
}
