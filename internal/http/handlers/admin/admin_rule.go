package admin

import (
	"strconv"

	"github.com/commission-next/internal/constants"
	handlershared "github.com/commission-next/internal/http/handlers/shared"
	"github.com/commission-next/internal/http/response"
	"github.com/commission-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateRuleRequest 创建规则请求
type CreateRuleRequest struct {
	service.RuleInput
	CompanyID uint `json:"company_id"`
}

// ListRules 获取佣金规则列表
func (h *Handler) ListRules(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	rules, total, err := h.RuleService.ListRules(repositoryRuleFilter(c, page, pageSize))
	if err != nil {
		respondError(c, response.CodeInternal, "规则列表获取失败", err)
		return
	}
	response.SuccessWithPage(c, rules, response.NewPagination(page, pageSize, total))
}

// GetRule 获取规则详情
func (h *Handler) GetRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rule, err := h.RuleService.GetRule(id)
	if err != nil {
		respondServiceError(c, err, "规则获取失败")
		return
	}
	response.Success(c, rule)
}

// CreateRule 创建佣金规则
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	companyID := req.CompanyID
	if companyID == 0 {
		companyID = constants.DefaultCompanyID
	}
	rule, err := h.RuleService.CreateRule(companyID, req.RuleInput)
	if err != nil {
		respondServiceError(c, err, "规则创建失败")
		return
	}
	requestLog(c).Infow("admin_rule_created",
		"rule_id", rule.ID,
		"rule_type", rule.RuleType,
		"priority", rule.Priority,
	)
	response.Success(c, rule)
}

// ValidateRule 试运行规则校验（不落库）
func (h *Handler) ValidateRule(c *gin.Context) {
	var req service.RuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	if err := h.RuleService.ValidateRule(req); err != nil {
		response.Success(c, gin.H{"valid": false, "reason": err.Error()})
		return
	}
	response.Success(c, gin.H{"valid": true})
}

// UpdateRule 更新佣金规则
func (h *Handler) UpdateRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.RuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	rule, err := h.RuleService.UpdateRule(id, req)
	if err != nil {
		respondServiceError(c, err, "规则更新失败")
		return
	}
	response.Success(c, rule)
}

// SetRuleActiveRequest 启停规则请求
type SetRuleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetRuleActive 启用/停用规则
func (h *Handler) SetRuleActive(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req SetRuleActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	rule, err := h.RuleService.SetActive(id, *req.IsActive)
	if err != nil {
		respondServiceError(c, err, "规则状态更新失败")
		return
	}
	response.Success(c, rule)
}

// DeleteRule 删除佣金规则
func (h *Handler) DeleteRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.RuleService.DeleteRule(id); err != nil {
		respondServiceError(c, err, "规则删除失败")
		return
	}
	response.Success(c, nil)
}

// ListRuleTypes 获取内置策略类型列表
func (h *Handler) ListRuleTypes(c *gin.Context) {
	response.Success(c, h.RuleService.StrategyTypes())
}
