package engine

import (
	"github.com/commission-next/internal/models"

	"github.com/shopspring/decimal"
)

// Context 单条规则执行上下文
// Deal 在整条流水线内只读；BaseCommission 为流水线写入的当前累计金额。
type Context struct {
	Deal                 *models.Deal
	Config               models.JSON
	Tiers                []models.RuleTier
	BaseCommission       decimal.Decimal
	UserSalesTotal       decimal.Decimal
	AttainmentPercentage decimal.Decimal
	DealCount            int64
	AverageDealSize      decimal.Decimal
	Facts                map[string]interface{}
}

// Metrics 计算上下文的业绩口径输入
type Metrics struct {
	UserSalesTotal       decimal.Decimal
	AttainmentPercentage decimal.Decimal
	DealCount            int64
	AverageDealSize      decimal.Decimal
}

// NewContext 构建计算上下文并展开条件事实
func NewContext(deal *models.Deal, metrics Metrics) *Context {
	ctx := &Context{
		Deal:                 deal,
		UserSalesTotal:       metrics.UserSalesTotal,
		AttainmentPercentage: metrics.AttainmentPercentage,
		DealCount:            metrics.DealCount,
		AverageDealSize:      metrics.AverageDealSize,
	}
	ctx.Facts = buildFacts(deal, metrics)
	return ctx
}

// buildFacts 展开条件求值事实表
// 顶层事实与 "deal" 嵌套对象同时暴露，规则可以写 amount 也可以写 deal.amount。
func buildFacts(deal *models.Deal, metrics Metrics) map[string]interface{} {
	facts := map[string]interface{}{
		"attainmentPercentage": metrics.AttainmentPercentage,
		"userSalesTotal":       metrics.UserSalesTotal,
		"dealCount":            decimal.NewFromInt(metrics.DealCount),
		"averageDealSize":      metrics.AverageDealSize,
	}
	if deal == nil {
		facts["deal"] = map[string]interface{}{}
		return facts
	}

	dealFacts := map[string]interface{}{
		"amount":           deal.Amount.Decimal,
		"product_type":     deal.ProductType,
		"product_category": deal.ProductCategory,
		"stage":            deal.Stage,
		"sales_rep_id":     decimal.NewFromInt(int64(deal.SalesRepID)),
		"company_id":       decimal.NewFromInt(int64(deal.CompanyID)),
	}
	if deal.CloseDate != nil {
		dealFacts["close_date"] = deal.CloseDate.Format("2006-01-02")
	}

	facts["amount"] = deal.Amount.Decimal
	facts["productType"] = deal.ProductType
	facts["productCategory"] = deal.ProductCategory
	facts["stage"] = deal.Stage
	facts["deal"] = dealFacts
	return facts
}
