package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// queryTime 解析时间查询参数，支持 RFC3339 与纯日期两种格式
func queryTime(c *gin.Context, name string) *time.Time {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	if value, err := time.Parse(time.RFC3339, raw); err == nil {
		return &value
	}
	if value, err := time.Parse("2006-01-02", raw); err == nil {
		utc := value.UTC()
		return &utc
	}
	return nil
}

func queryCompanyID(c *gin.Context) uint {
	if id := queryUint(c, "company_id"); id != 0 {
		return id
	}
	return constants.DefaultCompanyID
}

func repositorySalesRepFilter(c *gin.Context, page, pageSize int) repository.SalesRepListFilter {
	return repository.SalesRepListFilter{
		Page:       page,
		PageSize:   pageSize,
		CompanyID:  queryCompanyID(c),
		Keyword:    strings.TrimSpace(c.Query("keyword")),
		OnlyActive: c.Query("only_active") == "true",
	}
}

func repositoryDealFilter(c *gin.Context, page, pageSize int) repository.DealListFilter {
	return repository.DealListFilter{
		Page:       page,
		PageSize:   pageSize,
		CompanyID:  queryCompanyID(c),
		SalesRepID: queryUint(c, "sales_rep_id"),
		Stage:      strings.TrimSpace(c.Query("stage")),
		DealNo:     strings.TrimSpace(c.Query("deal_no")),
		ClosedFrom: queryTime(c, "closed_from"),
		ClosedTo:   queryTime(c, "closed_to"),
	}
}

func repositoryRuleFilter(c *gin.Context, page, pageSize int) repository.RuleListFilter {
	filter := repository.RuleListFilter{
		Page:      page,
		PageSize:  pageSize,
		CompanyID: queryCompanyID(c),
		RuleType:  strings.TrimSpace(c.Query("rule_type")),
		Search:    strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.IsActive = &active
		}
	}
	return filter
}

func repositoryCommissionFilter(c *gin.Context, page, pageSize int) repository.CommissionListFilter {
	return repository.CommissionListFilter{
		Page:        page,
		PageSize:    pageSize,
		CompanyID:   queryCompanyID(c),
		SalesRepID:  queryUint(c, "sales_rep_id"),
		DealID:      queryUint(c, "deal_id"),
		Status:      strings.TrimSpace(c.Query("status")),
		PeriodStart: queryTime(c, "period_start"),
		PeriodEnd:   queryTime(c, "period_end"),
		CreatedFrom: queryTime(c, "created_from"),
		CreatedTo:   queryTime(c, "created_to"),
	}
}
