package repository

import "time"

// SalesRepListFilter 查询销售代表列表的过滤条件
type SalesRepListFilter struct {
	Page       int
	PageSize   int
	CompanyID  uint
	Keyword    string
	OnlyActive bool
}

// DealListFilter 查询成交单列表的过滤条件
type DealListFilter struct {
	Page       int
	PageSize   int
	CompanyID  uint
	SalesRepID uint
	Stage      string
	DealNo     string
	ClosedFrom *time.Time
	ClosedTo   *time.Time
}

// RuleListFilter 查询佣金规则列表的过滤条件
type RuleListFilter struct {
	Page      int
	PageSize  int
	CompanyID uint
	RuleType  string
	IsActive  *bool
	Search    string
}

// CommissionListFilter 查询佣金记录列表的过滤条件
type CommissionListFilter struct {
	Page        int
	PageSize    int
	CompanyID   uint
	SalesRepID  uint
	DealID      uint
	Status      string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
