package repository

import (
	"fmt"
	"time"

	"github.com/commission-next/internal/constants"
	"github.com/commission-next/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(companyID uint, startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetStatusBreakdown(companyID uint, startAt, endAt time.Time) ([]DashboardStatusRow, error)
	GetCommissionTrends(companyID uint, startAt, endAt time.Time) ([]DashboardTrendRow, error)
	GetTopReps(companyID uint, startAt, endAt time.Time, limit int) ([]DashboardRepRankingRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	DealsTotal        int64
	DealsClosedWon    int64
	DealAmountClosed  float64
	CommissionsTotal  int64
	PendingReview     int64
	AmountPending     float64
	AmountApproved    float64
	AmountPaid        float64
	ActiveRules       int64
	ActiveReps        int64
}

// DashboardStatusRow 按审批状态的数量与金额分布
type DashboardStatusRow struct {
	Status string
	Count  int64
	Amount float64
}

// DashboardTrendRow 佣金计算趋势（按天）
type DashboardTrendRow struct {
	Day    string
	Count  int64
	Amount float64
}

// DashboardRepRankingRow 销售代表佣金排行
type DashboardRepRankingRow struct {
	SalesRepID uint
	Name       string
	Count      int64
	Amount     float64
}

// GormDashboardRepository GORM 实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

func settledStatuses() []string {
	return []string{constants.CommissionStatusApproved, constants.CommissionStatusPaid}
}

// GetOverview 获取周期总览
func (r *GormDashboardRepository) GetOverview(companyID uint, startAt, endAt time.Time) (DashboardOverviewRow, error) {
	var row DashboardOverviewRow

	dealBase := func() *gorm.DB {
		query := r.db.Model(&models.Deal{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
		if companyID > 0 {
			query = query.Where("company_id = ?", companyID)
		}
		return query
	}
	if err := dealBase().Count(&row.DealsTotal).Error; err != nil {
		return row, err
	}
	if err := dealBase().Where("stage = ?", constants.DealStageClosedWon).Count(&row.DealsClosedWon).Error; err != nil {
		return row, err
	}
	var dealAmount struct{ Total float64 }
	if err := dealBase().Where("stage = ?", constants.DealStageClosedWon).
		Select("COALESCE(SUM(amount), 0) as total").Scan(&dealAmount).Error; err != nil {
		return row, err
	}
	row.DealAmountClosed = dealAmount.Total

	commissionBase := func() *gorm.DB {
		query := r.db.Model(&models.CommissionRecord{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
		if companyID > 0 {
			query = query.Where("company_id = ?", companyID)
		}
		return query
	}
	if err := commissionBase().Count(&row.CommissionsTotal).Error; err != nil {
		return row, err
	}
	if err := commissionBase().Where("status = ?", constants.CommissionStatusPendingReview).
		Count(&row.PendingReview).Error; err != nil {
		return row, err
	}

	sumByStatus := func(statuses []string) (float64, error) {
		var amount struct{ Total float64 }
		err := commissionBase().Where("status IN ?", statuses).
			Select("COALESCE(SUM(commission_amount), 0) as total").Scan(&amount).Error
		return amount.Total, err
	}
	var err error
	if row.AmountPending, err = sumByStatus([]string{
		constants.CommissionStatusCalculated, constants.CommissionStatusPendingReview}); err != nil {
		return row, err
	}
	if row.AmountApproved, err = sumByStatus([]string{constants.CommissionStatusApproved}); err != nil {
		return row, err
	}
	if row.AmountPaid, err = sumByStatus([]string{constants.CommissionStatusPaid}); err != nil {
		return row, err
	}

	ruleQuery := r.db.Model(&models.CommissionRule{}).Where("is_active = ?", true)
	if companyID > 0 {
		ruleQuery = ruleQuery.Where("company_id = ?", companyID)
	}
	if err := ruleQuery.Count(&row.ActiveRules).Error; err != nil {
		return row, err
	}
	repQuery := r.db.Model(&models.SalesRep{}).Where("is_active = ?", true)
	if companyID > 0 {
		repQuery = repQuery.Where("company_id = ?", companyID)
	}
	if err := repQuery.Count(&row.ActiveReps).Error; err != nil {
		return row, err
	}
	return row, nil
}

// GetStatusBreakdown 按状态统计数量与金额
func (r *GormDashboardRepository) GetStatusBreakdown(companyID uint, startAt, endAt time.Time) ([]DashboardStatusRow, error) {
	rows := make([]DashboardStatusRow, 0)
	query := r.db.Model(&models.CommissionRecord{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(commission_amount), 0) as amount").
		Where("created_at >= ? AND created_at < ?", startAt, endAt)
	if companyID > 0 {
		query = query.Where("company_id = ?", companyID)
	}
	if err := query.Group("status").Order("status ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetCommissionTrends 按天统计计算产出
func (r *GormDashboardRepository) GetCommissionTrends(companyID uint, startAt, endAt time.Time) ([]DashboardTrendRow, error) {
	rows := make([]DashboardTrendRow, 0)
	expr := dayExpr("calculated_at")
	query := r.db.Model(&models.CommissionRecord{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as count, COALESCE(SUM(commission_amount), 0) as amount", expr)).
		Where("calculated_at >= ? AND calculated_at < ?", startAt, endAt)
	if companyID > 0 {
		query = query.Where("company_id = ?", companyID)
	}
	if err := query.Group(expr).Order("day asc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTopReps 已批准/已支付佣金金额排行
func (r *GormDashboardRepository) GetTopReps(companyID uint, startAt, endAt time.Time, limit int) ([]DashboardRepRankingRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows := make([]DashboardRepRankingRow, 0, limit)
	query := r.db.Model(&models.CommissionRecord{}).
		Select(`commission_records.sales_rep_id as sales_rep_id,
			sales_reps.name as name,
			COUNT(*) as count,
			COALESCE(SUM(commission_records.commission_amount), 0) as amount`).
		Joins("JOIN sales_reps ON sales_reps.id = commission_records.sales_rep_id").
		Where("commission_records.created_at >= ? AND commission_records.created_at < ?", startAt, endAt).
		Where("commission_records.status IN ?", settledStatuses())
	if companyID > 0 {
		query = query.Where("commission_records.company_id = ?", companyID)
	}
	err := query.Group("commission_records.sales_rep_id, sales_reps.name").
		Order("amount DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
