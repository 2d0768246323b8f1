package service

import (
	"context"
	"fmt"
	"time"

	"github.com/commission-next/internal/cache"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/repository"
)

// DashboardService 仪表盘服务
// 聚合结果短缓存在 Redis，避免反复全表扫描。
type DashboardService struct {
	dashboardRepo repository.DashboardRepository
	cacheTTL      time.Duration
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(dashboardRepo repository.DashboardRepository) *DashboardService {
	return &DashboardService{
		dashboardRepo: dashboardRepo,
		cacheTTL:      60 * time.Second,
	}
}

// DashboardSnapshot 仪表盘快照
type DashboardSnapshot struct {
	Range           string                              `json:"range"`
	StartAt         time.Time                           `json:"start_at"`
	EndAt           time.Time                           `json:"end_at"`
	Overview        repository.DashboardOverviewRow     `json:"overview"`
	StatusBreakdown []repository.DashboardStatusRow     `json:"status_breakdown"`
	Trends          []repository.DashboardTrendRow      `json:"trends"`
	TopReps         []repository.DashboardRepRankingRow `json:"top_reps"`
}

// resolveRange 支持 7d / 30d / 90d，默认 30d
func resolveRange(rangeKey string) (string, time.Time, time.Time) {
	days := 30
	switch rangeKey {
	case "7d":
		days = 7
	case "90d":
		days = 90
	default:
		rangeKey = "30d"
	}
	end := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	return rangeKey, end.AddDate(0, 0, -days), end
}

// GetSnapshot 获取仪表盘快照
func (s *DashboardService) GetSnapshot(ctx context.Context, companyID uint, rangeKey string) (*DashboardSnapshot, error) {
	rangeKey, startAt, endAt := resolveRange(rangeKey)

	cacheKey := fmt.Sprintf("dashboard:%d:%s", companyID, rangeKey)
	var cached DashboardSnapshot
	if hit, err := cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	overview, err := s.dashboardRepo.GetOverview(companyID, startAt, endAt)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.dashboardRepo.GetStatusBreakdown(companyID, startAt, endAt)
	if err != nil {
		return nil, err
	}
	trends, err := s.dashboardRepo.GetCommissionTrends(companyID, startAt, endAt)
	if err != nil {
		return nil, err
	}
	topReps, err := s.dashboardRepo.GetTopReps(companyID, startAt, endAt, 10)
	if err != nil {
		return nil, err
	}

	snapshot := &DashboardSnapshot{
		Range:           rangeKey,
		StartAt:         startAt,
		EndAt:           endAt,
		Overview:        overview,
		StatusBreakdown: breakdown,
		Trends:          trends,
		TopReps:         topReps,
	}
	if err := cache.SetJSON(ctx, cacheKey, snapshot, s.cacheTTL); err != nil {
		logger.Warnw("dashboard_cache_write_failed", "error", err)
	}
	return snapshot, nil
}
