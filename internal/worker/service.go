package worker

import (
	"context"
	"errors"
	"time"

	"github.com/commission-next/internal/config"
	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	autoReviewInterval   = 10 * time.Minute
	autoReviewBatchLimit = 200
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.autoReviewEnabled() {
		go s.runAutoReviewLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) autoReviewEnabled() bool {
	if s == nil || s.consumer == nil || s.consumer.ApprovalService == nil || s.consumer.Config == nil {
		return false
	}
	cfg := s.consumer.Config.Commission
	return cfg.AutoReviewEnabled && cfg.AutoReviewAfterHours > 0
}

// runAutoReviewLoop 定时把超时未处理的已计算记录推进到待复核
func (s *Service) runAutoReviewLoop(ctx context.Context) {
	olderThan := time.Duration(s.consumer.Config.Commission.AutoReviewAfterHours) * time.Hour
	runOnce := func() {
		escalated, err := s.consumer.ApprovalService.EscalateStaleCalculated(olderThan, autoReviewBatchLimit)
		if err != nil {
			logger.Warnw("worker_auto_review_failed", "error", err)
			return
		}
		if escalated > 0 {
			logger.Infow("worker_auto_review_escalated", "count", escalated)
		}
	}
	runOnce()

	ticker := time.NewTicker(autoReviewInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
