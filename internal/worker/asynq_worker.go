package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/commission-next/internal/logger"
	"github.com/commission-next/internal/provider"
	"github.com/commission-next/internal/queue"
	"github.com/commission-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionCalculate, c.handleCommissionCalculate)
	mux.HandleFunc(queue.TaskCommissionNotify, c.handleCommissionNotify)
}

func (c *Consumer) handleCommissionCalculate(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_calculate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionCalculatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_calculate_unmarshal_failed", "error", err)
		return err
	}
	if payload.DealID == 0 {
		logger.Debugw("worker_commission_calculate_skip_invalid_payload", "deal_id", payload.DealID)
		return nil
	}
	record, err := c.CommissionService.CalculateForDeal(payload.DealID, 0)
	if err != nil {
		// 任务入队与同步兜底可能重复触发，已存在视为成功
		if errors.Is(err, service.ErrCommissionExists) {
			logger.Debugw("worker_commission_calculate_skip_exists", "deal_id", payload.DealID)
			return nil
		}
		if errors.Is(err, service.ErrDealNotFound) {
			logger.Warnw("worker_commission_calculate_skip_deal_not_found", "deal_id", payload.DealID)
			return nil
		}
		logger.Warnw("worker_commission_calculate_failed", "deal_id", payload.DealID, "error", err)
		return err
	}
	logger.Infow("worker_commission_calculated",
		"deal_id", payload.DealID,
		"commission_id", record.ID,
		"amount", record.CommissionAmount.String(),
	)
	if c.QueueClient != nil {
		notify := queue.CommissionNotifyPayload{CommissionID: record.ID, Action: "calculate", NewStatus: record.Status}
		if err := c.QueueClient.EnqueueCommissionNotify(notify); err != nil {
			logger.Debugw("worker_commission_notify_enqueue_failed", "commission_id", record.ID, "error", err)
		}
	}
	return nil
}

func (c *Consumer) handleCommissionNotify(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.CommissionID == 0 {
		logger.Debugw("worker_commission_notify_skip_invalid_payload", "commission_id", payload.CommissionID)
		return nil
	}
	record, err := c.CommissionRepo.GetByID(payload.CommissionID)
	if err != nil {
		logger.Warnw("worker_commission_notify_fetch_failed", "commission_id", payload.CommissionID, "error", err)
		return err
	}
	if record == nil {
		logger.Debugw("worker_commission_notify_skip_not_found", "commission_id", payload.CommissionID)
		return nil
	}
	// 暂无外部通知渠道，记录结构化日志供下游采集
	logger.Infow("worker_commission_notified",
		"commission_id", record.ID,
		"deal_id", record.DealID,
		"sales_rep_id", record.SalesRepID,
		"action", payload.Action,
		"status", payload.NewStatus,
	)
	return nil
}
