package queue

import (
	"encoding/json"

	"github.com/commission-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionCalculate 佣金计算任务
	TaskCommissionCalculate = constants.TaskCommissionCalculate
	// TaskCommissionNotify 佣金状态通知任务
	TaskCommissionNotify = constants.TaskCommissionNotify
)

// CommissionCalculatePayload 佣金计算任务载荷
type CommissionCalculatePayload struct {
	DealID uint `json:"deal_id"`
}

// NewCommissionCalculateTask 构建佣金计算任务
func NewCommissionCalculateTask(payload CommissionCalculatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionCalculate, data), nil
}

// CommissionNotifyPayload 佣金状态通知任务载荷
type CommissionNotifyPayload struct {
	CommissionID uint   `json:"commission_id"`
	Action       string `json:"action"`
	NewStatus    string `json:"new_status"`
}

// NewCommissionNotifyTask 构建佣金状态通知任务
func NewCommissionNotifyTask(payload CommissionNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionNotify, data), nil
}
