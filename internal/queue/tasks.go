package queue

import (
	"encoding/json"

	"github.com/dujiao-next/storefront/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCartIdleExpire 购物车闲置过期任务
	TaskCartIdleExpire = constants.TaskCartIdleExpire
)

// CartIdleExpirePayload 购物车闲置过期任务载荷
type CartIdleExpirePayload struct {
	CartID string `json:"cart_id"`
	// ActiveAt 投递时购物车的活跃时间（Unix 秒），执行时若购物车更新过则跳过
	ActiveAt int64 `json:"active_at"`
}

// NewCartIdleExpireTask 创建购物车闲置过期任务
func NewCartIdleExpireTask(payload CartIdleExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartIdleExpire, body), nil
}

// ParseCartIdleExpirePayload 解析任务载荷
func ParseCartIdleExpirePayload(task *asynq.Task) (CartIdleExpirePayload, error) {
	var payload CartIdleExpirePayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
