package worker

import (
	"context"
	"time"

	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/provider"
	"github.com/dujiao-next/storefront/internal/queue"

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
	mux.HandleFunc(queue.TaskCartIdleExpire, c.handleCartIdleExpire)
}

func (c *Consumer) handleCartIdleExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_cart_idle_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCartIdleExpirePayload(task)
	if err != nil {
		logger.Warnw("worker_cart_idle_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.CartID == "" {
		logger.Debugw("worker_cart_idle_expire_skip_invalid_payload", "cart_id", payload.CartID)
		return nil
	}
	if c.CartService == nil {
		logger.Warnw("worker_cart_idle_expire_skip_service_nil", "cart_id", payload.CartID)
		return nil
	}
	removed, err := c.CartService.ExpireIdle(payload.CartID, time.Unix(payload.ActiveAt, 0))
	if err != nil {
		logger.Warnw("worker_cart_idle_expire_failed", "cart_id", payload.CartID, "error", err)
		return err
	}
	if !removed {
		logger.Debugw("worker_cart_idle_expire_skip_active", "cart_id", payload.CartID)
	}
	return nil
}
