package worker

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/storefront/internal/logger"
)

const (
	defaultSweepInterval  = 10 * time.Minute
	defaultSweepBatchSize = 200
)

// IdleSweeper 定期删除闲置购物车的清理器接口
type IdleSweeper interface {
	SweepIdle(limit int) (int, error)
}

// SweepService 闲置购物车兜底清理服务（队列任务丢失或未启用队列时生效）
type SweepService struct {
	sweeper   IdleSweeper
	interval  time.Duration
	batchSize int
}

// NewSweepService 创建兜底清理服务
func NewSweepService(sweeper IdleSweeper, interval time.Duration, batchSize int) (*SweepService, error) {
	if sweeper == nil {
		return nil, errors.New("sweeper is nil")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &SweepService{sweeper: sweeper, interval: interval, batchSize: batchSize}, nil
}

// Name 服务名称
func (s *SweepService) Name() string {
	return "idle_sweeper"
}

// Start 启动定时清理，阻塞直到 ctx 结束
func (s *SweepService) Start(ctx context.Context) error {
	s.runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runOnce()
		}
	}
}

// Stop 停止服务
func (s *SweepService) Stop(ctx context.Context) error {
	return nil
}

func (s *SweepService) runOnce() {
	removed, err := s.sweeper.SweepIdle(s.batchSize)
	if err != nil {
		logger.Warnw("worker_cart_idle_sweep_failed", "error", err)
		return
	}
	if removed > 0 {
		logger.Infow("worker_cart_idle_sweep_done", "removed", removed)
	}
}
