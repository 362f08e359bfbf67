package app

import (
	"errors"
	"time"

	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/provider"
	"github.com/dujiao-next/storefront/internal/router"
	"github.com/dujiao-next/storefront/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, err
	}

	services, err := buildServices(cfg, container, mode)
	if err != nil {
		_ = container.Close()
		return nil, err
	}

	runner := NewRunner(services...)
	runner.OnShutdown(container.Close)
	return runner, nil
}

func buildServices(cfg *config.Config, container *provider.Container, mode string) ([]Service, error) {
	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	if mode == ModeAll || mode == ModeWorker {
		if cfg.Queue.Enabled && container.QueueClient != nil {
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else {
			logger.Warnw("app_queue_disabled", "mode", mode, "fallback", "idle_sweep_only")
		}

		if cfg.Cart.IdleExpireMinutes > 0 {
			sweeper, err := worker.NewSweepService(
				container.CartService,
				time.Duration(cfg.Cart.SweepIntervalMinutes)*time.Minute,
				cfg.Cart.SweepBatchSize,
			)
			if err != nil {
				return nil, err
			}
			services = append(services, sweeper)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return services, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
