package provider

import (
	"errors"
	"time"

	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/metrics"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/pricing"
	"github.com/dujiao-next/storefront/internal/queue"
	"github.com/dujiao-next/storefront/internal/repository"
	"github.com/dujiao-next/storefront/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Metrics
	MetricsRegistry *prometheus.Registry
	CartMetrics     *metrics.CartMetrics
	HTTPMetrics     *metrics.HTTPMetrics

	// Repositories
	ProductRepo repository.ProductRepository
	CartRepo    repository.CartRepository
	CouponRepo  repository.CouponRepository

	// Services
	ProductService *service.ProductService
	CouponService  *service.CouponService
	CartService    *service.CartService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) (*Container, error) {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initMetrics()
	c.initRepositories(models.DB)
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close 释放队列与缓存连接
func (c *Container) Close() error {
	var errs []error
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := cache.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Container) initMetrics() {
	if !c.Config.Metrics.Enabled {
		c.CartMetrics = metrics.NewCartMetrics(nil)
		c.HTTPMetrics = metrics.NewHTTPMetrics(nil)
		return
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.MetricsRegistry = registry
	c.CartMetrics = metrics.NewCartMetrics(registry)
	c.HTTPMetrics = metrics.NewHTTPMetrics(registry)
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
}

func (c *Container) initServices() error {
	policy, err := c.Config.Pricing.ToPolicy()
	if err != nil {
		logger.Errorw("provider_pricing_policy_invalid", "error", err)
		return err
	}
	defaultPercent, err := decimal.NewFromString(c.Config.Coupon.DefaultPercent)
	if err != nil {
		logger.Warnw("provider_default_coupon_percent_invalid", "value", c.Config.Coupon.DefaultPercent, "error", err)
		defaultPercent = pricing.DefaultCouponRules()[pricing.DefaultCouponCode]
	}

	c.ProductService = service.NewProductService(c.ProductRepo)
	c.CouponService = service.NewCouponService(
		c.CouponRepo,
		c.Config.Coupon.DefaultCode,
		defaultPercent,
		time.Duration(c.Config.Coupon.RulesCacheSeconds)*time.Second,
	)
	c.CartService = service.NewCartService(
		c.CartRepo,
		c.ProductService,
		c.CouponService,
		c.QueueClient,
		c.CartMetrics,
		policy,
		service.CartOptions{
			IdleExpire:         time.Duration(c.Config.Cart.IdleExpireMinutes) * time.Minute,
			MaxItems:           c.Config.Cart.MaxItems,
			MaxQuantity:        c.Config.Cart.MaxQuantity,
			ResetCouponOnClear: c.Config.Coupon.ResetOnClear,
		},
	)
	return nil
}
