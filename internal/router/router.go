package router

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/config"
	publichandlers "github.com/dujiao-next/storefront/internal/http/handlers/public"
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sf"
	}
	couponRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:coupon_apply", redisPrefix),
		WindowSeconds: cfg.Coupon.ApplyWindowSeconds,
		MaxRequests:   cfg.Coupon.ApplyRateLimit,
		MessageKey:    "error.coupon_too_many_attempts",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	if c.HTTPMetrics != nil {
		r.Use(MetricsMiddleware(c.HTTPMetrics))
	}

	r.GET("/healthz", healthz)
	if cfg.Metrics.Enabled && c.MetricsRegistry != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(c.MetricsRegistry, promhttp.HandlerOpts{})))
	}

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/products", publicHandler.GetProducts)
			public.GET("/products/:id", publicHandler.GetProduct)
		}

		// 会话购物车
		carts := apiV1.Group("/carts")
		{
			carts.POST("", publicHandler.CreateCart)
			carts.GET("/:id", publicHandler.GetCart)
			carts.POST("/:id/items", publicHandler.AddCartItem)
			carts.PUT("/:id/items/:product_id", publicHandler.SetCartItemQuantity)
			carts.DELETE("/:id/items/:product_id", publicHandler.RemoveCartItem)
			carts.DELETE("/:id/items", publicHandler.ClearCart)
			carts.POST("/:id/coupon", RateLimitMiddleware(cache.Client(), couponRule, KeyByIPAndParam("id")), publicHandler.ApplyCoupon)
			carts.DELETE("/:id/coupon", publicHandler.RemoveCoupon)
		}
	}

	return r
}

func healthz(c *gin.Context) {
	status := gin.H{"database": "ok", "redis": "disabled"}
	if models.DB == nil {
		status["database"] = "unavailable"
	} else if sqlDB, err := models.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status["database"] = "unavailable"
	}
	if client := cache.Client(); client != nil {
		status["redis"] = "ok"
		if err := client.Ping(c.Request.Context()).Err(); err != nil {
			status["redis"] = "unavailable"
		}
	}
	if status["database"] != "ok" {
		response.ErrorWithData(c, response.CodeInternal, "unhealthy", status)
		return
	}
	response.Success(c, status)
}
