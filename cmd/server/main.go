package main

import (
	"flag"
	"os"
	"syscall"

	"github.com/dujiao-next/storefront/internal/app"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {
	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	runMode, err := app.ParseMode(mode)
	if err != nil {
		stdLog.Fatalf("启动模式无效: %v", err)
	}

	if _, err := cfg.Pricing.ToPolicy(); err != nil {
		stdLog.Fatalf("计价配置无效: %v", err)
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 初始化内置优惠码
	if percent, err := decimal.NewFromString(cfg.Coupon.DefaultPercent); err != nil {
		stdLog.Printf("警告: 内置优惠码百分比无效: %v", err)
	} else if err := models.EnsureDefaultCoupon(models.DB, cfg.Coupon.DefaultCode, percent); err != nil {
		stdLog.Printf("警告: 初始化内置优惠码失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    runMode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}
