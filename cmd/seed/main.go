package main

import (
	"context"
	"time"

	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/repository"
	"github.com/dujiao-next/storefront/internal/service"

	"github.com/shopspring/decimal"
)

type seedProduct struct {
	Name     string
	Seller   string
	Price    string
	Original string
	Discount string
	Stock    *int
	Sort     int
}

func intPtr(v int) *int {
	return &v
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加商品
	products := []seedProduct{
		{Name: "Calculus Textbook (Used)", Seller: "alice", Price: "20.00", Original: "45.00", Discount: "0", Stock: intPtr(3), Sort: 30},
		{Name: "Desk Lamp", Seller: "bob", Price: "10.00", Original: "10.00", Discount: "50", Stock: intPtr(1), Sort: 20},
		{Name: "Graph Paper Pack", Seller: "carol", Price: "3.50", Original: "3.50", Discount: "0", Sort: 10},
		{Name: "Mini Fridge", Seller: "dave", Price: "65.00", Original: "120.00", Discount: "10", Stock: intPtr(1), Sort: 5},
	}
	for _, item := range products {
		var existing models.Product
		if err := models.DB.Where("name = ? AND seller = ?", item.Name, item.Seller).First(&existing).Error; err == nil {
			stdLog.Printf("Product already exists: %s", item.Name)
			continue
		}
		product := models.Product{
			Name:            item.Name,
			Seller:          item.Seller,
			PriceAmount:     models.NewMoneyFromDecimal(decimal.RequireFromString(item.Price)),
			OriginalPrice:   models.NewMoneyFromDecimal(decimal.RequireFromString(item.Original)),
			DiscountPercent: models.NewMoneyFromDecimal(decimal.RequireFromString(item.Discount)),
			Stock:           item.Stock,
			IsActive:        true,
			SortOrder:       item.Sort,
		}
		if err := models.DB.Create(&product).Error; err != nil {
			stdLog.Printf("Failed to create product %s: %v", item.Name, err)
			continue
		}
		stdLog.Printf("Created product: %s (id=%d)", product.Name, product.ID)
	}

	// 内置优惠码
	percent, err := decimal.NewFromString(cfg.Coupon.DefaultPercent)
	if err != nil {
		stdLog.Fatalf("Invalid default coupon percent: %v", err)
	}
	if err := models.EnsureDefaultCoupon(models.DB, cfg.Coupon.DefaultCode, percent); err != nil {
		stdLog.Fatalf("Failed to seed default coupon: %v", err)
	}

	// 清除规则缓存，使新优惠码立即生效
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		stdLog.Printf("Redis unavailable, skip cache invalidation: %v", err)
	} else {
		defer cache.Close()
		couponService := service.NewCouponService(
			repository.NewCouponRepository(models.DB),
			cfg.Coupon.DefaultCode,
			percent,
			time.Duration(cfg.Coupon.RulesCacheSeconds)*time.Second,
		)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := couponService.InvalidateRules(ctx); err != nil {
			stdLog.Printf("Failed to invalidate coupon rule cache: %v", err)
		}
	}
	stdLog.Printf("Seed completed")
}
