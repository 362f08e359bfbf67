package models

import (
	"errors"
	"strings"

	"github.com/dujiao-next/storefront/internal/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EnsureDefaultCoupon 确保内置优惠码存在（已存在则不覆盖）
func EnsureDefaultCoupon(db *gorm.DB, code string, percent decimal.Decimal) error {
	if db == nil {
		return errors.New("db is nil")
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil
	}

	var count int64
	if err := db.Unscoped().Model(&Coupon{}).Where("code = ?", normalized).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	coupon := Coupon{
		Code:            normalized,
		DiscountPercent: NewMoneyFromDecimal(percent),
		IsActive:        true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		return err
	}
	logger.Infow("default_coupon_created", "code", normalized, "percent", coupon.DiscountPercent.String())
	return nil
}
