package repository

import (
	"errors"
	"strings"

	"github.com/dujiao-next/storefront/internal/models"

	"gorm.io/gorm"
)

// CouponRepository 优惠码规则数据访问接口
type CouponRepository interface {
	GetByCode(code string) (*models.Coupon, error)
	ListActive() ([]models.Coupon, error)
	Count() (int64, error)
	Create(coupon *models.Coupon) error
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓库
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// GetByCode 根据优惠码获取（大小写不敏感）
func (r *GormCouponRepository) GetByCode(code string) (*models.Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var coupon models.Coupon
	if err := r.db.Where("code = ?", normalized).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// ListActive 获取全部启用中的优惠码
func (r *GormCouponRepository) ListActive() ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := r.db.Where("is_active = ?", true).Order("id ASC").Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// Count 统计优惠码总数（含停用，不含软删除）
func (r *GormCouponRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Coupon{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建优惠码，code 统一存储为大写
func (r *GormCouponRepository) Create(coupon *models.Coupon) error {
	if coupon == nil {
		return nil
	}
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	return r.db.Create(coupon).Error
}
