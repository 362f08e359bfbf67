package repository

import (
	"errors"
	"time"

	"github.com/dujiao-next/storefront/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	Create(cart *models.Cart) error
	GetByID(id string) (*models.Cart, error)
	SaveItems(cartID string, items []models.CartItem, now time.Time, resetCoupon bool) error
	UpdateCoupon(cart *models.Cart) error
	Delete(cartID string) error
	ListIdleBefore(before time.Time, limit int) ([]models.Cart, error)
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// Create 创建购物车
func (r *GormCartRepository) Create(cart *models.Cart) error {
	if cart == nil {
		return nil
	}
	return r.db.Create(cart).Error
}

// GetByID 获取购物车及其行项（按加入顺序），不存在返回 nil
func (r *GormCartRepository) GetByID(id string) (*models.Cart, error) {
	if id == "" {
		return nil, nil
	}
	var cart models.Cart
	err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC, id ASC")
	}).Where("id = ?", id).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// SaveItems 以快照方式整体替换购物车项，resetCoupon 时在同一事务内清除优惠码
func (r *GormCartRepository) SaveItems(cartID string, items []models.CartItem, now time.Time, resetCoupon bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			rows := make([]models.CartItem, 0, len(items))
			for idx, item := range items {
				item.ID = 0
				item.CartID = cartID
				item.Position = idx
				item.Product = nil
				if item.CreatedAt.IsZero() {
					item.CreatedAt = now
				}
				item.UpdatedAt = now
				rows = append(rows, item)
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		updates := map[string]interface{}{"updated_at": now}
		if resetCoupon {
			updates["coupon_code"] = ""
			updates["coupon_applied"] = false
			updates["coupon_percent"] = models.Money{}
		}
		return tx.Model(&models.Cart{}).Where("id = ?", cartID).Updates(updates).Error
	})
}

// UpdateCoupon 更新优惠码状态
func (r *GormCartRepository) UpdateCoupon(cart *models.Cart) error {
	if cart == nil {
		return nil
	}
	updates := map[string]interface{}{
		"coupon_code":    cart.CouponCode,
		"coupon_applied": cart.CouponApplied,
		"coupon_percent": cart.CouponPercent,
		"updated_at":     cart.UpdatedAt,
	}
	return r.db.Model(&models.Cart{}).Where("id = ?", cart.ID).Updates(updates).Error
}

// Delete 删除购物车及其行项
func (r *GormCartRepository) Delete(cartID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", cartID).Delete(&models.Cart{}).Error
	})
}

// ListIdleBefore 查询在指定时间前未活跃的购物车
func (r *GormCartRepository) ListIdleBefore(before time.Time, limit int) ([]models.Cart, error) {
	var carts []models.Cart
	query := r.db.Where("updated_at < ?", before).Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}
