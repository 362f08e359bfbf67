package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon 优惠码规则（code → 百分比）
type Coupon struct {
	ID              uint           `gorm:"primarykey" json:"id"`                               // 主键
	Code            string         `gorm:"uniqueIndex;not null" json:"code"`                   // 优惠码（大写存储）
	DiscountPercent Money          `gorm:"type:decimal(5,2);not null" json:"discount_percent"` // 折扣百分比
	StartsAt        *time.Time     `gorm:"index" json:"starts_at"`                             // 生效时间
	EndsAt          *time.Time     `gorm:"index" json:"ends_at"`                               // 失效时间
	IsActive        bool           `gorm:"not null;default:true" json:"is_active"`             // 是否启用
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// EffectiveAt 在给定时间是否可用
func (c *Coupon) EffectiveAt(now time.Time) bool {
	if c == nil || !c.IsActive {
		return false
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false
	}
	return true
}
