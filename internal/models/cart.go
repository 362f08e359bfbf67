package models

import (
	"time"
)

// Cart 会话购物车，优惠码状态随购物车保存
type Cart struct {
	ID            string    `gorm:"type:varchar(36);primarykey" json:"id"`                      // 购物车ID（UUID）
	CouponCode    string    `gorm:"type:varchar(64);not null;default:''" json:"coupon_code"`    // 已应用的优惠码
	CouponApplied bool      `gorm:"not null;default:false" json:"coupon_applied"`               // 是否已应用
	CouponPercent Money     `gorm:"type:decimal(5,2);not null;default:0" json:"coupon_percent"` // 优惠百分比
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt     time.Time `gorm:"index" json:"updated_at"`                                    // 最近活跃时间

	Items []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"` // 购物车项
}

// TableName 指定表名
func (Cart) TableName() string {
	return "carts"
}
