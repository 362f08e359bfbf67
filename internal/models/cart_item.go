package models

import (
	"time"
)

// CartItem 购物车项
type CartItem struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                                  // 主键
	CartID          string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_product" json:"cart_id"` // 购物车ID
	ProductID       uint      `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`               // 商品ID
	UnitPrice       Money     `gorm:"type:decimal(20,2);not null" json:"unit_price"`                         // 加入时锁定的单价
	DiscountPercent Money     `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"`          // 单品折扣百分比
	Quantity        int       `gorm:"not null" json:"quantity"`                                              // 数量
	Position        int       `gorm:"not null;default:0" json:"position"`                                    // 加入顺序
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                                               // 创建时间
	UpdatedAt       time.Time `gorm:"index" json:"updated_at"`                                               // 更新时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
