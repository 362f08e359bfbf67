package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（购物车仅读取价格、折扣与库存）
type Product struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                         // 主键
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`                       // 商品名称
	Seller          string         `gorm:"type:varchar(255);not null;default:''" json:"seller"`          // 卖家
	Description     string         `gorm:"type:text" json:"description"`                                 // 描述
	PriceAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"`    // 价格金额
	OriginalPrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"original_price"`  // 划线价
	DiscountPercent Money          `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"` // 单品折扣百分比（0-100）
	Stock           *int           `json:"stock"`                                                        // 库存（nil 表示不限）
	ImageURL        string         `gorm:"type:varchar(512)" json:"image_url"`                           // 图片地址
	IsActive        bool           `gorm:"default:true;index" json:"is_active"`                          // 是否上架
	SortOrder       int            `gorm:"default:0;index" json:"sort_order"`                            // 排序权重
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt       time.Time      `json:"updated_at"`                                                   // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// HasStockFor 库存是否足够
func (p *Product) HasStockFor(quantity int) bool {
	if p == nil {
		return false
	}
	if p.Stock == nil {
		return true
	}
	return *p.Stock >= quantity
}
