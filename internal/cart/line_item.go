package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProductID = errors.New("invalid product id")
	ErrInvalidUnitPrice = errors.New("invalid unit price")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidDiscount  = errors.New("invalid discount percent")
	ErrItemNotFound     = errors.New("cart item not found")
	ErrDuplicateItem    = errors.New("duplicate cart item")
)

var (
	hundred = decimal.NewFromInt(100)
)

// LineItem 购物车行项（单价在首次加入时锁定）
type LineItem struct {
	ProductID       string          `json:"product_id"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// EffectivePrice 单品折后价：unitPrice × (1 − discount/100)
func (i LineItem) EffectivePrice() decimal.Decimal {
	rate := decimal.NewFromInt(1).Sub(i.DiscountPercent.Div(hundred))
	return i.UnitPrice.Mul(rate)
}

// Subtotal 行小计（不做舍入）
func (i LineItem) Subtotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate 校验行项不变量
func (i LineItem) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return ErrInvalidProductID
	}
	if i.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidUnitPrice, i.UnitPrice.String())
	}
	if i.Quantity < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, i.Quantity)
	}
	return validateDiscount(i.DiscountPercent)
}

func validateDiscount(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s", ErrInvalidDiscount, percent.String())
	}
	return nil
}
