package pricing

import (
	"errors"
	"fmt"

	"github.com/dujiao-next/storefront/internal/cart"

	"github.com/shopspring/decimal"
)

// ErrInvariantViolation 输入违反购物车不变量，属于编程错误
var ErrInvariantViolation = errors.New("pricing invariant violation")

// Policy 运费与税率规则
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultPolicy 满 50 包邮（严格大于），否则 5.99 运费，税率 8%
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShippingFee:       decimal.RequireFromString("5.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

// Result 价格计算结果，每次变更后重新计算，不单独存储
type Result struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	Tax            decimal.Decimal `json:"tax"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	ItemCount      int             `json:"item_count"`
}

// Calculate 纯函数：由购物车行项与优惠码状态推导全部金额
func Calculate(items []cart.LineItem, coupon CouponState, policy Policy) (Result, error) {
	if err := coupon.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}

	subtotal := decimal.Zero
	count := 0
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
		if _, ok := seen[item.ProductID]; ok {
			return Result{}, fmt.Errorf("%w: duplicate product %s", ErrInvariantViolation, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		subtotal = subtotal.Add(item.Subtotal())
		count += item.Quantity
	}

	shipping := policy.FlatShippingFee
	if len(items) == 0 || subtotal.GreaterThan(policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(policy.TaxRate)

	discount := decimal.Zero
	if coupon.IsApplied {
		discount = subtotal.Mul(coupon.DiscountPercent.Div(decimal.NewFromInt(100)))
	}

	return Result{
		Subtotal:       subtotal,
		ShippingFee:    shipping,
		Tax:            tax,
		CouponDiscount: discount,
		GrandTotal:     grandTotal(subtotal, shipping, tax, discount),
		ItemCount:      count,
	}, nil
}

// grandTotal 应付金额，不低于 0
func grandTotal(subtotal, shipping, tax, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(shipping).Add(tax).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
