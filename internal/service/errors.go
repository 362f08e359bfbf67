package service

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrCartNotFound         = errors.New("cart not found")
	ErrProductNotAvailable  = errors.New("product not available")
	ErrStockInsufficient    = errors.New("stock insufficient")
	ErrInvalidCartItem      = errors.New("invalid cart item")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrCartTooManyItems     = errors.New("cart has too many items")
	ErrQuantityTooLarge     = errors.New("quantity too large")
	ErrCouponInvalid        = errors.New("coupon invalid")
	ErrCouponAlreadyApplied = errors.New("coupon already applied")
	ErrCouponEmptyCart      = errors.New("coupon requires non-empty cart")
	ErrPricingFailed        = errors.New("pricing failed")
)
