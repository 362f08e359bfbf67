package public

import (
	"errors"

	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var cartCommonErrorRules = []mappedHandlerError{
	{target: service.ErrCartNotFound, code: response.CodeNotFound, key: "error.cart_not_found"},
}

var cartItemErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCartItem, code: response.CodeBadRequest, key: "error.cart_item_invalid"},
	{target: service.ErrCartItemNotFound, code: response.CodeNotFound, key: "error.cart_item_not_found"},
	{target: service.ErrCartTooManyItems, code: response.CodeBadRequest, key: "error.cart_too_many_items"},
	{target: service.ErrQuantityTooLarge, code: response.CodeBadRequest, key: "error.cart_quantity_too_large"},
	{target: service.ErrProductNotAvailable, code: response.CodeBadRequest, key: "error.product_not_available"},
	{target: service.ErrStockInsufficient, code: response.CodeBadRequest, key: "error.stock_insufficient"},
}

var cartCouponErrorRules = []mappedHandlerError{
	{target: service.ErrCouponInvalid, code: response.CodeBadRequest, key: "error.coupon_invalid"},
	{target: service.ErrCouponAlreadyApplied, code: response.CodeBadRequest, key: "error.coupon_already_applied"},
	{target: service.ErrCouponEmptyCart, code: response.CodeBadRequest, key: "error.coupon_empty_cart"},
}

var cartMutationErrorRules = concatMappedHandlerErrors(cartCommonErrorRules, cartItemErrorRules)

var cartApplyCouponErrorRules = concatMappedHandlerErrors(cartCommonErrorRules, cartCouponErrorRules)
