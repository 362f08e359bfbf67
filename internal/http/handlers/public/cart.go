package public

import (
	"strings"

	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/i18n"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车请求，quantity 缺省或为 0 时按 1 处理
type AddCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"min=0"`
}

// SetCartItemQuantityRequest 修改数量请求，quantity 小于 1 时移除
type SetCartItemQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// ApplyCouponRequest 使用优惠码请求
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// CreateCart 创建购物车
func (h *Handler) CreateCart(c *gin.Context) {
	view, err := h.CartService.CreateCart()
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_create_failed", err)
		return
	}
	response.Success(c, view)
}

// GetCart 获取购物车（行项、优惠码、金额汇总）
func (h *Handler) GetCart(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	view, err := h.CartService.GetCart(cartID)
	if err != nil {
		respondWithMappedError(c, err, cartCommonErrorRules, response.CodeInternal, "error.cart_fetch_failed")
		return
	}
	response.Success(c, view)
}

// AddCartItem 加入商品
func (h *Handler) AddCartItem(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	view, err := h.CartService.AddItem(cartID, req.ProductID, req.Quantity)
	if err != nil {
		respondWithMappedError(c, err, cartMutationErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	requestLog(c).Infow("cart_item_added", "cart_id", cartID, "product_id", req.ProductID, "quantity", req.Quantity)
	response.Success(c, view)
}

// SetCartItemQuantity 修改商品数量
func (h *Handler) SetCartItemQuantity(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	productID, ok := getProductID(c)
	if !ok {
		return
	}
	var req SetCartItemQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	view, err := h.CartService.SetQuantity(cartID, productID, *req.Quantity)
	if err != nil {
		respondWithMappedError(c, err, cartMutationErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	response.Success(c, view)
}

// RemoveCartItem 移除商品
func (h *Handler) RemoveCartItem(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	productID, ok := getProductID(c)
	if !ok {
		return
	}
	view, err := h.CartService.RemoveItem(cartID, productID)
	if err != nil {
		respondWithMappedError(c, err, cartMutationErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	response.Success(c, view)
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	view, err := h.CartService.Clear(cartID)
	if err != nil {
		respondWithMappedError(c, err, cartCommonErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	response.Success(c, view)
}

// ApplyCoupon 使用优惠码
func (h *Handler) ApplyCoupon(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		respondError(c, response.CodeBadRequest, "error.coupon_code_required", nil)
		return
	}
	view, err := h.CartService.ApplyCoupon(c.Request.Context(), cartID, req.Code)
	if err != nil {
		respondWithMappedError(c, err, cartApplyCouponErrorRules, response.CodeInternal, "error.coupon_apply_failed")
		return
	}
	locale := i18n.ResolveLocale(c)
	response.SuccessWithMsg(c, i18n.Sprintf(locale, "cart.coupon_applied", view.Coupon.Code), view)
}

// RemoveCoupon 取消优惠码
func (h *Handler) RemoveCoupon(c *gin.Context) {
	cartID, ok := getCartID(c)
	if !ok {
		return
	}
	view, err := h.CartService.RemoveCoupon(cartID)
	if err != nil {
		respondWithMappedError(c, err, cartCommonErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	response.Success(c, view)
}
