package public

import (
	"errors"

	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// GetProducts 获取上架商品列表
func (h *Handler) GetProducts(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)

	products, total, err := h.ProductService.ListPublic(page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, products, pagination)
}

// GetProduct 获取商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id", "error.product_id_invalid")
	if !ok {
		return
	}
	product, err := h.ProductService.GetPublicByID(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}
	response.Success(c, product)
}
