package public

import (
	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func getCartID(c *gin.Context) (string, bool) {
	return handlershared.ParseUUIDParam(c, "id", "error.cart_id_invalid")
}

func getProductID(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "product_id", "error.product_id_invalid")
}
