package shared

import (
	"strconv"
	"strings"

	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ParseUintParam 解析路径中的正整数参数，失败时直接返回错误响应。
func ParseUintParam(c *gin.Context, name, invalidKey string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
		return 0, false
	}
	return uint(value), true
}

// ParseUUIDParam 解析路径中的 UUID 参数并返回规范格式。
func ParseUUIDParam(c *gin.Context, name, invalidKey string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
		return "", false
	}
	return id.String(), true
}
