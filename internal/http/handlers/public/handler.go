package public

import "github.com/dujiao-next/storefront/internal/provider"

// Handler 前台接口处理器入口（商品浏览与匿名会话购物车）
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
