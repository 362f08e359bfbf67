package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Cart 有序购物车，productID 唯一。
// 仅由持有它的会话修改，不做并发保护。
type Cart struct {
	items []LineItem
}

// New 创建购物车，items 需满足行项不变量
func New(items ...LineItem) (*Cart, error) {
	c := &Cart{items: make([]LineItem, 0, len(items))}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if c.indexOf(item.ProductID) >= 0 {
			return nil, ErrDuplicateItem
		}
		c.items = append(c.items, item)
	}
	return c, nil
}

// Items 返回当前快照
func (c *Cart) Items() []LineItem {
	if c == nil || len(c.items) == 0 {
		return []LineItem{}
	}
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len 行项数量
func (c *Cart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// IsEmpty 是否为空
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Get 获取行项
func (c *Cart) Get(productID string) (LineItem, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return LineItem{}, false
	}
	return c.items[idx], true
}

// AddItem 加入商品：已存在则累加数量，单价保持首次加入时的值
func (c *Cart) AddItem(productID string, unitPrice, discountPercent decimal.Decimal, quantity int) ([]LineItem, error) {
	productID = strings.TrimSpace(productID)
	if quantity < 1 {
		return c.Items(), ErrInvalidQuantity
	}
	if idx := c.indexOf(productID); idx >= 0 {
		c.items[idx].Quantity += quantity
		return c.Items(), nil
	}
	item := LineItem{
		ProductID:       productID,
		UnitPrice:       unitPrice,
		Quantity:        quantity,
		DiscountPercent: discountPercent,
	}
	if err := item.Validate(); err != nil {
		return c.Items(), err
	}
	c.items = append(c.items, item)
	return c.Items(), nil
}

// SetQuantity 设置数量（非增量）；newQuantity < 1 等价于移除
func (c *Cart) SetQuantity(productID string, newQuantity int) ([]LineItem, error) {
	if newQuantity < 1 {
		return c.RemoveItem(productID)
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		return c.Items(), ErrItemNotFound
	}
	c.items[idx].Quantity = newQuantity
	return c.Items(), nil
}

// RemoveItem 删除行项，不存在时不报错
func (c *Cart) RemoveItem(productID string) ([]LineItem, error) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return c.Items(), nil
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return c.Items(), nil
}

// Clear 清空
func (c *Cart) Clear() []LineItem {
	c.items = c.items[:0]
	return c.Items()
}

// TotalQuantity 商品件数合计
func (c *Cart) TotalQuantity() int {
	total := 0
	if c == nil {
		return total
	}
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

func (c *Cart) indexOf(productID string) int {
	if c == nil {
		return -1
	}
	key := strings.TrimSpace(productID)
	for i := range c.items {
		if c.items[i].ProductID == key {
			return i
		}
	}
	return -1
}
