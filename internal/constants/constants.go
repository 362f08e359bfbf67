package constants

// 队列常量
const (
	QueueDefault = "default"
)

// 异步任务类型
const (
	TaskCartIdleExpire = "cart:idle_expire"
)

// 购物车变更操作
const (
	CartOpCreate      = "create"
	CartOpAddItem     = "add_item"
	CartOpSetQuantity = "set_quantity"
	CartOpRemoveItem  = "remove_item"
	CartOpClear       = "clear"
	CartOpExpire      = "expire"
)

// 优惠码尝试结果
const (
	CouponResultValid          = "valid"
	CouponResultInvalid        = "invalid"
	CouponResultAlreadyApplied = "already_applied"
	CouponResultEmptyCart      = "empty_cart"
)

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
