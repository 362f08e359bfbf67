package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dujiao-next/storefront/internal/cart"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/metrics"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/pricing"
	"github.com/dujiao-next/storefront/internal/queue"
	"github.com/dujiao-next/storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItemView 购物车项（用于响应）
type CartItemView struct {
	ProductID       uint         `json:"product_id"`
	Name            string       `json:"name"`
	UnitPrice       models.Money `json:"unit_price"`
	DiscountPercent models.Money `json:"discount_percent"`
	EffectivePrice  models.Money `json:"effective_price"`
	Quantity        int          `json:"quantity"`
	Subtotal        models.Money `json:"subtotal"`
}

// CouponView 优惠码状态（用于响应）
type CouponView struct {
	Code            string       `json:"code"`
	IsApplied       bool         `json:"is_applied"`
	DiscountPercent models.Money `json:"discount_percent"`
}

// PricingView 价格汇总（用于响应）
type PricingView struct {
	Subtotal       models.Money `json:"subtotal"`
	ShippingFee    models.Money `json:"shipping_fee"`
	Tax            models.Money `json:"tax"`
	CouponDiscount models.Money `json:"coupon_discount"`
	GrandTotal     models.Money `json:"grand_total"`
	ItemCount      int          `json:"item_count"`
}

// CartView 购物车完整视图
type CartView struct {
	ID      string         `json:"id"`
	Items   []CartItemView `json:"items"`
	Coupon  CouponView     `json:"coupon"`
	Pricing PricingView    `json:"pricing"`
}

// CartOptions 购物车限制参数
type CartOptions struct {
	IdleExpire         time.Duration
	MaxItems           int
	MaxQuantity        int
	ResetCouponOnClear bool
}

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	products    *ProductService
	coupons     *CouponService
	queueClient *queue.Client
	metrics     *metrics.CartMetrics
	policy      pricing.Policy
	options     CartOptions
	now         func() time.Time
}

// NewCartService 创建购物车服务
func NewCartService(
	cartRepo repository.CartRepository,
	products *ProductService,
	coupons *CouponService,
	queueClient *queue.Client,
	cartMetrics *metrics.CartMetrics,
	policy pricing.Policy,
	options CartOptions,
) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		products:    products,
		coupons:     coupons,
		queueClient: queueClient,
		metrics:     cartMetrics,
		policy:      policy,
		options:     options,
		now:         time.Now,
	}
}

// CreateCart 创建空购物车
func (s *CartService) CreateCart() (*CartView, error) {
	now := s.now()
	record := &models.Cart{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.cartRepo.Create(record)
	s.metrics.ObserveMutation(constants.CartOpCreate, err)
	if err != nil {
		return nil, err
	}
	logger.Infow("cart_created", "cart_id", record.ID)
	s.scheduleIdleExpire(record.ID, now)
	return s.buildView(record, nil)
}

// GetCart 获取购物车视图
func (s *CartService) GetCart(cartID string) (*CartView, error) {
	record, err := s.loadCart(cartID)
	if err != nil {
		return nil, err
	}
	return s.buildView(record, nil)
}

// AddItem 加入商品；已存在时累加数量，单价与折扣在首次加入时锁定
func (s *CartService) AddItem(cartID string, productID uint, quantity int) (*CartView, error) {
	if productID == 0 || quantity < 1 {
		return nil, ErrInvalidCartItem
	}
	if s.options.MaxQuantity > 0 && quantity > s.options.MaxQuantity {
		return nil, ErrQuantityTooLarge
	}
	product, err := s.products.GetAvailable(productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(cartID, constants.CartOpAddItem, func(c *cart.Cart) error {
		key := productKey(productID)
		total := quantity
		existing, exists := c.Get(key)
		if exists {
			total += existing.Quantity
		} else if s.options.MaxItems > 0 && c.Len() >= s.options.MaxItems {
			return ErrCartTooManyItems
		}
		if s.options.MaxQuantity > 0 && total > s.options.MaxQuantity {
			return ErrQuantityTooLarge
		}
		if !product.HasStockFor(total) {
			return ErrStockInsufficient
		}
		if _, err := c.AddItem(key, product.PriceAmount.Decimal, product.DiscountPercent.Decimal, quantity); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCartItem, err)
		}
		return nil
	})
}

// SetQuantity 设置数量；小于 1 时移除该项
func (s *CartService) SetQuantity(cartID string, productID uint, quantity int) (*CartView, error) {
	if productID == 0 {
		return nil, ErrInvalidCartItem
	}
	if s.options.MaxQuantity > 0 && quantity > s.options.MaxQuantity {
		return nil, ErrQuantityTooLarge
	}
	return s.mutate(cartID, constants.CartOpSetQuantity, func(c *cart.Cart) error {
		key := productKey(productID)
		if quantity >= 1 {
			if _, ok := c.Get(key); !ok {
				return ErrCartItemNotFound
			}
			product, err := s.products.repo.GetByID(productID)
			if err != nil {
				return err
			}
			// 商品已删除时保留锁定价格，不再校验库存
			if product != nil && !product.HasStockFor(quantity) {
				return ErrStockInsufficient
			}
		}
		if _, err := c.SetQuantity(key, quantity); err != nil {
			if errors.Is(err, cart.ErrItemNotFound) {
				return ErrCartItemNotFound
			}
			return fmt.Errorf("%w: %w", ErrInvalidCartItem, err)
		}
		return nil
	})
}

// RemoveItem 移除商品，不存在时为空操作
func (s *CartService) RemoveItem(cartID string, productID uint) (*CartView, error) {
	if productID == 0 {
		return nil, ErrInvalidCartItem
	}
	return s.mutate(cartID, constants.CartOpRemoveItem, func(c *cart.Cart) error {
		_, err := c.RemoveItem(productKey(productID))
		return err
	})
}

// Clear 清空购物车
func (s *CartService) Clear(cartID string) (*CartView, error) {
	return s.mutate(cartID, constants.CartOpClear, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// ApplyCoupon 应用优惠码；无效码返回 ErrCouponInvalid 且金额不变
func (s *CartService) ApplyCoupon(ctx context.Context, cartID, code string) (*CartView, error) {
	record, err := s.loadCart(cartID)
	if err != nil {
		return nil, err
	}
	if record.CouponApplied {
		s.metrics.ObserveCoupon(constants.CouponResultAlreadyApplied)
		return nil, ErrCouponAlreadyApplied
	}
	if len(record.Items) == 0 {
		s.metrics.ObserveCoupon(constants.CouponResultEmptyCart)
		return nil, ErrCouponEmptyCart
	}
	result, err := s.coupons.Evaluate(ctx, code)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		s.metrics.ObserveCoupon(constants.CouponResultInvalid)
		logger.Infow("cart_coupon_rejected", "cart_id", record.ID, "code", result.Code)
		return nil, ErrCouponInvalid
	}
	state := pricing.AppliedCoupon(result)
	now := s.now()
	record.CouponCode = state.Code
	record.CouponApplied = state.IsApplied
	record.CouponPercent = models.NewMoneyFromDecimal(state.DiscountPercent)
	record.UpdatedAt = now
	if err := s.cartRepo.UpdateCoupon(record); err != nil {
		return nil, err
	}
	s.metrics.ObserveCoupon(constants.CouponResultValid)
	logger.Infow("cart_coupon_applied", "cart_id", record.ID, "code", state.Code, "discount_percent", state.DiscountPercent.String())
	s.scheduleIdleExpire(record.ID, now)
	return s.buildView(record, nil)
}

// RemoveCoupon 取消优惠码，未应用时为空操作
func (s *CartService) RemoveCoupon(cartID string) (*CartView, error) {
	record, err := s.loadCart(cartID)
	if err != nil {
		return nil, err
	}
	if record.CouponApplied || record.CouponCode != "" {
		resetCoupon(record, s.now())
		if err := s.cartRepo.UpdateCoupon(record); err != nil {
			return nil, err
		}
		logger.Infow("cart_coupon_removed", "cart_id", record.ID)
	}
	return s.buildView(record, nil)
}

// ExpireIdle 删除闲置超过阈值的购物车，返回是否已删除
func (s *CartService) ExpireIdle(cartID string, activeAt time.Time) (bool, error) {
	record, err := s.cartRepo.GetByID(cartID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	// 投递后购物车有过新的活动，由后续任务处理
	if record.UpdatedAt.Unix() > activeAt.Unix() {
		return false, nil
	}
	if s.options.IdleExpire > 0 && s.now().Sub(record.UpdatedAt) < s.options.IdleExpire {
		return false, nil
	}
	err = s.cartRepo.Delete(record.ID)
	s.metrics.ObserveMutation(constants.CartOpExpire, err)
	if err != nil {
		return false, err
	}
	logger.Infow("cart_expired", "cart_id", record.ID, "updated_at", record.UpdatedAt)
	return true, nil
}

// SweepIdle 批量清理闲置购物车
func (s *CartService) SweepIdle(limit int) (int, error) {
	if s.options.IdleExpire <= 0 {
		return 0, nil
	}
	carts, err := s.cartRepo.ListIdleBefore(s.now().Add(-s.options.IdleExpire), limit)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, record := range carts {
		ok, err := s.ExpireIdle(record.ID, record.UpdatedAt)
		if err != nil {
			logger.Warnw("cart_sweep_expire_failed", "cart_id", record.ID, "error", err)
			continue
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func (s *CartService) loadCart(cartID string) (*models.Cart, error) {
	if cartID == "" {
		return nil, ErrCartNotFound
	}
	record, err := s.cartRepo.GetByID(cartID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrCartNotFound
	}
	return record, nil
}

// mutate 加载购物车、执行变更、持久化并返回新视图
func (s *CartService) mutate(cartID, operation string, apply func(c *cart.Cart) error) (*CartView, error) {
	view, err := s.doMutate(cartID, apply)
	s.metrics.ObserveMutation(operation, err)
	if err != nil {
		return nil, err
	}
	logger.Debugw("cart_mutated", "cart_id", cartID, "operation", operation, "item_count", view.Pricing.ItemCount)
	return view, nil
}

func (s *CartService) doMutate(cartID string, apply func(c *cart.Cart) error) (*CartView, error) {
	record, err := s.loadCart(cartID)
	if err != nil {
		return nil, err
	}
	c, err := cart.New(toLineItems(record.Items)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pricing.ErrInvariantViolation, err)
	}
	if err := apply(c); err != nil {
		return nil, err
	}

	now := s.now()
	rows, err := toCartItems(record, c.Items())
	if err != nil {
		return nil, err
	}
	reset := c.IsEmpty() && s.options.ResetCouponOnClear && (record.CouponApplied || record.CouponCode != "")
	if err := s.cartRepo.SaveItems(record.ID, rows, now, reset); err != nil {
		return nil, err
	}
	record.Items = rows
	record.UpdatedAt = now
	if reset {
		resetCoupon(record, now)
		logger.Infow("cart_coupon_reset", "cart_id", record.ID)
	}

	s.scheduleIdleExpire(record.ID, now)
	return s.buildView(record, c.Items())
}

func (s *CartService) buildView(record *models.Cart, items []cart.LineItem) (*CartView, error) {
	if items == nil {
		items = toLineItems(record.Items)
	}
	coupon := pricing.CouponState{
		Code:            record.CouponCode,
		IsApplied:       record.CouponApplied,
		DiscountPercent: record.CouponPercent.Decimal,
	}

	started := time.Now()
	result, err := pricing.Calculate(items, coupon, s.policy)
	s.metrics.ObservePricing(time.Since(started), err)
	if err != nil {
		logger.Errorw("cart_pricing_invariant_violation", "cart_id", record.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPricingFailed, err)
	}

	names := s.productNames(record.Items)
	views := make([]CartItemView, 0, len(items))
	for _, item := range items {
		id, _ := parseProductKey(item.ProductID)
		views = append(views, CartItemView{
			ProductID:       id,
			Name:            names[id],
			UnitPrice:       models.NewMoneyFromDecimal(item.UnitPrice),
			DiscountPercent: models.NewMoneyFromDecimal(item.DiscountPercent),
			EffectivePrice:  models.NewMoneyFromDecimal(item.EffectivePrice()),
			Quantity:        item.Quantity,
			Subtotal:        models.NewMoneyFromDecimal(item.Subtotal()),
		})
	}

	return &CartView{
		ID:    record.ID,
		Items: views,
		Coupon: CouponView{
			Code:            coupon.Code,
			IsApplied:       coupon.IsApplied,
			DiscountPercent: models.NewMoneyFromDecimal(coupon.DiscountPercent),
		},
		Pricing: PricingView{
			Subtotal:       models.NewMoneyFromDecimal(result.Subtotal),
			ShippingFee:    models.NewMoneyFromDecimal(result.ShippingFee),
			Tax:            models.NewMoneyFromDecimal(result.Tax),
			CouponDiscount: models.NewMoneyFromDecimal(result.CouponDiscount),
			GrandTotal:     models.NewMoneyFromDecimal(result.GrandTotal),
			ItemCount:      result.ItemCount,
		},
	}, nil
}

func (s *CartService) productNames(items []models.CartItem) map[uint]string {
	names := make(map[uint]string, len(items))
	if len(items) == 0 || s.products == nil {
		return names
	}
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.repo.ListByIDs(ids)
	if err != nil {
		logger.Warnw("cart_product_names_load_failed", "error", err)
		return names
	}
	for _, product := range products {
		names[product.ID] = product.Name
	}
	return names
}

func (s *CartService) scheduleIdleExpire(cartID string, activeAt time.Time) {
	if s.options.IdleExpire <= 0 || !s.queueClient.Enabled() {
		return
	}
	payload := queue.CartIdleExpirePayload{CartID: cartID, ActiveAt: activeAt.Unix()}
	if err := s.queueClient.EnqueueCartIdleExpire(payload, s.options.IdleExpire); err != nil {
		logger.Warnw("cart_idle_expire_enqueue_failed", "cart_id", cartID, "error", err)
	}
}

func resetCoupon(record *models.Cart, now time.Time) {
	record.CouponCode = ""
	record.CouponApplied = false
	record.CouponPercent = models.NewMoneyFromDecimal(decimal.Zero)
	record.UpdatedAt = now
}

func productKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseProductKey(key string) (uint, error) {
	id, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func toLineItems(rows []models.CartItem) []cart.LineItem {
	items := make([]cart.LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, cart.LineItem{
			ProductID:       productKey(row.ProductID),
			UnitPrice:       row.UnitPrice.Decimal,
			Quantity:        row.Quantity,
			DiscountPercent: row.DiscountPercent.Decimal,
		})
	}
	return items
}

func toCartItems(record *models.Cart, items []cart.LineItem) ([]models.CartItem, error) {
	createdAt := make(map[uint]time.Time, len(record.Items))
	for _, row := range record.Items {
		createdAt[row.ProductID] = row.CreatedAt
	}
	rows := make([]models.CartItem, 0, len(items))
	for idx, item := range items {
		id, err := parseProductKey(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCartItem, err)
		}
		rows = append(rows, models.CartItem{
			CartID:          record.ID,
			ProductID:       id,
			UnitPrice:       models.NewMoneyFromDecimal(item.UnitPrice),
			DiscountPercent: models.NewMoneyFromDecimal(item.DiscountPercent),
			Quantity:        item.Quantity,
			Position:        idx,
			CreatedAt:       createdAt[id],
		})
	}
	return rows, nil
}
