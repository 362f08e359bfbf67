package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/metrics"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/pricing"
	"github.com/dujiao-next/storefront/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type cartFixture struct {
	db       *gorm.DB
	service  *CartService
	registry *prometheus.Registry
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Cart{}, &models.CartItem{}, &models.Coupon{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newCartFixture(t *testing.T, options CartOptions) *cartFixture {
	t.Helper()
	db := openServiceTestDB(t)
	registry := prometheus.NewRegistry()
	products := NewProductService(repository.NewProductRepository(db))
	coupons := NewCouponService(repository.NewCouponRepository(db), pricing.DefaultCouponCode, decimal.NewFromInt(10), time.Minute)
	svc := NewCartService(
		repository.NewCartRepository(db),
		products,
		coupons,
		nil,
		metrics.NewCartMetrics(registry),
		pricing.DefaultPolicy(),
		options,
	)
	return &cartFixture{db: db, service: svc, registry: registry}
}

func defaultCartOptions() CartOptions {
	return CartOptions{
		IdleExpire:         time.Hour,
		MaxItems:           100,
		MaxQuantity:        999,
		ResetCouponOnClear: true,
	}
}

func (f *cartFixture) createProduct(t *testing.T, name, price, discount string, stock *int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:            name,
		PriceAmount:     models.NewMoneyFromDecimal(decimal.RequireFromString(price)),
		DiscountPercent: models.NewMoneyFromDecimal(decimal.RequireFromString(discount)),
		Stock:           stock,
		IsActive:        true,
	}
	if err := f.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (f *cartFixture) createCart(t *testing.T) string {
	t.Helper()
	view, err := f.service.CreateCart()
	if err != nil {
		t.Fatalf("create cart failed: %v", err)
	}
	return view.ID
}

func assertAmount(t *testing.T, field string, got models.Money, want string) {
	t.Helper()
	if got.StringFixed(2) != want {
		t.Fatalf("%s want %s got %s", field, want, got.StringFixed(2))
	}
}

func intPtr(v int) *int {
	return &v
}

func TestCartServiceCreateCartIsEmpty(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	view, err := f.service.CreateCart()
	if err != nil {
		t.Fatalf("create cart failed: %v", err)
	}
	if view.ID == "" {
		t.Fatalf("cart id should not be empty")
	}
	if len(view.Items) != 0 || view.Coupon.IsApplied {
		t.Fatalf("new cart should be empty: %+v", view)
	}
	assertAmount(t, "shipping", view.Pricing.ShippingFee, "0.00")
	assertAmount(t, "grand total", view.Pricing.GrandTotal, "0.00")
}

func TestCartServiceAddItemAndCoupon(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	product := f.createProduct(t, "Notebook", "20.00", "0", nil)
	cartID := f.createCart(t)

	view, err := f.service.AddItem(cartID, product.ID, 3)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Name != "Notebook" {
		t.Fatalf("unexpected items: %+v", view.Items)
	}
	assertAmount(t, "subtotal", view.Pricing.Subtotal, "60.00")
	assertAmount(t, "shipping", view.Pricing.ShippingFee, "0.00")
	assertAmount(t, "tax", view.Pricing.Tax, "4.80")
	assertAmount(t, "grand total", view.Pricing.GrandTotal, "64.80")

	view, err = f.service.ApplyCoupon(context.Background(), cartID, "student10")
	if err != nil {
		t.Fatalf("apply coupon failed: %v", err)
	}
	if !view.Coupon.IsApplied || view.Coupon.Code != "STUDENT10" {
		t.Fatalf("coupon should be applied: %+v", view.Coupon)
	}
	assertAmount(t, "discount", view.Pricing.CouponDiscount, "6.00")
	assertAmount(t, "grand total", view.Pricing.GrandTotal, "58.80")

	if _, err := f.service.ApplyCoupon(context.Background(), cartID, "STUDENT10"); !errors.Is(err, ErrCouponAlreadyApplied) {
		t.Fatalf("expected ErrCouponAlreadyApplied, got %v", err)
	}

	reloaded, err := f.service.GetCart(cartID)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	assertAmount(t, "persisted grand total", reloaded.Pricing.GrandTotal, "58.80")
}

func TestCartServiceItemDiscountWithShipping(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	product := f.createProduct(t, "Pen", "10.00", "50", nil)
	cartID := f.createCart(t)

	view, err := f.service.AddItem(cartID, product.ID, 1)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	assertAmount(t, "effective price", view.Items[0].EffectivePrice, "5.00")
	assertAmount(t, "shipping", view.Pricing.ShippingFee, "5.99")
	assertAmount(t, "tax", view.Pricing.Tax, "0.40")
	assertAmount(t, "grand total", view.Pricing.GrandTotal, "11.39")
}

func TestCartServiceInvalidCouponKeepsTotals(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	product := f.createProduct(t, "Mug", "12.50", "0", nil)
	cartID := f.createCart(t)
	before, err := f.service.AddItem(cartID, product.ID, 2)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	if _, err := f.service.ApplyCoupon(context.Background(), cartID, "BOGUS"); !errors.Is(err, ErrCouponInvalid) {
		t.Fatalf("expected ErrCouponInvalid, got %v", err)
	}
	after, err := f.service.GetCart(cartID)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if after.Coupon.IsApplied {
		t.Fatalf("coupon should not be applied")
	}
	if !after.Pricing.GrandTotal.Equal(before.Pricing.GrandTotal.Decimal) {
		t.Fatalf("grand total changed: %s -> %s", before.Pricing.GrandTotal, after.Pricing.GrandTotal)
	}

	if got := couponAttempts(t, f.registry, "invalid"); got != 1 {
		t.Fatalf("invalid coupon attempts want 1 got %v", got)
	}
}

func TestCartServiceCouponRequiresItems(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	cartID := f.createCart(t)
	if _, err := f.service.ApplyCoupon(context.Background(), cartID, "STUDENT10"); !errors.Is(err, ErrCouponEmptyCart) {
		t.Fatalf("expected ErrCouponEmptyCart, got %v", err)
	}
}

func TestCartServiceClearResetsCoupon(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	product := f.createProduct(t, "Lamp", "30.00", "0", nil)
	cartID := f.createCart(t)
	if _, err := f.service.AddItem(cartID, product.ID, 1); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := f.service.ApplyCoupon(context.Background(), cartID, "STUDENT10"); err != nil {
		t.Fatalf("apply coupon failed: %v", err)
	}

	view, err := f.service.Clear(cartID)
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if len(view.Items) != 0 || view.Coupon.IsApplied || view.Coupon.Code != "" {
		t.Fatalf("cart and coupon should be reset: %+v", view)
	}
	assertAmount(t, "grand total", view.Pricing.GrandTotal, "0.00")

	var record models.Cart
	if err := f.db.First(&record, "id = ?", cartID).Error; err != nil {
		t.Fatalf("load cart failed: %v", err)
	}
	if record.CouponApplied {
		t.Fatalf("persisted coupon should be reset")
	}
}

func TestCartServiceKeepsCouponWhenResetDisabled(t *testing.T) {
	options := defaultCartOptions()
	options.ResetCouponOnClear = false
	f := newCartFixture(t, options)
	product := f.createProduct(t, "Lamp", "30.00", "0", nil)
	cartID := f.createCart(t)
	if _, err := f.service.AddItem(cartID, product.ID, 1); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := f.service.ApplyCoupon(context.Background(), cartID, "STUDENT10"); err != nil {
		t.Fatalf("apply coupon failed: %v", err)
	}
	view, err := f.service.RemoveItem(cartID, product.ID)
	if err != nil {
		t.Fatalf("remove item failed: %v", err)
	}
	if !view.Coupon.IsApplied {
		t.Fatalf("coupon should stay applied")
	}
	assertAmount(t, "discount on empty cart", view.Pricing.CouponDiscount, "0.00")
	assertAmount(t, "grand total", view.Pricing.GrandTotal, "0.00")
}

func TestCartServiceLocksPriceOnFirstAdd(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	product := f.createProduct(t, "Bag", "15.00", "0", nil)
	cartID := f.createCart(t)
	if _, err := f.service.AddItem(cartID, product.ID, 1); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if err := f.db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("price_amount", models.NewMoneyFromDecimal(decimal.NewFromInt(99))).Error; err != nil {
		t.Fatalf("update price failed: %v", err)
	}

	view, err := f.service.AddItem(cartID, product.ID, 2)
	if err != nil {
		t.Fatalf("add item again failed: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Quantity != 3 {
		t.Fatalf("expected one line with quantity 3: %+v", view.Items)
	}
	assertAmount(t, "unit price", view.Items[0].UnitPrice, "15.00")
	assertAmount(t, "subtotal", view.Pricing.Subtotal, "45.00")
}

func TestCartServiceRejectsUnavailableProducts(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	cartID := f.createCart(t)

	if _, err := f.service.AddItem(cartID, 9999, 1); !errors.Is(err, ErrProductNotAvailable) {
		t.Fatalf("expected ErrProductNotAvailable for missing product, got %v", err)
	}

	inactive := f.createProduct(t, "Old", "5.00", "0", nil)
	if err := f.db.Model(&models.Product{}).Where("id = ?", inactive.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}
	if _, err := f.service.AddItem(cartID, inactive.ID, 1); !errors.Is(err, ErrProductNotAvailable) {
		t.Fatalf("expected ErrProductNotAvailable for inactive product, got %v", err)
	}

	limited := f.createProduct(t, "Rare", "5.00", "0", intPtr(2))
	if _, err := f.service.AddItem(cartID, limited.ID, 2); err != nil {
		t.Fatalf("add within stock failed: %v", err)
	}
	if _, err := f.service.AddItem(cartID, limited.ID, 1); !errors.Is(err, ErrStockInsufficient) {
		t.Fatalf("expected ErrStockInsufficient, got %v", err)
	}
	if _, err := f.service.AddItem(cartID, limited.ID, 0); !errors.Is(err, ErrInvalidCartItem) {
		t.Fatalf("expected ErrInvalidCartItem, got %v", err)
	}
}

func TestCartServiceIncrementChecksCombinedStock(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	product := f.createProduct(t, "Poster", "8.00", "0", intPtr(5))
	cartID := f.createCart(t)
	if _, err := f.service.AddItem(cartID, product.ID, 3); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	if _, err := f.service.AddItem(cartID, product.ID, 3); !errors.Is(err, ErrStockInsufficient) {
		t.Fatalf("expected ErrStockInsufficient for 3+3 over stock 5, got %v", err)
	}
	view, err := f.service.AddItem(cartID, product.ID, 2)
	if err != nil {
		t.Fatalf("add up to stock failed: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Quantity != 5 {
		t.Fatalf("expected one line with quantity 5: %+v", view.Items)
	}
	assertAmount(t, "subtotal", view.Pricing.Subtotal, "40.00")
}

func TestCartServiceRejectedMutationLeavesCartUntouched(t *testing.T) {
	options := defaultCartOptions()
	options.MaxItems = 2
	options.MaxQuantity = 10
	f := newCartFixture(t, options)
	a := f.createProduct(t, "A", "20.00", "0", intPtr(4))
	b := f.createProduct(t, "B", "5.00", "0", nil)
	c := f.createProduct(t, "C", "1.00", "0", nil)
	cartID := f.createCart(t)
	if _, err := f.service.AddItem(cartID, a.ID, 2); err != nil {
		t.Fatalf("add a failed: %v", err)
	}
	if _, err := f.service.AddItem(cartID, b.ID, 1); err != nil {
		t.Fatalf("add b failed: %v", err)
	}
	if _, err := f.service.ApplyCoupon(context.Background(), cartID, "STUDENT10"); err != nil {
		t.Fatalf("apply coupon failed: %v", err)
	}
	before, err := f.service.GetCart(cartID)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	var stored models.Cart
	if err := f.db.First(&stored, "id = ?", cartID).Error; err != nil {
		t.Fatalf("load cart failed: %v", err)
	}

	rejected := []struct {
		name string
		run  func() error
		want error
	}{
		{"increment over stock", func() error { _, err := f.service.AddItem(cartID, a.ID, 3); return err }, ErrStockInsufficient},
		{"set over stock", func() error { _, err := f.service.SetQuantity(cartID, a.ID, 5); return err }, ErrStockInsufficient},
		{"increment over max quantity", func() error { _, err := f.service.AddItem(cartID, b.ID, 10); return err }, ErrQuantityTooLarge},
		{"too many lines", func() error { _, err := f.service.AddItem(cartID, c.ID, 1); return err }, ErrCartTooManyItems},
		{"set missing line", func() error { _, err := f.service.SetQuantity(cartID, c.ID, 1); return err }, ErrCartItemNotFound},
	}
	for _, tc := range rejected {
		if err := tc.run(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	after, err := f.service.GetCart(cartID)
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if len(after.Items) != len(before.Items) {
		t.Fatalf("line count changed: %+v -> %+v", before.Items, after.Items)
	}
	for i := range before.Items {
		if after.Items[i].ProductID != before.Items[i].ProductID || after.Items[i].Quantity != before.Items[i].Quantity {
			t.Fatalf("line %d changed: %+v -> %+v", i, before.Items[i], after.Items[i])
		}
	}
	if !after.Coupon.IsApplied {
		t.Fatalf("coupon should stay applied")
	}
	assertAmount(t, "grand total", after.Pricing.GrandTotal, before.Pricing.GrandTotal.StringFixed(2))

	var reloaded models.Cart
	if err := f.db.First(&reloaded, "id = ?", cartID).Error; err != nil {
		t.Fatalf("reload cart failed: %v", err)
	}
	if !reloaded.UpdatedAt.Equal(stored.UpdatedAt) {
		t.Fatalf("rejected mutations should not touch updated_at: %s -> %s", stored.UpdatedAt, reloaded.UpdatedAt)
	}
}

// couponWriteFailingRepo 单独写优惠码时总是失败
type couponWriteFailingRepo struct {
	repository.CartRepository
}

func (couponWriteFailingRepo) UpdateCoupon(*models.Cart) error {
	return errors.New("update coupon unavailable")
}

func TestCartServiceClearResetsCouponWithItems(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	product := f.createProduct(t, "Lamp", "30.00", "0", nil)
	cartID := f.createCart(t)
	if _, err := f.service.AddItem(cartID, product.ID, 1); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := f.service.ApplyCoupon(context.Background(), cartID, "STUDENT10"); err != nil {
		t.Fatalf("apply coupon failed: %v", err)
	}

	f.service.cartRepo = couponWriteFailingRepo{CartRepository: repository.NewCartRepository(f.db)}
	view, err := f.service.Clear(cartID)
	if err != nil {
		t.Fatalf("clear should not depend on a separate coupon write: %v", err)
	}
	if view.Coupon.IsApplied {
		t.Fatalf("coupon should be reset in view")
	}

	var record models.Cart
	if err := f.db.Preload("Items").First(&record, "id = ?", cartID).Error; err != nil {
		t.Fatalf("load cart failed: %v", err)
	}
	if len(record.Items) != 0 || record.CouponApplied || record.CouponCode != "" {
		t.Fatalf("items and coupon should be reset together: %+v", record)
	}
}

func TestCartServiceSetQuantityAndRemove(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	a := f.createProduct(t, "A", "4.00", "0", nil)
	b := f.createProduct(t, "B", "6.00", "0", nil)
	cartID := f.createCart(t)
	if _, err := f.service.AddItem(cartID, a.ID, 1); err != nil {
		t.Fatalf("add a failed: %v", err)
	}
	if _, err := f.service.AddItem(cartID, b.ID, 1); err != nil {
		t.Fatalf("add b failed: %v", err)
	}

	view, err := f.service.SetQuantity(cartID, a.ID, 5)
	if err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if view.Items[0].ProductID != a.ID || view.Items[0].Quantity != 5 {
		t.Fatalf("unexpected first line: %+v", view.Items[0])
	}
	assertAmount(t, "subtotal", view.Pricing.Subtotal, "26.00")

	if _, err := f.service.SetQuantity(cartID, 4242, 1); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
	if _, err := f.service.SetQuantity(cartID, a.ID, 1000); !errors.Is(err, ErrQuantityTooLarge) {
		t.Fatalf("expected ErrQuantityTooLarge, got %v", err)
	}

	view, err = f.service.SetQuantity(cartID, a.ID, 0)
	if err != nil {
		t.Fatalf("set quantity zero failed: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].ProductID != b.ID {
		t.Fatalf("line a should be removed: %+v", view.Items)
	}

	first, err := f.service.RemoveItem(cartID, a.ID)
	if err != nil {
		t.Fatalf("remove absent item failed: %v", err)
	}
	if len(first.Items) != 1 {
		t.Fatalf("remove absent item should be noop: %+v", first.Items)
	}
}

func TestCartServiceMaxItems(t *testing.T) {
	options := defaultCartOptions()
	options.MaxItems = 1
	f := newCartFixture(t, options)
	a := f.createProduct(t, "A", "1.00", "0", nil)
	b := f.createProduct(t, "B", "1.00", "0", nil)
	cartID := f.createCart(t)
	if _, err := f.service.AddItem(cartID, a.ID, 1); err != nil {
		t.Fatalf("add a failed: %v", err)
	}
	if _, err := f.service.AddItem(cartID, a.ID, 1); err != nil {
		t.Fatalf("increment a failed: %v", err)
	}
	if _, err := f.service.AddItem(cartID, b.ID, 1); !errors.Is(err, ErrCartTooManyItems) {
		t.Fatalf("expected ErrCartTooManyItems, got %v", err)
	}
}

func TestCartServiceUnknownCart(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	if _, err := f.service.GetCart("missing"); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
	if _, err := f.service.Clear(""); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestCartServiceRemoveCoupon(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	product := f.createProduct(t, "Book", "40.00", "0", nil)
	cartID := f.createCart(t)
	if _, err := f.service.AddItem(cartID, product.ID, 1); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := f.service.ApplyCoupon(context.Background(), cartID, "STUDENT10"); err != nil {
		t.Fatalf("apply coupon failed: %v", err)
	}
	view, err := f.service.RemoveCoupon(cartID)
	if err != nil {
		t.Fatalf("remove coupon failed: %v", err)
	}
	if view.Coupon.IsApplied {
		t.Fatalf("coupon should be removed")
	}
	assertAmount(t, "discount", view.Pricing.CouponDiscount, "0.00")
	if _, err := f.service.ApplyCoupon(context.Background(), cartID, "STUDENT10"); err != nil {
		t.Fatalf("re-apply after remove failed: %v", err)
	}
}

func TestCartServiceExpireIdle(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	cartID := f.createCart(t)
	var record models.Cart
	if err := f.db.First(&record, "id = ?", cartID).Error; err != nil {
		t.Fatalf("load cart failed: %v", err)
	}

	removed, err := f.service.ExpireIdle(cartID, record.UpdatedAt)
	if err != nil {
		t.Fatalf("expire idle failed: %v", err)
	}
	if removed {
		t.Fatalf("fresh cart should not expire")
	}

	f.service.now = func() time.Time { return record.UpdatedAt.Add(2 * time.Hour) }
	removed, err = f.service.ExpireIdle(cartID, record.UpdatedAt)
	if err != nil {
		t.Fatalf("expire idle failed: %v", err)
	}
	if !removed {
		t.Fatalf("idle cart should expire")
	}
	if _, err := f.service.GetCart(cartID); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound after expiry, got %v", err)
	}
}

func TestCartServiceSweepIdle(t *testing.T) {
	f := newCartFixture(t, defaultCartOptions())
	f.createCart(t)
	f.createCart(t)

	f.service.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	removed, err := f.service.SweepIdle(10)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("sweep removed want 2 got %d", removed)
	}
}

func couponAttempts(t *testing.T, registry *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "cart_coupon_attempts_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
