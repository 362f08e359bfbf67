package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/metrics"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/pricing"
	"github.com/dujiao-next/storefront/internal/provider"
	"github.com/dujiao-next/storefront/internal/repository"
	"github.com/dujiao-next/storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type cartPayload struct {
	ID    string `json:"id"`
	Items []struct {
		ProductID uint   `json:"product_id"`
		Quantity  int    `json:"quantity"`
		Subtotal  string `json:"subtotal"`
	} `json:"items"`
	Coupon struct {
		Code      string `json:"code"`
		IsApplied bool   `json:"is_applied"`
	} `json:"coupon"`
	Pricing struct {
		Subtotal       string `json:"subtotal"`
		ShippingFee    string `json:"shipping_fee"`
		Tax            string `json:"tax"`
		CouponDiscount string `json:"coupon_discount"`
		GrandTotal     string `json:"grand_total"`
	} `json:"pricing"`
}

func newTestEngine(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:router_%s?mode=memory&cache=shared", name)), &gorm.Config{})
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

	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "debug"},
		Coupon:  config.CouponConfig{ApplyRateLimit: 10, ApplyWindowSeconds: 60},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	registry := prometheus.NewRegistry()
	products := service.NewProductService(repository.NewProductRepository(db))
	coupons := service.NewCouponService(repository.NewCouponRepository(db), pricing.DefaultCouponCode, decimal.NewFromInt(10), time.Minute)
	container := &provider.Container{
		Config:          cfg,
		MetricsRegistry: registry,
		CartMetrics:     metrics.NewCartMetrics(registry),
		HTTPMetrics:     metrics.NewHTTPMetrics(registry),
		ProductService:  products,
		CouponService:   coupons,
	}
	container.CartService = service.NewCartService(
		repository.NewCartRepository(db),
		products,
		coupons,
		nil,
		container.CartMetrics,
		pricing.DefaultPolicy(),
		service.CartOptions{MaxItems: 10, MaxQuantity: 99, ResetCouponOnClear: true},
	)
	return SetupRouter(cfg, container), db
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "en-US")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func decodeCart(t *testing.T, resp envelope) cartPayload {
	t.Helper()
	if resp.StatusCode != 0 {
		t.Fatalf("expected success, got %d %s", resp.StatusCode, resp.Msg)
	}
	var payload cartPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("unmarshal cart failed: %v", err)
	}
	return payload
}

func TestCartRoutesEndToEnd(t *testing.T) {
	engine, db := newTestEngine(t)
	product := models.Product{
		Name:        "Textbook",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
		IsActive:    true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	created := decodeCart(t, doJSON(t, engine, http.MethodPost, "/api/v1/carts", nil))
	if created.ID == "" {
		t.Fatalf("cart id should be returned")
	}
	base := "/api/v1/carts/" + created.ID

	cart := decodeCart(t, doJSON(t, engine, http.MethodPost, base+"/items", gin.H{"product_id": product.ID, "quantity": 3}))
	if cart.Pricing.GrandTotal != "64.80" || cart.Pricing.ShippingFee != "0.00" {
		t.Fatalf("unexpected pricing: %+v", cart.Pricing)
	}

	resp := doJSON(t, engine, http.MethodPost, base+"/coupon", gin.H{"code": "nope"})
	if resp.StatusCode != 400 || resp.Msg != "Invalid coupon code" {
		t.Fatalf("invalid coupon response unexpected: %+v", resp)
	}

	resp = doJSON(t, engine, http.MethodPost, base+"/coupon", gin.H{"code": "student10"})
	cart = decodeCart(t, resp)
	if resp.Msg != "Coupon STUDENT10 applied" {
		t.Fatalf("unexpected success message: %s", resp.Msg)
	}
	if !cart.Coupon.IsApplied || cart.Pricing.GrandTotal != "58.80" {
		t.Fatalf("unexpected coupon pricing: %+v", cart)
	}

	resp = doJSON(t, engine, http.MethodPost, base+"/coupon", gin.H{"code": "STUDENT10"})
	if resp.StatusCode != 400 || resp.Msg != "Coupon already applied" {
		t.Fatalf("re-apply response unexpected: %+v", resp)
	}

	path := fmt.Sprintf("%s/items/%d", base, product.ID)
	cart = decodeCart(t, doJSON(t, engine, http.MethodPut, path, gin.H{"quantity": 1}))
	if cart.Items[0].Quantity != 1 || cart.Pricing.ShippingFee != "5.99" {
		t.Fatalf("unexpected cart after set quantity: %+v", cart)
	}

	cart = decodeCart(t, doJSON(t, engine, http.MethodDelete, base+"/items", nil))
	if len(cart.Items) != 0 || cart.Coupon.IsApplied || cart.Pricing.GrandTotal != "0.00" {
		t.Fatalf("unexpected cart after clear: %+v", cart)
	}
}

func TestCartRoutesValidation(t *testing.T) {
	engine, _ := newTestEngine(t)

	resp := doJSON(t, engine, http.MethodGet, "/api/v1/carts/not-a-uuid", nil)
	if resp.StatusCode != 400 || resp.Msg != "Invalid cart ID" {
		t.Fatalf("invalid id response unexpected: %+v", resp)
	}

	resp = doJSON(t, engine, http.MethodGet, "/api/v1/carts/3f1c5a52-6a49-4f1c-9e55-0a4d1d1f7b10", nil)
	if resp.StatusCode != 404 || resp.Msg != "Cart not found" {
		t.Fatalf("missing cart response unexpected: %+v", resp)
	}

	created := decodeCart(t, doJSON(t, engine, http.MethodPost, "/api/v1/carts", nil))
	resp = doJSON(t, engine, http.MethodPost, "/api/v1/carts/"+created.ID+"/items", gin.H{"product_id": 77, "quantity": 1})
	if resp.StatusCode != 400 || resp.Msg != "Product is not available" {
		t.Fatalf("unavailable product response unexpected: %+v", resp)
	}

	resp = doJSON(t, engine, http.MethodPost, "/api/v1/carts/"+created.ID+"/coupon", gin.H{"code": "  "})
	if resp.StatusCode != 400 || resp.Msg != "Please enter a coupon code" {
		t.Fatalf("empty code response unexpected: %+v", resp)
	}
}

func TestAddCartItemDefaultsQuantity(t *testing.T) {
	engine, db := newTestEngine(t)
	product := models.Product{
		Name:        "Sticker",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(2)),
		IsActive:    true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	created := decodeCart(t, doJSON(t, engine, http.MethodPost, "/api/v1/carts", nil))
	path := "/api/v1/carts/" + created.ID + "/items"

	cart := decodeCart(t, doJSON(t, engine, http.MethodPost, path, gin.H{"product_id": product.ID}))
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 1 {
		t.Fatalf("omitted quantity should add one: %+v", cart.Items)
	}

	cart = decodeCart(t, doJSON(t, engine, http.MethodPost, path, gin.H{"product_id": product.ID, "quantity": 0}))
	if cart.Items[0].Quantity != 2 {
		t.Fatalf("zero quantity should add one: %+v", cart.Items)
	}

	resp := doJSON(t, engine, http.MethodPost, path, gin.H{"product_id": product.ID, "quantity": -1})
	if resp.StatusCode != 400 {
		t.Fatalf("negative quantity should be rejected: %+v", resp)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	engine, _ := newTestEngine(t)

	doJSON(t, engine, http.MethodPost, "/api/v1/carts", nil)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status want 200 got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "cart_mutations_total") || !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics output missing cart counters: %s", body)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status want 200 got %d", w.Code)
	}
}
