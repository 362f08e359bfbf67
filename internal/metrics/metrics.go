package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics 购物车与计价相关指标
type CartMetrics struct {
	mutations      *prometheus.CounterVec
	couponAttempts *prometheus.CounterVec
	pricingLatency prometheus.Histogram
	pricingErrors  prometheus.Counter
}

// NewCartMetrics 在 reg 上注册指标；reg 为 nil 时返回空实现
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutation operations by kind and outcome.",
	}, []string{"operation", "outcome"})
	couponAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_coupon_attempts_total",
		Help: "Coupon apply attempts by result.",
	}, []string{"result"})
	pricingLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_pricing_duration_seconds",
		Help:    "Duration of cart pricing calculations.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})
	pricingErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_pricing_invariant_errors_total",
		Help: "Pricing calculations refused because of invalid cart state.",
	})
	reg.MustRegister(mutations, couponAttempts, pricingLatency, pricingErrors)
	return &CartMetrics{
		mutations:      mutations,
		couponAttempts: couponAttempts,
		pricingLatency: pricingLatency,
		pricingErrors:  pricingErrors,
	}
}

// ObserveMutation 记录一次购物车变更
func (m *CartMetrics) ObserveMutation(operation string, err error) {
	if m == nil || m.mutations == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mutations.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}

// ObserveCoupon 记录优惠码尝试结果（valid/invalid/already_applied）
func (m *CartMetrics) ObserveCoupon(result string) {
	if m == nil || m.couponAttempts == nil {
		return
	}
	m.couponAttempts.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObservePricing 记录一次计价
func (m *CartMetrics) ObservePricing(duration time.Duration, err error) {
	if m == nil || m.pricingLatency == nil {
		return
	}
	m.pricingLatency.Observe(duration.Seconds())
	if err != nil && m.pricingErrors != nil {
		m.pricingErrors.Inc()
	}
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
