package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCouponCode 内置优惠码
const DefaultCouponCode = "STUDENT10"

var ErrCouponStateInvalid = errors.New("coupon state invalid")

// CouponResult 优惠码校验结果
type CouponResult struct {
	Valid           bool            `json:"valid"`
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// CouponState 购物车上的优惠码状态
type CouponState struct {
	Code            string          `json:"code"`
	IsApplied       bool            `json:"is_applied"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Validate discountPercent > 0 时必须已应用
func (s CouponState) Validate() error {
	if s.DiscountPercent.IsNegative() || s.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return ErrCouponStateInvalid
	}
	if s.DiscountPercent.IsPositive() && !s.IsApplied {
		return ErrCouponStateInvalid
	}
	return nil
}

// AppliedCoupon 由校验结果生成已应用状态
func AppliedCoupon(result CouponResult) CouponState {
	if !result.Valid {
		return CouponState{}
	}
	return CouponState{
		Code:            result.Code,
		IsApplied:       true,
		DiscountPercent: result.DiscountPercent,
	}
}

// DefaultCouponRules 默认规则表
func DefaultCouponRules() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		DefaultCouponCode: decimal.NewFromInt(10),
	}
}

// Evaluator 无状态优惠码校验器
type Evaluator struct {
	rules map[string]decimal.Decimal
}

// NewEvaluator 创建校验器；rules 为空时使用默认规则表。
// 百分比不在 (0, 100] 范围内的规则会被忽略。
func NewEvaluator(rules map[string]decimal.Decimal) *Evaluator {
	if len(rules) == 0 {
		rules = DefaultCouponRules()
	}
	normalized := make(map[string]decimal.Decimal, len(rules))
	for code, percent := range rules {
		key := NormalizeCouponCode(code)
		if key == "" {
			continue
		}
		if !percent.IsPositive() || percent.GreaterThan(decimal.NewFromInt(100)) {
			continue
		}
		normalized[key] = percent
	}
	return &Evaluator{rules: normalized}
}

// NormalizeCouponCode 去空白并转大写
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Apply 校验优惠码；无效码是正常的否定结果，不返回错误
func (e *Evaluator) Apply(code string) CouponResult {
	normalized := NormalizeCouponCode(code)
	if e == nil || normalized == "" {
		return CouponResult{Code: normalized, DiscountPercent: decimal.Zero}
	}
	percent, ok := e.rules[normalized]
	if !ok {
		return CouponResult{Code: normalized, DiscountPercent: decimal.Zero}
	}
	return CouponResult{
		Valid:           true,
		Code:            normalized,
		DiscountPercent: percent,
	}
}

// Len 已登记的优惠码数量
func (e *Evaluator) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}
