package cache

import (
	"context"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/models"
)

const (
	couponRulesKey        = "coupon:rules:v2"
	defaultCouponRulesTTL = 5 * time.Minute
)

// CouponRuleEntry 单条规则，时间窗口为 Unix 秒，nil 表示不限
type CouponRuleEntry struct {
	Percent  string `json:"percent"`
	StartsAt *int64 `json:"starts_at,omitempty"`
	EndsAt   *int64 `json:"ends_at,omitempty"`
}

// EffectiveAt 在给定时间是否处于生效窗口
func (e CouponRuleEntry) EffectiveAt(now time.Time) bool {
	unix := now.Unix()
	if e.StartsAt != nil && unix < *e.StartsAt {
		return false
	}
	if e.EndsAt != nil && unix > *e.EndsAt {
		return false
	}
	return true
}

// CouponRuleSnapshot 优惠码规则快照
// Rules 包含全部启用规则及其时间窗口，读取时再按当前时间过滤
// Stored 表示数据库中存在优惠码记录（含停用）
type CouponRuleSnapshot struct {
	Rules     map[string]CouponRuleEntry `json:"rules"`
	Stored    bool                       `json:"stored"`
	UpdatedAt int64                      `json:"updated_at"`
}

// BuildCouponRuleSnapshot 从启用中的优惠码列表构建快照
func BuildCouponRuleSnapshot(coupons []models.Coupon, stored bool, now time.Time) *CouponRuleSnapshot {
	snapshot := &CouponRuleSnapshot{
		Rules:     make(map[string]CouponRuleEntry, len(coupons)),
		Stored:    stored || len(coupons) > 0,
		UpdatedAt: now.Unix(),
	}
	for i := range coupons {
		coupon := &coupons[i]
		if !coupon.IsActive {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(coupon.Code))
		if code == "" {
			continue
		}
		snapshot.Rules[code] = CouponRuleEntry{
			Percent:  coupon.DiscountPercent.String(),
			StartsAt: unixOrNil(coupon.StartsAt),
			EndsAt:   unixOrNil(coupon.EndsAt),
		}
	}
	return snapshot
}

func unixOrNil(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	unix := t.Unix()
	return &unix
}

// GetCouponRules 读取规则快照
func GetCouponRules(ctx context.Context) (*CouponRuleSnapshot, bool, error) {
	var snapshot CouponRuleSnapshot
	hit, err := GetJSON(ctx, couponRulesKey, &snapshot)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &snapshot, true, nil
}

// SetCouponRules 写入规则快照
func SetCouponRules(ctx context.Context, snapshot *CouponRuleSnapshot, ttl time.Duration) error {
	if snapshot == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultCouponRulesTTL
	}
	return SetJSON(ctx, couponRulesKey, snapshot, ttl)
}

// DelCouponRules 删除规则快照
func DelCouponRules(ctx context.Context) error {
	return Del(ctx, couponRulesKey)
}
