package service

import (
	"context"
	"time"

	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/pricing"
	"github.com/dujiao-next/storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// CouponService 优惠码规则服务
// 规则读取顺序：Redis 快照 → 数据库启用规则 → 内置默认规则
type CouponService struct {
	repo     repository.CouponRepository
	fallback map[string]decimal.Decimal
	cacheTTL time.Duration
	now      func() time.Time
}

// NewCouponService 创建优惠码服务
func NewCouponService(repo repository.CouponRepository, defaultCode string, defaultPercent decimal.Decimal, cacheTTL time.Duration) *CouponService {
	fallback := pricing.DefaultCouponRules()
	if code := pricing.NormalizeCouponCode(defaultCode); code != "" && defaultPercent.IsPositive() {
		fallback = map[string]decimal.Decimal{code: defaultPercent}
	}
	return &CouponService{
		repo:     repo,
		fallback: fallback,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Evaluate 校验优惠码
func (s *CouponService) Evaluate(ctx context.Context, code string) (pricing.CouponResult, error) {
	evaluator, err := s.Evaluator(ctx)
	if err != nil {
		return pricing.CouponResult{}, err
	}
	return evaluator.Apply(code), nil
}

// Evaluator 构建当前规则表的校验器
// 数据库中没有任何优惠码记录时才使用内置默认规则
func (s *CouponService) Evaluator(ctx context.Context) (*pricing.Evaluator, error) {
	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot == nil || !snapshot.Stored {
		return pricing.NewEvaluator(s.fallback), nil
	}
	return pricing.NewEvaluator(parseRuleSnapshot(snapshot, s.now())), nil
}

// InvalidateRules 清除规则缓存
func (s *CouponService) InvalidateRules(ctx context.Context) error {
	return cache.DelCouponRules(ctx)
}

func (s *CouponService) loadSnapshot(ctx context.Context) (*cache.CouponRuleSnapshot, error) {
	snapshot, hit, err := cache.GetCouponRules(ctx)
	if err != nil {
		logger.Warnw("coupon_rules_cache_get_failed", "error", err)
	}
	if hit && snapshot != nil {
		return snapshot, nil
	}
	if s.repo == nil {
		return nil, nil
	}
	count, err := s.repo.Count()
	if err != nil {
		return nil, err
	}
	var coupons []models.Coupon
	if count > 0 {
		coupons, err = s.repo.ListActive()
		if err != nil {
			return nil, err
		}
	}
	snapshot = cache.BuildCouponRuleSnapshot(coupons, count > 0, s.now())
	if err := cache.SetCouponRules(ctx, snapshot, s.cacheTTL); err != nil {
		logger.Warnw("coupon_rules_cache_set_failed", "error", err)
	}
	return snapshot, nil
}

// parseRuleSnapshot 取出 now 时刻生效的规则
func parseRuleSnapshot(snapshot *cache.CouponRuleSnapshot, now time.Time) map[string]decimal.Decimal {
	rules := make(map[string]decimal.Decimal, len(snapshot.Rules))
	for code, entry := range snapshot.Rules {
		if !entry.EffectiveAt(now) {
			continue
		}
		percent, err := decimal.NewFromString(entry.Percent)
		if err != nil {
			logger.Warnw("coupon_rule_parse_failed", "code", code, "value", entry.Percent, "error", err)
			continue
		}
		rules[code] = percent
	}
	return rules
}
