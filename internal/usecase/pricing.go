package usecase

import (
	"math/big"
	"time"

	"bioshield/internal/domain"
)

const SecondsPerYear int64 = 365 * 24 * 60 * 60

const cancellationFeeBps int64 = 1_000

type PremiumInput struct {
	Amount        int64
	PeriodSeconds int64
	RiskScore     int
	Market        domain.MarketSnapshot
	Utilization   domain.UtilizationSnapshot
	Tier          domain.UserTier
	PayWithToken  bool
}

// PremiumBreakdown records every adjustment applied so a quote can be
// audited step by step.
type PremiumBreakdown struct {
	BasePremium      int64 `json:"base_premium"`
	FinalPremium     int64 `json:"final_premium"`
	RiskMultiplier   int64 `json:"risk_multiplier_bps"`
	MarketMultiplier int64 `json:"market_multiplier"`
	UtilizationPct   int64 `json:"utilization_pct"`
	TierDiscountPct  int64 `json:"tier_discount_pct"`
	TokenDiscountPct int64 `json:"token_discount_pct"`
	PeriodSeconds    int64 `json:"period_seconds"`
}

// PricingEngine computes premiums from already-fetched snapshots. It holds
// no mutable state; bounds come from configuration.
type PricingEngine struct {
	MinCoverage int64
	MaxCoverage int64
}

// ComputePremium is pure. The multiplications and truncating divisions are
// applied in a fixed order; reordering changes the rounding of the result.
func (e *PricingEngine) ComputePremium(in PremiumInput) (PremiumBreakdown, error) {
	if in.Amount < e.MinCoverage || in.Amount > e.MaxCoverage {
		return PremiumBreakdown{}, domain.ErrValidation
	}
	if in.PeriodSeconds <= 0 {
		return PremiumBreakdown{}, domain.ErrValidation
	}
	if in.RiskScore < 0 || in.RiskScore > 100 {
		return PremiumBreakdown{}, domain.ErrValidation
	}

	riskBps := RiskMultiplierBps(in.RiskScore)
	marketMul := in.Market.VolatilityBps100
	if marketMul <= 0 {
		marketMul = 100
	}
	tierDiscount := TierDiscountPct(in.Tier)

	base := big.NewInt(in.Amount)
	base.Mul(base, big.NewInt(riskBps))
	base.Div(base, big.NewInt(10_000))

	base.Mul(base, big.NewInt(in.PeriodSeconds))
	base.Div(base, big.NewInt(SecondsPerYear))

	base.Mul(base, big.NewInt(marketMul))
	base.Div(base, big.NewInt(100))

	switch {
	case in.Utilization.Percent > 80:
		base.Mul(base, big.NewInt(120))
		base.Div(base, big.NewInt(100))
	case in.Utilization.Percent < 30:
		base.Mul(base, big.NewInt(90))
		base.Div(base, big.NewInt(100))
	}

	base.Mul(base, big.NewInt(100-tierDiscount))
	base.Div(base, big.NewInt(100))

	final := new(big.Int).Set(base)
	tokenDiscount := int64(0)
	if in.PayWithToken {
		tokenDiscount = 50
		final.Mul(final, big.NewInt(50))
		final.Div(final, big.NewInt(100))
	}

	if !base.IsInt64() || !final.IsInt64() || final.Int64() <= 0 {
		return PremiumBreakdown{}, domain.ErrValidation
	}

	return PremiumBreakdown{
		BasePremium:      base.Int64(),
		FinalPremium:     final.Int64(),
		RiskMultiplier:   riskBps,
		MarketMultiplier: marketMul,
		UtilizationPct:   in.Utilization.Percent,
		TierDiscountPct:  tierDiscount,
		TokenDiscountPct: tokenDiscount,
		PeriodSeconds:    in.PeriodSeconds,
	}, nil
}

func RiskMultiplierBps(riskScore int) int64 {
	switch {
	case riskScore < 30:
		return 300
	case riskScore < 50:
		return 500
	case riskScore < 70:
		return 800
	default:
		return 1200
	}
}

func TierDiscountPct(tier domain.UserTier) int64 {
	switch tier {
	case domain.TierPremium:
		return 15
	case domain.TierGold:
		return 10
	case domain.TierSilver:
		return 5
	default:
		return 0
	}
}

// RefundAmount is the cancellation refund: premium scaled by the remaining
// coverage ratio less a fixed 10% fee, floored at zero. Computed in basis
// points to stay integer.
func RefundAmount(premium int64, start, end, now time.Time) int64 {
	total := end.Sub(start)
	if premium <= 0 || total <= 0 {
		return 0
	}
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	if remaining > total {
		remaining = total
	}
	remainingBps := new(big.Int).SetInt64(int64(remaining))
	remainingBps.Mul(remainingBps, big.NewInt(10_000))
	remainingBps.Div(remainingBps, big.NewInt(int64(total)))

	refundBps := remainingBps.Int64() - cancellationFeeBps
	if refundBps <= 0 {
		return 0
	}
	refund := big.NewInt(premium)
	refund.Mul(refund, big.NewInt(refundBps))
	refund.Div(refund, big.NewInt(10_000))
	return refund.Int64()
}
