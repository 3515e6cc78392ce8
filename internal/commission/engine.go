// Package commission computes how an order's referral commission is shared
// between the referrer and the platform.
package commission

import (
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// MinPartnerPercent is the lowest seller percent that makes a product a partner product.
	MinPartnerPercent = decimal.NewFromInt(2)
	maxPartnerPercent = decimal.NewFromInt(100)
	hundred           = decimal.NewFromInt(100)

	referrerRates = map[models.SplitName]decimal.Decimal{
		models.SplitDefault:      decimal.RequireFromString("0.45"),
		models.SplitPartnerShare: decimal.RequireFromString("0.40"),
	}
)

// Compute returns the commission split for an order. It has no side effects.
func Compute(orderTotal, partnerPercent decimal.Decimal, split models.SplitName) (models.CommissionSplit, error) {
	if split == "" {
		split = models.SplitDefault
	}
	rate, ok := referrerRates[split]
	if !ok {
		return models.CommissionSplit{}, fmt.Errorf("%w: unknown commission split %q", models.ErrInvalidOrder, split)
	}
	if err := models.ValidateAmount(orderTotal); err != nil {
		return models.CommissionSplit{}, fmt.Errorf("order total: %w", err)
	}
	if partnerPercent.GreaterThan(maxPartnerPercent) || partnerPercent.IsNegative() {
		return models.CommissionSplit{}, fmt.Errorf("%w: %s", models.ErrInvalidPercent, partnerPercent)
	}
	if partnerPercent.LessThan(MinPartnerPercent) {
		return models.CommissionSplit{}, fmt.Errorf("%w: %s%% is below %s%%",
			models.ErrNotPartnerProduct, partnerPercent, MinPartnerPercent)
	}

	total := models.Round2(orderTotal.Mul(partnerPercent).Div(hundred))
	referrer := models.Round2(total.Mul(rate))

	return models.CommissionSplit{
		Split:           split,
		OrderTotal:      orderTotal,
		PartnerPercent:  partnerPercent,
		TotalCommission: total,
		ReferrerShare:   referrer,
		// the platform absorbs the rounding remainder
		PlatformShare: total.Sub(referrer),
	}, nil
}
