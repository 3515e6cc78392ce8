package wallets

import (
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/shopspring/decimal"
)

type Limits struct {
	TopupMin decimal.Decimal
	TopupMax decimal.Decimal
	// WithdrawMin applies to every payout method without its own entry in WithdrawMinByMethod.
	WithdrawMin         decimal.Decimal
	WithdrawMinByMethod map[models.PayoutMethod]decimal.Decimal
}

func DefaultLimits() Limits {
	return Limits{
		TopupMin:    decimal.NewFromInt(100),
		TopupMax:    decimal.NewFromInt(100000),
		WithdrawMin: decimal.NewFromInt(1000),
		WithdrawMinByMethod: map[models.PayoutMethod]decimal.Decimal{
			models.PayoutCard: decimal.NewFromInt(3000),
		},
	}
}

func (l Limits) MinimumWithdrawal(m models.PayoutMethod) decimal.Decimal {
	if v, ok := l.WithdrawMinByMethod[m]; ok {
		return v
	}
	return l.WithdrawMin
}

func (l Limits) checkTopup(amount decimal.Decimal) error {
	if err := models.ValidateAmount(amount); err != nil {
		return err
	}
	if amount.LessThan(l.TopupMin) {
		return fmt.Errorf("%w: top-up minimum is %s", models.ErrBelowMinimum, l.TopupMin.StringFixed(models.MoneyScale))
	}
	if amount.GreaterThan(l.TopupMax) {
		return fmt.Errorf("%w: top-up maximum is %s", models.ErrAboveMaximum, l.TopupMax.StringFixed(models.MoneyScale))
	}
	return nil
}

func (l Limits) checkWithdrawal(in WithdrawalInput) error {
	if err := models.ValidateAmount(in.Amount); err != nil {
		return err
	}
	if !in.Method.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownPayoutMethod, in.Method)
	}
	if minimum := l.MinimumWithdrawal(in.Method); in.Amount.LessThan(minimum) {
		return fmt.Errorf("%w: %s minimum is %s", models.ErrBelowMinimum, in.Method, minimum.StringFixed(models.MoneyScale))
	}
	if !in.PayoutDetails.Complete() {
		return models.ErrMissingPayoutDetails
	}
	return nil
}
