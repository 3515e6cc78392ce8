package models

import (
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"positive integer", "100", false},
		{"two decimals", "100.55", false},
		{"trailing zero beyond scale", "100.500", false},
		{"three decimals", "100.555", true},
		{"zero", "0", true},
		{"negative", "-5", true},
		{"largest storable", "999999999999.99", false},
		{"above the column limit", "1000000000000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAccountApply(t *testing.T) {
	acc := Account{
		MainBalance:     decimal.NewFromInt(500),
		ReferralBalance: decimal.NewFromInt(2000),
	}

	require.NoError(t, acc.Apply(BalanceReferral, DirectionDebit, decimal.NewFromInt(2000)))
	assert.True(t, acc.ReferralBalance.IsZero())

	require.NoError(t, acc.Apply(BalanceMain, DirectionCredit, decimal.NewFromInt(2000)))
	assert.Equal(t, "2500", acc.MainBalance.String())

	err := acc.Apply(BalanceReferral, DirectionDebit, decimal.RequireFromString("0.01"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, acc.ReferralBalance.IsZero())
}

func TestDirectionOf(t *testing.T) {
	for _, typ := range []TransactionType{TxTopup, TxReferral, TxRefund} {
		dir, ok := DirectionOf(typ)
		assert.True(t, ok)
		assert.Equal(t, DirectionCredit, dir, typ)
	}
	for _, typ := range []TransactionType{TxWithdrawal, TxPurchase, TxPromotion} {
		dir, ok := DirectionOf(typ)
		assert.True(t, ok)
		assert.Equal(t, DirectionDebit, dir, typ)
	}
	_, ok := DirectionOf(TxTransfer)
	assert.False(t, ok)
}

func TestTransactionEffective(t *testing.T) {
	assert.True(t, Transaction{Status: TxStatusCompleted, Direction: DirectionCredit}.Effective())
	assert.True(t, Transaction{Status: TxStatusPending, Direction: DirectionDebit}.Effective())
	assert.False(t, Transaction{Status: TxStatusPending, Direction: DirectionCredit}.Effective())
	assert.False(t, Transaction{Status: TxStatusFailed, Direction: DirectionDebit}.Effective())
}

func TestTransactionFilterMatch(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tx := Transaction{
		Type:        TxReferral,
		BalanceType: BalanceReferral,
		Status:      TxStatusCompleted,
		CreatedAt:   now,
	}
	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)

	assert.True(t, TransactionFilter{}.Match(tx))
	assert.True(t, TransactionFilter{Type: TxReferral, BalanceType: BalanceReferral, DateFrom: &from, DateTo: &to}.Match(tx))
	assert.False(t, TransactionFilter{Type: TxReferral, BalanceType: BalanceMain}.Match(tx))
	assert.False(t, TransactionFilter{DateTo: &now}.Match(tx))
}

func TestWithdrawalStatusTerminal(t *testing.T) {
	assert.False(t, WithdrawalPending.Terminal())
	assert.True(t, WithdrawalPaid.Terminal())
	assert.True(t, WithdrawalRejected.Terminal())
	assert.True(t, WithdrawalCancelled.Terminal())
}

func TestPayoutDetailsComplete(t *testing.T) {
	assert.True(t, PayoutDetails{Account: "0555123456", HolderName: "A. User"}.Complete())
	assert.False(t, PayoutDetails{Account: "   ", HolderName: "A. User"}.Complete())
	assert.False(t, PayoutDetails{Account: "0555123456"}.Complete())
}

func TestNormalizePage(t *testing.T) {
	l, o := NormalizePage(0, -3)
	assert.Equal(t, DefaultPageLimit, l)
	assert.Equal(t, 0, o)

	l, _ = NormalizePage(100000, 0)
	assert.Equal(t, MaxPageLimit, l)
}
