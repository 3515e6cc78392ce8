package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"time"
)

const DefaultCurrency = "KGS"

type BalanceType string

const (
	BalanceMain     BalanceType = "main"
	BalanceReferral BalanceType = "referral"
)

func (b BalanceType) Valid() bool {
	return b == BalanceMain || b == BalanceReferral
}

type Account struct {
	ID              uuid.UUID       `json:"id"`
	UserID          string          `json:"user_id"`
	MainBalance     decimal.Decimal `json:"main_balance"`
	ReferralBalance decimal.Decimal `json:"referral_balance"`
	Currency        string          `json:"currency"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (a *Account) Balance(bt BalanceType) decimal.Decimal {
	if bt == BalanceReferral {
		return a.ReferralBalance
	}
	return a.MainBalance
}

// Apply moves the cached balance by amount in the given direction.
// The account is left untouched when a debit would make the balance negative.
func (a *Account) Apply(bt BalanceType, dir Direction, amount decimal.Decimal) error {
	next := a.Balance(bt)
	if dir == DirectionDebit {
		next = next.Sub(amount)
	} else {
		next = next.Add(amount)
	}
	if next.IsNegative() {
		return ErrInsufficientFunds
	}
	if bt == BalanceReferral {
		a.ReferralBalance = next
	} else {
		a.MainBalance = next
	}
	return nil
}

// Balances is the user-facing projection of an Account.
type Balances struct {
	AccountID uuid.UUID       `json:"account_id"`
	Main      decimal.Decimal `json:"main"`
	Referral  decimal.Decimal `json:"referral"`
	Currency  string          `json:"currency"`
}

func (a *Account) Balances() Balances {
	return Balances{
		AccountID: a.ID,
		Main:      a.MainBalance,
		Referral:  a.ReferralBalance,
		Currency:  a.Currency,
	}
}

// LedgerTotals is the signed sum of the rows that count towards the cached balances.
type LedgerTotals struct {
	Main     decimal.Decimal
	Referral decimal.Decimal
	Count    int
}

// Reconciliation compares the cached balances with the totals recomputed from the ledger.
type Reconciliation struct {
	AccountID        uuid.UUID       `json:"account_id"`
	CachedMain       decimal.Decimal `json:"cached_main"`
	CachedReferral   decimal.Decimal `json:"cached_referral"`
	LedgerMain       decimal.Decimal `json:"ledger_main"`
	LedgerReferral   decimal.Decimal `json:"ledger_referral"`
	Consistent       bool            `json:"consistent"`
	TransactionCount int             `json:"transaction_count"`
}
