package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"time"
)

type TransactionType string

const (
	TxTopup      TransactionType = "topup"
	TxWithdrawal TransactionType = "withdrawal"
	TxPurchase   TransactionType = "purchase"
	TxReferral   TransactionType = "referral"
	TxPromotion  TransactionType = "promotion"
	TxTransfer   TransactionType = "transfer"
	TxRefund     TransactionType = "refund"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxTopup, TxWithdrawal, TxPurchase, TxReferral, TxPromotion, TxTransfer, TxRefund:
		return true
	}
	return false
}

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// DirectionOf returns the fixed sign of a transaction type.
// Transfers have no fixed sign: each leg states its own direction.
func DirectionOf(t TransactionType) (Direction, bool) {
	switch t {
	case TxTopup, TxReferral, TxRefund:
		return DirectionCredit, true
	case TxWithdrawal, TxPurchase, TxPromotion:
		return DirectionDebit, true
	}
	return "", false
}

type TransactionStatus string

const (
	TxStatusPending    TransactionStatus = "pending"
	TxStatusProcessing TransactionStatus = "processing"
	TxStatusCompleted  TransactionStatus = "completed"
	TxStatusFailed     TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxStatusPending, TxStatusProcessing, TxStatusCompleted, TxStatusFailed:
		return true
	}
	return false
}

type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	Seq         int64             `json:"-"`
	AccountID   uuid.UUID         `json:"account_id"`
	Type        TransactionType   `json:"type"`
	BalanceType BalanceType       `json:"balance_type"`
	Direction   Direction         `json:"direction"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
	Status      TransactionStatus `json:"status"`
	ReferenceID string            `json:"reference_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Signed returns the amount with the sign of its direction.
func (t Transaction) Signed() decimal.Decimal {
	if t.Direction == DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Effective reports whether the row counts towards the cached balance:
// completed rows always, pending rows only when they are reservation debits.
func (t Transaction) Effective() bool {
	switch t.Status {
	case TxStatusCompleted:
		return true
	case TxStatusPending, TxStatusProcessing:
		return t.Direction == DirectionDebit
	}
	return false
}

type TransactionFilter struct {
	Type        TransactionType
	BalanceType BalanceType
	Status      TransactionStatus
	DateFrom    *time.Time
	DateTo      *time.Time
}

// Match applies the filter conjunctively. DateTo is exclusive.
func (f TransactionFilter) Match(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.BalanceType != "" && t.BalanceType != f.BalanceType {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.DateFrom != nil && t.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && !t.CreatedAt.Before(*f.DateTo) {
		return false
	}
	return true
}

type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 500
)

// NormalizePage clamps limit and offset into the supported range.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
