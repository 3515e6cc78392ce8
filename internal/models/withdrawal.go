package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"strings"
	"time"
)

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalPaid      WithdrawalStatus = "paid"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalPaid || s == WithdrawalRejected || s == WithdrawalCancelled
}

func (s WithdrawalStatus) Valid() bool {
	return s == WithdrawalPending || s.Terminal()
}

// PayoutMethod is an external payout rail.
type PayoutMethod string

const (
	PayoutMBank  PayoutMethod = "mbank"
	PayoutOptima PayoutMethod = "optima"
	PayoutBakai  PayoutMethod = "bakai"
	PayoutElsom  PayoutMethod = "elsom"
	PayoutODengi PayoutMethod = "odengi"
	PayoutCard   PayoutMethod = "card"
)

var PayoutMethods = []PayoutMethod{PayoutMBank, PayoutOptima, PayoutBakai, PayoutElsom, PayoutODengi, PayoutCard}

func (m PayoutMethod) Valid() bool {
	for _, known := range PayoutMethods {
		if m == known {
			return true
		}
	}
	return false
}

type PayoutDetails struct {
	Account    string `json:"account"`
	HolderName string `json:"holder_name"`
}

func (d PayoutDetails) Complete() bool {
	return strings.TrimSpace(d.Account) != "" && strings.TrimSpace(d.HolderName) != ""
}

type WithdrawalRequest struct {
	ID             uuid.UUID        `json:"id"`
	UserID         string           `json:"user_id"`
	AccountID      uuid.UUID        `json:"account_id"`
	Amount         decimal.Decimal  `json:"amount"`
	Method         PayoutMethod     `json:"method"`
	PayoutDetails  PayoutDetails    `json:"payout_details"`
	Status         WithdrawalStatus `json:"status"`
	AdminNote      string           `json:"admin_note,omitempty"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	TransactionID  uuid.UUID        `json:"transaction_id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type WithdrawalFilter struct {
	Status    WithdrawalStatus
	UserID    string
	AccountID uuid.UUID
	Method    PayoutMethod
	DateFrom  *time.Time
	DateTo    *time.Time
}

func (f WithdrawalFilter) Match(w WithdrawalRequest) bool {
	if f.Status != "" && w.Status != f.Status {
		return false
	}
	if f.UserID != "" && w.UserID != f.UserID {
		return false
	}
	if f.AccountID != uuid.Nil && w.AccountID != f.AccountID {
		return false
	}
	if f.Method != "" && w.Method != f.Method {
		return false
	}
	if f.DateFrom != nil && w.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && !w.CreatedAt.Before(*f.DateTo) {
		return false
	}
	return true
}
