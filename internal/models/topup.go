package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"time"
)

type TopupStatus string

const (
	TopupPending   TopupStatus = "pending"
	TopupCompleted TopupStatus = "completed"
	TopupFailed    TopupStatus = "failed"
)

type TopupMethod string

const (
	// TopupInstant credits the main balance in the same request.
	TopupInstant TopupMethod = "instant"
	// TopupRedirect waits for the payment gateway to confirm the payment.
	TopupRedirect TopupMethod = "redirect"
)

func (m TopupMethod) Valid() bool {
	return m == TopupInstant || m == TopupRedirect
}

type TopupRequest struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         TopupMethod     `json:"method"`
	Status         TopupStatus     `json:"status"`
	PaymentURL     string          `json:"payment_url,omitempty"`
	ExternalRef    string          `json:"external_ref,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	TransactionID  uuid.UUID       `json:"transaction_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
