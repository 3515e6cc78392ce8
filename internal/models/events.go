package models

import (
	"github.com/google/uuid"
	"time"
)

const EventTransactionPosted = "ledger.transaction_posted"

// Event is a domain event emitted by the ledger after a unit of work commits.
type Event struct {
	ID          uuid.UUID   `json:"id"`
	Kind        string      `json:"kind"`
	AccountID   uuid.UUID   `json:"account_id"`
	Transaction Transaction `json:"transaction"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

type NotificationKind string

const (
	NotifyWithdrawalPaid      NotificationKind = "withdrawal_paid"
	NotifyWithdrawalRejected  NotificationKind = "withdrawal_rejected"
	NotifyWithdrawalCancelled NotificationKind = "withdrawal_cancelled"
	NotifyCommissionCredited  NotificationKind = "commission_credited"
	NotifyTopupCompleted      NotificationKind = "topup_completed"
)

type Notification struct {
	UserID  string            `json:"user_id"`
	Kind    NotificationKind  `json:"kind"`
	Payload map[string]string `json:"payload"`
}
