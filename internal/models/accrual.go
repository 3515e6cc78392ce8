package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"time"
)

type SplitName string

const (
	// SplitDefault gives the referrer 45% of the commission pool.
	SplitDefault SplitName = "default"
	// SplitPartnerShare gives the referrer 40%, used by partner-product sharing pages.
	SplitPartnerShare SplitName = "partner_share"
)

type CommissionSplit struct {
	Split           SplitName       `json:"split"`
	OrderTotal      decimal.Decimal `json:"order_total"`
	PartnerPercent  decimal.Decimal `json:"partner_percent"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	ReferrerShare   decimal.Decimal `json:"referrer_share"`
	PlatformShare   decimal.Decimal `json:"platform_share"`
}

// OrderConfirmed is sent by the orders collaborator when an order completes.
type OrderConfirmed struct {
	OrderID           string          `json:"order_id"`
	OrderTotal        decimal.Decimal `json:"order_total"`
	PartnerPercent    decimal.Decimal `json:"partner_percent"`
	ReferrerAccountID uuid.UUID       `json:"referrer_account_id"`
	Split             SplitName       `json:"split,omitempty"`
}

// PlatformAccrual records the platform side of a commission split, one row per order.
type PlatformAccrual struct {
	OrderID           string          `json:"order_id"`
	ReferrerAccountID uuid.UUID       `json:"referrer_account_id"`
	Commission        CommissionSplit `json:"commission"`
	TransactionID     uuid.UUID       `json:"transaction_id"`
	CreatedAt         time.Time       `json:"created_at"`
}
