package wallets

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TopupInput struct {
	Amount         decimal.Decimal    `json:"amount"`
	Method         models.TopupMethod `json:"method"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
}

type WithdrawalInput struct {
	Amount         decimal.Decimal      `json:"amount"`
	Method         models.PayoutMethod  `json:"method"`
	PayoutDetails  models.PayoutDetails `json:"payout_details"`
	IdempotencyKey string               `json:"idempotency_key,omitempty"`
}

type WalletService interface {
	Topup(ctx context.Context, accountID uuid.UUID, in TopupInput) (models.TopupRequest, error)
	ConfirmTopup(ctx context.Context, topupID uuid.UUID, succeeded bool, externalRef string) (models.TopupRequest, error)
	Transfer(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (models.Balances, error)
	RequestWithdrawal(ctx context.Context, accountID uuid.UUID, in WithdrawalInput) (models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, accountID uuid.UUID, limit, offset int) (models.Page[models.WithdrawalRequest], error)
}
