package ledger

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
)

type LedgerService interface {
	OpenAccount(ctx context.Context, userID string) (models.Account, error)
	AccountByUser(ctx context.Context, userID string) (models.Account, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (models.Balances, error)
	PostTransaction(ctx context.Context, e Entry) (models.Transaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, f models.TransactionFilter, limit, offset int) (models.Page[models.Transaction], error)
	EachTransaction(ctx context.Context, accountID uuid.UUID, f models.TransactionFilter, fn func(models.Transaction) error) error
	Reconcile(ctx context.Context, accountID uuid.UUID) (models.Reconciliation, error)
}
