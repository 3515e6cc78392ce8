package storage

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"time"
)

// Tx is one database transaction. Every balance-affecting change goes through a Tx
// after the account row has been locked with LockAccount.
type Tx interface {
	// LockAccount returns the account and holds it locked until the transaction ends.
	LockAccount(ctx context.Context, id uuid.UUID) (models.Account, error)
	SaveBalances(ctx context.Context, acc models.Account) error

	InsertTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)
	// LedgerTotals sums the effective rows of an account, see models.Transaction.Effective.
	LedgerTotals(ctx context.Context, accountID uuid.UUID) (models.LedgerTotals, error)
	// SetTransactionStatus moves a row from one status to another, failing with
	// ErrInvalidStateTransition when the row is no longer in status from.
	SetTransactionStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus) error

	InsertWithdrawal(ctx context.Context, w models.WithdrawalRequest) error
	FindWithdrawalByKey(ctx context.Context, accountID uuid.UUID, key string) (models.WithdrawalRequest, bool, error)
	// ResolveWithdrawal moves a pending request to a terminal status (compare-and-swap).
	ResolveWithdrawal(ctx context.Context, id uuid.UUID, to models.WithdrawalStatus, note string, at time.Time) (models.WithdrawalRequest, error)

	InsertTopup(ctx context.Context, t models.TopupRequest) error
	FindTopupByKey(ctx context.Context, accountID uuid.UUID, key string) (models.TopupRequest, bool, error)
	AttachTopupPayment(ctx context.Context, id uuid.UUID, paymentURL, externalRef string) error
	// ResolveTopup moves a pending top-up to completed or failed (compare-and-swap).
	ResolveTopup(ctx context.Context, id uuid.UUID, to models.TopupStatus, txID uuid.UUID, externalRef string, at time.Time) (models.TopupRequest, error)

	// InsertAccrual reports false without error when the order already has an accrual.
	InsertAccrual(ctx context.Context, a models.PlatformAccrual) (bool, error)
}

type Reader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (models.Account, error)
	GetAccountByUser(ctx context.Context, userID string) (models.Account, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, f models.TransactionFilter, limit, offset int) ([]models.Transaction, int, error)
	// EachTransaction streams every matching row in listing order.
	EachTransaction(ctx context.Context, accountID uuid.UUID, f models.TransactionFilter, fn func(models.Transaction) error) error

	GetWithdrawal(ctx context.Context, id uuid.UUID) (models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, f models.WithdrawalFilter, limit, offset int) ([]models.WithdrawalRequest, int, error)
	GetTopup(ctx context.Context, id uuid.UUID) (models.TopupRequest, error)
	GetAccrual(ctx context.Context, orderID string) (models.PlatformAccrual, error)
}

type Store interface {
	Reader
	CreateAccount(ctx context.Context, acc models.Account) error
	// WithinTx runs fn in a single transaction, committing only when fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// ExpireTopups marks pending top-ups created before the cutoff as failed.
	ExpireTopups(ctx context.Context, before time.Time) ([]models.TopupRequest, error)
	Close() error
}
