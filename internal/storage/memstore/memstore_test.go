package memstore

import (
	"context"
	"errors"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func newAccount(t *testing.T, s *Store) models.Account {
	t.Helper()
	acc := models.Account{
		ID:              uuid.New(),
		UserID:          uuid.NewString(),
		MainBalance:     decimal.Zero,
		ReferralBalance: decimal.Zero,
		Currency:        models.DefaultCurrency,
	}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func TestCreateAccount_Duplicate(t *testing.T) {
	s := New()
	acc := newAccount(t, s)
	acc.ID = uuid.New()
	assert.ErrorIs(t, s.CreateAccount(context.Background(), acc), models.ErrAccountAlreadyExists)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := New()
	acc := newAccount(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		locked, err := tx.LockAccount(ctx, acc.ID)
		require.NoError(t, err)
		locked.MainBalance = decimal.NewFromInt(100)
		require.NoError(t, tx.SaveBalances(ctx, locked))
		_, err = tx.InsertTransaction(ctx, models.Transaction{ID: uuid.New(), AccountID: acc.ID})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.MainBalance.IsZero())
	assert.Empty(t, s.Transactions(acc.ID))
}

func TestListTransactions_OrderAndPaging(t *testing.T) {
	s := New()
	acc := newAccount(t, s)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		for i := 0; i < 5; i++ {
			// two rows share each timestamp so the sequence has to break the tie
			_, err := tx.InsertTransaction(ctx, models.Transaction{
				ID:          uuid.New(),
				AccountID:   acc.ID,
				Type:        models.TxTopup,
				BalanceType: models.BalanceMain,
				Status:      models.TxStatusCompleted,
				Amount:      decimal.NewFromInt(int64(i + 1)),
				CreatedAt:   base.Add(time.Duration(i/2) * time.Minute),
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	items, total, err := s.ListTransactions(ctx, acc.ID, models.TransactionFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	assert.Equal(t, "5", items[0].Amount.String())
	assert.Equal(t, "4", items[1].Amount.String())

	items, _, err = s.ListTransactions(ctx, acc.ID, models.TransactionFilter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "3", items[0].Amount.String())
	assert.Equal(t, "2", items[1].Amount.String())

	items, _, err = s.ListTransactions(ctx, acc.ID, models.TransactionFilter{}, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestResolveWithdrawal_CompareAndSwap(t *testing.T) {
	s := New()
	acc := newAccount(t, s)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertWithdrawal(ctx, models.WithdrawalRequest{ID: id, AccountID: acc.ID, Status: models.WithdrawalPending})
	}))

	err := s.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.ResolveWithdrawal(ctx, id, models.WithdrawalPaid, "ref-1", time.Now())
		return err
	})
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.ResolveWithdrawal(ctx, id, models.WithdrawalRejected, "late", time.Now())
		return err
	})
	assert.ErrorIs(t, err, models.ErrInvalidStateTransition)

	w, err := s.GetWithdrawal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPaid, w.Status)
	assert.Equal(t, "ref-1", w.AdminNote)
}

func TestExpireTopups(t *testing.T) {
	s := New()
	acc := newAccount(t, s)
	ctx := context.Background()
	now := time.Now()
	old, fresh := uuid.New(), uuid.New()

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertTopup(ctx, models.TopupRequest{ID: old, AccountID: acc.ID, Status: models.TopupPending, CreatedAt: now.Add(-2 * time.Hour)}); err != nil {
			return err
		}
		return tx.InsertTopup(ctx, models.TopupRequest{ID: fresh, AccountID: acc.ID, Status: models.TopupPending, CreatedAt: now})
	}))

	expired, err := s.ExpireTopups(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old, expired[0].ID)

	got, err := s.GetTopup(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, models.TopupPending, got.Status)
}
