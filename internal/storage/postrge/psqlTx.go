package postrge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"time"
)

type psqlTx struct {
	tx *sql.Tx
}

func (p *psqlTx) LockAccount(ctx context.Context, id uuid.UUID) (models.Account, error) {
	return scanAccount(p.tx.QueryRowContext(ctx, LockAccountQuery, id))
}

func (p *psqlTx) SaveBalances(ctx context.Context, acc models.Account) error {
	_, err := p.tx.ExecContext(ctx, UpdateBalancesQuery, acc.ID, acc.MainBalance, acc.ReferralBalance, acc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	return nil
}

func (p *psqlTx) InsertTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	err := p.tx.QueryRowContext(ctx, InsertTransactionQuery,
		t.ID, t.AccountID, string(t.Type), string(t.BalanceType), string(t.Direction), t.Amount,
		t.Description, string(t.Status), t.ReferenceID, t.CreatedAt,
	).Scan(&t.Seq)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return t, nil
}

func (p *psqlTx) LedgerTotals(ctx context.Context, accountID uuid.UUID) (models.LedgerTotals, error) {
	totals := models.LedgerTotals{Main: decimal.Zero, Referral: decimal.Zero}
	rows, err := p.tx.QueryContext(ctx, LedgerTotalsQuery, accountID)
	if err != nil {
		return totals, fmt.Errorf("failed to sum transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bt models.BalanceType
		var sum decimal.Decimal
		var count int
		if err := rows.Scan(&bt, &sum, &count); err != nil {
			return totals, fmt.Errorf("failed to scan row: %w", err)
		}
		if bt == models.BalanceReferral {
			totals.Referral = sum
		} else {
			totals.Main = sum
		}
		totals.Count += count
	}
	return totals, rows.Err()
}

func (p *psqlTx) SetTransactionStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus) error {
	res, err := p.tx.ExecContext(ctx, SetTransactionStatusQuery, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: transaction %s is not %s", models.ErrInvalidStateTransition, id, from)
	}
	return nil
}

func (p *psqlTx) InsertWithdrawal(ctx context.Context, w models.WithdrawalRequest) error {
	_, err := p.tx.ExecContext(ctx, InsertWithdrawalQuery,
		w.ID, w.UserID, w.AccountID, w.Amount, string(w.Method), w.PayoutDetails.Account,
		w.PayoutDetails.HolderName, string(w.Status), w.AdminNote, w.IdempotencyKey,
		w.TransactionID, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert withdrawal request: %w", err)
	}
	return nil
}

func (p *psqlTx) FindWithdrawalByKey(ctx context.Context, accountID uuid.UUID, key string) (models.WithdrawalRequest, bool, error) {
	w, err := scanWithdrawal(p.tx.QueryRowContext(ctx, GetWithdrawalByKeyQuery, accountID, key))
	if err != nil {
		if errors.Is(err, models.ErrWithdrawalNotFound) {
			return models.WithdrawalRequest{}, false, nil
		}
		return models.WithdrawalRequest{}, false, err
	}
	return w, true, nil
}

func (p *psqlTx) ResolveWithdrawal(ctx context.Context, id uuid.UUID, to models.WithdrawalStatus, note string, at time.Time) (models.WithdrawalRequest, error) {
	w, err := scanWithdrawal(p.tx.QueryRowContext(ctx, ResolveWithdrawalQuery, id, string(to), note, at))
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, models.ErrWithdrawalNotFound) {
		return models.WithdrawalRequest{}, err
	}
	// nothing was updated: either the request is missing or it is no longer pending
	current, err := scanWithdrawal(p.tx.QueryRowContext(ctx, GetWithdrawalQuery, id))
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	return models.WithdrawalRequest{}, fmt.Errorf("%w: withdrawal %s is already %s",
		models.ErrInvalidStateTransition, id, current.Status)
}

func (p *psqlTx) InsertTopup(ctx context.Context, t models.TopupRequest) error {
	_, err := p.tx.ExecContext(ctx, InsertTopupQuery,
		t.ID, t.AccountID, t.Amount, string(t.Method), string(t.Status), t.PaymentURL, t.ExternalRef,
		t.IdempotencyKey, nullUUID(t.TransactionID), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert topup request: %w", err)
	}
	return nil
}

func (p *psqlTx) FindTopupByKey(ctx context.Context, accountID uuid.UUID, key string) (models.TopupRequest, bool, error) {
	t, err := scanTopup(p.tx.QueryRowContext(ctx, GetTopupByKeyQuery, accountID, key))
	if err != nil {
		if errors.Is(err, models.ErrTopupNotFound) {
			return models.TopupRequest{}, false, nil
		}
		return models.TopupRequest{}, false, err
	}
	return t, true, nil
}

func (p *psqlTx) AttachTopupPayment(ctx context.Context, id uuid.UUID, paymentURL, externalRef string) error {
	res, err := p.tx.ExecContext(ctx, AttachTopupPaymentQuery, id, paymentURL, externalRef)
	if err != nil {
		return fmt.Errorf("failed to attach payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrTopupNotFound
	}
	return nil
}

func (p *psqlTx) ResolveTopup(ctx context.Context, id uuid.UUID, to models.TopupStatus, txID uuid.UUID, externalRef string, at time.Time) (models.TopupRequest, error) {
	t, err := scanTopup(p.tx.QueryRowContext(ctx, ResolveTopupQuery, id, string(to), nullUUID(txID), externalRef, at))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, models.ErrTopupNotFound) {
		return models.TopupRequest{}, err
	}
	current, err := scanTopup(p.tx.QueryRowContext(ctx, GetTopupQuery, id))
	if err != nil {
		return models.TopupRequest{}, err
	}
	return models.TopupRequest{}, fmt.Errorf("%w: topup %s is already %s",
		models.ErrInvalidStateTransition, id, current.Status)
}

func (p *psqlTx) InsertAccrual(ctx context.Context, a models.PlatformAccrual) (bool, error) {
	res, err := p.tx.ExecContext(ctx, InsertAccrualQuery,
		a.OrderID, a.ReferrerAccountID, string(a.Commission.Split), a.Commission.OrderTotal,
		a.Commission.PartnerPercent, a.Commission.TotalCommission, a.Commission.ReferrerShare,
		a.Commission.PlatformShare, nullUUID(a.TransactionID), a.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert accrual: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
