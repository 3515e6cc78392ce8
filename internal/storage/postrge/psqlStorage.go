package postrge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/storage"
	"github.com/google/uuid"
	"strings"
	"time"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (models.Account, error) {
	var acc models.Account
	err := row.Scan(&acc.ID, &acc.UserID, &acc.MainBalance, &acc.ReferralBalance,
		&acc.Currency, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, models.ErrAccountNotFound
		}
		return models.Account{}, err
	}
	return acc, nil
}

func scanTransaction(row scanner) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.Seq, &t.AccountID, &t.Type, &t.BalanceType, &t.Direction,
		&t.Amount, &t.Description, &t.Status, &t.ReferenceID, &t.CreatedAt)
	return t, err
}

func scanWithdrawal(row scanner) (models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(&w.ID, &w.UserID, &w.AccountID, &w.Amount, &w.Method,
		&w.PayoutDetails.Account, &w.PayoutDetails.HolderName, &w.Status, &w.AdminNote,
		&w.IdempotencyKey, &w.TransactionID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.WithdrawalRequest{}, models.ErrWithdrawalNotFound
		}
		return models.WithdrawalRequest{}, err
	}
	return w, nil
}

func scanTopup(row scanner) (models.TopupRequest, error) {
	var t models.TopupRequest
	var txID uuid.NullUUID
	err := row.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Method, &t.Status, &t.PaymentURL,
		&t.ExternalRef, &t.IdempotencyKey, &txID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TopupRequest{}, models.ErrTopupNotFound
		}
		return models.TopupRequest{}, err
	}
	if txID.Valid {
		t.TransactionID = txID.UUID
	}
	return t, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func (c *Connection) CreateAccount(ctx context.Context, acc models.Account) error {
	_, err := c.db.ExecContext(ctx, InsertAccountQuery,
		acc.ID, acc.UserID, acc.MainBalance, acc.ReferralBalance, acc.Currency, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (c *Connection) GetAccount(ctx context.Context, id uuid.UUID) (models.Account, error) {
	return scanAccount(c.db.QueryRowContext(ctx, GetAccountQuery, id))
}

func (c *Connection) GetAccountByUser(ctx context.Context, userID string) (models.Account, error) {
	return scanAccount(c.db.QueryRowContext(ctx, GetAccountByUserQuery, userID))
}

// whereBuilder collects AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, v any) {
	w.args = append(w.args, v)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return "TRUE"
	}
	return strings.Join(w.conds, " AND ")
}

func transactionWhere(accountID uuid.UUID, f models.TransactionFilter) *whereBuilder {
	w := &whereBuilder{}
	w.add("account_id = $%d", accountID)
	if f.Type != "" {
		w.add("type = $%d", string(f.Type))
	}
	if f.BalanceType != "" {
		w.add("balance_type = $%d", string(f.BalanceType))
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.DateFrom != nil {
		w.add("created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.add("created_at < $%d", *f.DateTo)
	}
	return w
}

func (c *Connection) ListTransactions(ctx context.Context, accountID uuid.UUID, f models.TransactionFilter, limit, offset int) ([]models.Transaction, int, error) {
	where := transactionWhere(accountID, f)

	var total int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE "+where.String(), where.args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC, seq DESC LIMIT %d OFFSET %d",
		transactionColumns, where.String(), limit, offset)
	rows, err := c.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	items := make([]models.Transaction, 0, limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan row: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during row iteration: %w", err)
	}
	return items, total, nil
}

func (c *Connection) EachTransaction(ctx context.Context, accountID uuid.UUID, f models.TransactionFilter, fn func(models.Transaction) error) error {
	where := transactionWhere(accountID, f)
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC, seq DESC",
		transactionColumns, where.String())
	rows, err := c.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (c *Connection) GetWithdrawal(ctx context.Context, id uuid.UUID) (models.WithdrawalRequest, error) {
	return scanWithdrawal(c.db.QueryRowContext(ctx, GetWithdrawalQuery, id))
}

func (c *Connection) ListWithdrawals(ctx context.Context, f models.WithdrawalFilter, limit, offset int) ([]models.WithdrawalRequest, int, error) {
	w := &whereBuilder{}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.UserID != "" {
		w.add("user_id = $%d", f.UserID)
	}
	if f.AccountID != uuid.Nil {
		w.add("account_id = $%d", f.AccountID)
	}
	if f.Method != "" {
		w.add("method = $%d", string(f.Method))
	}
	if f.DateFrom != nil {
		w.add("created_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.add("created_at < $%d", *f.DateTo)
	}

	var total int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM withdrawal_requests WHERE "+w.String(), w.args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM withdrawal_requests WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d",
		withdrawalColumns, w.String(), limit, offset)
	rows, err := c.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	items := make([]models.WithdrawalRequest, 0, limit)
	for rows.Next() {
		wr, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan row: %w", err)
		}
		items = append(items, wr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during row iteration: %w", err)
	}
	return items, total, nil
}

func (c *Connection) GetTopup(ctx context.Context, id uuid.UUID) (models.TopupRequest, error) {
	return scanTopup(c.db.QueryRowContext(ctx, GetTopupQuery, id))
}

func (c *Connection) GetAccrual(ctx context.Context, orderID string) (models.PlatformAccrual, error) {
	var a models.PlatformAccrual
	var txID uuid.NullUUID
	err := c.db.QueryRowContext(ctx, GetAccrualQuery, orderID).Scan(
		&a.OrderID, &a.ReferrerAccountID, &a.Commission.Split, &a.Commission.OrderTotal,
		&a.Commission.PartnerPercent, &a.Commission.TotalCommission, &a.Commission.ReferrerShare,
		&a.Commission.PlatformShare, &txID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PlatformAccrual{}, models.ErrNoData
		}
		return models.PlatformAccrual{}, classify(err)
	}
	if txID.Valid {
		a.TransactionID = txID.UUID
	}
	return a, nil
}

func (c *Connection) ExpireTopups(ctx context.Context, before time.Time) ([]models.TopupRequest, error) {
	rows, err := c.db.QueryContext(ctx, ExpireTopupsQuery, before)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var expired []models.TopupRequest
	for rows.Next() {
		t, err := scanTopup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		expired = append(expired, t)
	}
	return expired, rows.Err()
}

func (c *Connection) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	sqlTx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, fmt.Sprintf(SetLockTimeoutTemplate, c.lockTimeout.Milliseconds()))
	if err != nil {
		return classify(err)
	}

	if err := fn(ctx, &psqlTx{tx: sqlTx}); err != nil {
		return classify(err)
	}
	return classify(sqlTx.Commit())
}
