package ledger

import (
	"context"
	"errors"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"strings"
)

type LService struct {
	book     *Book
	currency string
}

func NewLService(book *Book, currency string) *LService {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &LService{book: book, currency: currency}
}

// OpenAccount creates the account of a newly registered user with both balances at zero.
// Opening an account that already exists returns the existing one.
func (s *LService) OpenAccount(ctx context.Context, userID string) (models.Account, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Account{}, fmt.Errorf("user id is required")
	}
	now := s.book.now().UTC()
	acc := models.Account{
		ID:              uuid.New(),
		UserID:          userID,
		MainBalance:     decimal.Zero,
		ReferralBalance: decimal.Zero,
		Currency:        s.currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.book.store.CreateAccount(ctx, acc)
	if errors.Is(err, models.ErrAccountAlreadyExists) {
		return s.book.store.GetAccountByUser(ctx, userID)
	}
	if err != nil {
		return models.Account{}, err
	}
	logger.Log.Info("account opened", zap.String("user", userID), zap.Stringer("account", acc.ID))
	return acc, nil
}

func (s *LService) AccountByUser(ctx context.Context, userID string) (models.Account, error) {
	return s.book.store.GetAccountByUser(ctx, userID)
}

// GetBalance reads through the balance cache. The accounts table stays authoritative.
func (s *LService) GetBalance(ctx context.Context, accountID uuid.UUID) (models.Balances, error) {
	if b, ok := s.book.cache.Get(ctx, accountID); ok {
		return b, nil
	}
	acc, err := s.book.store.GetAccount(ctx, accountID)
	if err != nil {
		return models.Balances{}, err
	}
	b := acc.Balances()
	s.book.cache.Set(ctx, b)
	return b, nil
}

func (s *LService) PostTransaction(ctx context.Context, e Entry) (models.Transaction, error) {
	var posted models.Transaction
	err := s.book.Run(ctx, func(ctx context.Context, w *Writer) error {
		var err error
		posted, err = w.Post(ctx, e)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return posted, nil
}

func (s *LService) ListTransactions(ctx context.Context, accountID uuid.UUID, f models.TransactionFilter, limit, offset int) (models.Page[models.Transaction], error) {
	limit, offset = models.NormalizePage(limit, offset)
	items, total, err := s.book.store.ListTransactions(ctx, accountID, f, limit, offset)
	if err != nil {
		return models.Page[models.Transaction]{}, err
	}
	if items == nil {
		items = []models.Transaction{}
	}
	return models.Page[models.Transaction]{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *LService) EachTransaction(ctx context.Context, accountID uuid.UUID, f models.TransactionFilter, fn func(models.Transaction) error) error {
	return s.book.store.EachTransaction(ctx, accountID, f, fn)
}

// Reconcile recomputes both balances from the ledger while holding the account lock,
// so no posting can slip in between the two reads.
func (s *LService) Reconcile(ctx context.Context, accountID uuid.UUID) (models.Reconciliation, error) {
	var rec models.Reconciliation
	err := s.book.Run(ctx, func(ctx context.Context, w *Writer) error {
		acc, err := w.Lock(ctx, accountID)
		if err != nil {
			return err
		}
		totals, err := w.Tx().LedgerTotals(ctx, accountID)
		if err != nil {
			return err
		}
		rec = models.Reconciliation{
			AccountID:        accountID,
			CachedMain:       acc.MainBalance,
			CachedReferral:   acc.ReferralBalance,
			LedgerMain:       totals.Main,
			LedgerReferral:   totals.Referral,
			Consistent:       acc.MainBalance.Equal(totals.Main) && acc.ReferralBalance.Equal(totals.Referral),
			TransactionCount: totals.Count,
		}
		return nil
	})
	if err != nil {
		return models.Reconciliation{}, err
	}
	if !rec.Consistent {
		logger.Log.Error("ledger drift detected",
			zap.Stringer("account", accountID),
			zap.String("cached_main", rec.CachedMain.String()),
			zap.String("ledger_main", rec.LedgerMain.String()),
			zap.String("cached_referral", rec.CachedReferral.String()),
			zap.String("ledger_referral", rec.LedgerReferral.String()))
	}
	return rec, nil
}
