package withdrawals

import (
	"context"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/ledger"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"strings"
)

type RService struct {
	book *ledger.Book
}

func NewRService(book *ledger.Book) *RService {
	return &RService{book: book}
}

func (s *RService) List(ctx context.Context, f models.WithdrawalFilter, limit, offset int) (models.Page[models.WithdrawalRequest], error) {
	limit, offset = models.NormalizePage(limit, offset)
	items, total, err := s.book.Store().ListWithdrawals(ctx, f, limit, offset)
	if err != nil {
		return models.Page[models.WithdrawalRequest]{}, err
	}
	if items == nil {
		items = []models.WithdrawalRequest{}
	}
	return models.Page[models.WithdrawalRequest]{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *RService) Get(ctx context.Context, id uuid.UUID) (models.WithdrawalRequest, error) {
	return s.book.Store().GetWithdrawal(ctx, id)
}

// Approve marks the request paid. The reservation debit becomes completed; the balance
// does not move again.
func (s *RService) Approve(ctx context.Context, id uuid.UUID, note string) (models.WithdrawalRequest, error) {
	return s.resolve(ctx, id, models.WithdrawalPaid, strings.TrimSpace(note))
}

// Reject returns the reserved amount to the referral balance. A note is mandatory.
func (s *RService) Reject(ctx context.Context, id uuid.UUID, note string) (models.WithdrawalRequest, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return models.WithdrawalRequest{}, models.ErrNoteRequired
	}
	return s.resolve(ctx, id, models.WithdrawalRejected, note)
}

// Cancel reverses the reservation like Reject, without requiring a note.
func (s *RService) Cancel(ctx context.Context, id uuid.UUID, note string) (models.WithdrawalRequest, error) {
	return s.resolve(ctx, id, models.WithdrawalCancelled, strings.TrimSpace(note))
}

// resolve locks the account first and then swaps the request status, the same order
// RequestWithdrawal takes, so reviews and new requests on one account never deadlock.
func (s *RService) resolve(ctx context.Context, id uuid.UUID, to models.WithdrawalStatus, note string) (models.WithdrawalRequest, error) {
	current, err := s.book.Store().GetWithdrawal(ctx, id)
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if current.Status.Terminal() {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: withdrawal %s is already %s",
			models.ErrInvalidStateTransition, id, current.Status)
	}

	var resolved models.WithdrawalRequest
	err = s.book.Run(ctx, func(ctx context.Context, w *ledger.Writer) error {
		acc, err := w.Lock(ctx, current.AccountID)
		if err != nil {
			return err
		}
		resolved, err = w.Tx().ResolveWithdrawal(ctx, id, to, note, w.Now())
		if err != nil {
			return err
		}
		if err := w.Settle(ctx, resolved.TransactionID); err != nil {
			return err
		}
		if to != models.WithdrawalPaid {
			if _, err := w.Post(ctx, ledger.Entry{
				AccountID:   resolved.AccountID,
				Type:        models.TxRefund,
				BalanceType: models.BalanceReferral,
				Amount:      resolved.Amount,
				Description: refundDescription(to),
				ReferenceID: resolved.ID.String(),
			}); err != nil {
				return err
			}
		}
		w.Notify(notificationFor(resolved, acc.Currency))
		return nil
	})
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	logger.Log.Info("withdrawal reviewed",
		zap.Stringer("withdrawal", id),
		zap.String("status", string(resolved.Status)),
		zap.String("amount", resolved.Amount.StringFixed(models.MoneyScale)))
	return resolved, nil
}

func refundDescription(to models.WithdrawalStatus) string {
	if to == models.WithdrawalCancelled {
		return "Withdrawal cancelled, amount returned"
	}
	return "Withdrawal rejected, amount returned"
}

func notificationFor(w models.WithdrawalRequest, currency string) models.Notification {
	kind := models.NotifyWithdrawalPaid
	switch w.Status {
	case models.WithdrawalRejected:
		kind = models.NotifyWithdrawalRejected
	case models.WithdrawalCancelled:
		kind = models.NotifyWithdrawalCancelled
	}
	return models.Notification{
		UserID: w.UserID,
		Kind:   kind,
		Payload: map[string]string{
			"withdrawal_id": w.ID.String(),
			"amount":        w.Amount.StringFixed(models.MoneyScale),
			"currency":      currency,
			"method":        string(w.Method),
			"note":          w.AdminNote,
		},
	}
}
