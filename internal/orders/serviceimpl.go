package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/commission"
	"github.com/Fuonder/marketledger.git/internal/ledger"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"strings"
)

var errAlreadyAccrued = errors.New("order already accrued")

type OService struct {
	book *ledger.Book
}

func NewOService(book *ledger.Book) *OService {
	return &OService{book: book}
}

// OnOrderConfirmed splits the commission of a completed order, credits the referrer's share
// to the referral balance and records the platform share. Replaying the same order id
// returns the accrual recorded the first time and posts nothing.
func (s *OService) OnOrderConfirmed(ctx context.Context, ev models.OrderConfirmed) (models.PlatformAccrual, error) {
	ev.OrderID = strings.TrimSpace(ev.OrderID)
	if ev.OrderID == "" {
		return models.PlatformAccrual{}, fmt.Errorf("%w: order id is required", models.ErrInvalidOrder)
	}
	if ev.ReferrerAccountID == uuid.Nil {
		return models.PlatformAccrual{}, fmt.Errorf("%w: referrer account is required", models.ErrInvalidOrder)
	}
	split, err := commission.Compute(ev.OrderTotal, ev.PartnerPercent, ev.Split)
	if err != nil {
		return models.PlatformAccrual{}, err
	}

	if existing, err := s.book.Store().GetAccrual(ctx, ev.OrderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, models.ErrNoData) {
		return models.PlatformAccrual{}, err
	}

	var accrual models.PlatformAccrual
	err = s.book.Run(ctx, func(ctx context.Context, w *ledger.Writer) error {
		acc, err := w.Lock(ctx, ev.ReferrerAccountID)
		if err != nil {
			return err
		}
		accrual = models.PlatformAccrual{
			OrderID:           ev.OrderID,
			ReferrerAccountID: ev.ReferrerAccountID,
			Commission:        split,
			CreatedAt:         w.Now(),
		}
		if split.ReferrerShare.IsPositive() {
			t, err := w.Post(ctx, ledger.Entry{
				AccountID:   ev.ReferrerAccountID,
				Type:        models.TxReferral,
				BalanceType: models.BalanceReferral,
				Amount:      split.ReferrerShare,
				Description: fmt.Sprintf("Referral commission for order %s", ev.OrderID),
				ReferenceID: ev.OrderID,
			})
			if err != nil {
				return err
			}
			accrual.TransactionID = t.ID
			w.Notify(models.Notification{
				UserID: acc.UserID,
				Kind:   models.NotifyCommissionCredited,
				Payload: map[string]string{
					"order_id": ev.OrderID,
					"amount":   split.ReferrerShare.StringFixed(models.MoneyScale),
					"currency": acc.Currency,
				},
			})
		}
		inserted, err := w.Tx().InsertAccrual(ctx, accrual)
		if err != nil {
			return err
		}
		if !inserted {
			return errAlreadyAccrued
		}
		return nil
	})
	if errors.Is(err, errAlreadyAccrued) {
		// a concurrent delivery of the same order won; its accrual is the answer
		return s.book.Store().GetAccrual(ctx, ev.OrderID)
	}
	if err != nil {
		return models.PlatformAccrual{}, err
	}

	logger.Log.Info("order commission accrued",
		zap.String("order", ev.OrderID),
		zap.String("split", string(split.Split)),
		zap.String("total", split.TotalCommission.StringFixed(models.MoneyScale)),
		zap.String("referrer", split.ReferrerShare.StringFixed(models.MoneyScale)),
		zap.String("platform", split.PlatformShare.StringFixed(models.MoneyScale)))
	return accrual, nil
}

func (s *OService) GetAccrual(ctx context.Context, orderID string) (models.PlatformAccrual, error) {
	return s.book.Store().GetAccrual(ctx, orderID)
}
