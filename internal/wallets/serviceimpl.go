package wallets

import (
	"context"
	"errors"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/gateway"
	"github.com/Fuonder/marketledger.git/internal/ledger"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type WService struct {
	book     *ledger.Book
	gateway  gateway.PaymentGateway
	limits   Limits
	currency string
}

// NewWService builds the wallet service. gw may be nil, in which case redirect top-ups fail
// with models.ErrExternalGateway.
func NewWService(book *ledger.Book, gw gateway.PaymentGateway, limits Limits, currency string) *WService {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &WService{book: book, gateway: gw, limits: limits, currency: currency}
}

// Topup credits the main balance. Instant top-ups post the credit immediately; redirect
// top-ups stay pending until the gateway confirms the payment through ConfirmTopup.
func (s *WService) Topup(ctx context.Context, accountID uuid.UUID, in TopupInput) (models.TopupRequest, error) {
	if in.Method == "" {
		in.Method = models.TopupInstant
	}
	if !in.Method.Valid() {
		return models.TopupRequest{}, fmt.Errorf("%w: %q", models.ErrUnknownTopupMethod, in.Method)
	}
	if err := s.limits.checkTopup(in.Amount); err != nil {
		return models.TopupRequest{}, err
	}
	if in.Method == models.TopupRedirect && s.gateway == nil {
		return models.TopupRequest{}, fmt.Errorf("%w: no payment gateway configured", models.ErrExternalGateway)
	}

	var topup models.TopupRequest
	created := false
	err := s.book.Run(ctx, func(ctx context.Context, w *ledger.Writer) error {
		if _, err := w.Lock(ctx, accountID); err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			existing, found, err := w.Tx().FindTopupByKey(ctx, accountID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if found {
				topup = existing
				return nil
			}
		}

		topup = models.TopupRequest{
			ID:             uuid.New(),
			AccountID:      accountID,
			Amount:         in.Amount,
			Method:         in.Method,
			Status:         models.TopupPending,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      w.Now(),
			UpdatedAt:      w.Now(),
		}
		if in.Method == models.TopupInstant {
			t, err := w.Post(ctx, ledger.Entry{
				AccountID:   accountID,
				Type:        models.TxTopup,
				BalanceType: models.BalanceMain,
				Amount:      in.Amount,
				Description: "Balance top-up",
				ReferenceID: topup.ID.String(),
			})
			if err != nil {
				return err
			}
			topup.Status = models.TopupCompleted
			topup.TransactionID = t.ID
		}
		created = true
		return w.Tx().InsertTopup(ctx, topup)
	})
	if err != nil {
		return models.TopupRequest{}, err
	}
	if !created && topup.Status == models.TopupFailed {
		// replay of a top-up the gateway refused or that expired unpaid
		return topup, fmt.Errorf("%w: topup %s failed", models.ErrExternalGateway, topup.ID)
	}
	if !created || topup.Method != models.TopupRedirect {
		return topup, nil
	}
	return s.startPayment(ctx, topup)
}

// startPayment runs after the top-up row is committed so the gateway call never holds the account lock.
func (s *WService) startPayment(ctx context.Context, topup models.TopupRequest) (models.TopupRequest, error) {
	session, err := s.gateway.CreatePayment(ctx, gateway.PaymentRequest{
		TopupID:  topup.ID,
		Amount:   topup.Amount,
		Currency: s.currency,
	})
	if err != nil {
		logger.Log.Warn("payment gateway refused top-up", zap.Stringer("topup", topup.ID), zap.Error(err))
		failErr := s.book.Run(ctx, func(ctx context.Context, w *ledger.Writer) error {
			_, err := w.Tx().ResolveTopup(ctx, topup.ID, models.TopupFailed, uuid.Nil, "", w.Now())
			return err
		})
		if failErr != nil {
			logger.Log.Error("failed to mark top-up failed", zap.Stringer("topup", topup.ID), zap.Error(failErr))
		}
		return models.TopupRequest{}, err
	}

	err = s.book.Run(ctx, func(ctx context.Context, w *ledger.Writer) error {
		return w.Tx().AttachTopupPayment(ctx, topup.ID, session.PaymentURL, session.ExternalRef)
	})
	if err != nil {
		return models.TopupRequest{}, err
	}
	topup.PaymentURL = session.PaymentURL
	topup.ExternalRef = session.ExternalRef
	return topup, nil
}

// ConfirmTopup applies the gateway outcome of a redirect top-up. Repeating a confirmation
// with the same outcome returns the stored request unchanged.
func (s *WService) ConfirmTopup(ctx context.Context, topupID uuid.UUID, succeeded bool, externalRef string) (models.TopupRequest, error) {
	current, err := s.book.Store().GetTopup(ctx, topupID)
	if err != nil {
		return models.TopupRequest{}, err
	}
	if current.Status != models.TopupPending {
		if (succeeded && current.Status == models.TopupCompleted) || (!succeeded && current.Status == models.TopupFailed) {
			return current, nil
		}
		return models.TopupRequest{}, fmt.Errorf("%w: topup %s is already %s",
			models.ErrInvalidStateTransition, topupID, current.Status)
	}
	if externalRef == "" {
		externalRef = current.ExternalRef
	}

	var resolved models.TopupRequest
	err = s.book.Run(ctx, func(ctx context.Context, w *ledger.Writer) error {
		acc, err := w.Lock(ctx, current.AccountID)
		if err != nil {
			return err
		}
		if !succeeded {
			resolved, err = w.Tx().ResolveTopup(ctx, topupID, models.TopupFailed, uuid.Nil, externalRef, w.Now())
			return err
		}

		t, err := w.Post(ctx, ledger.Entry{
			AccountID:   current.AccountID,
			Type:        models.TxTopup,
			BalanceType: models.BalanceMain,
			Amount:      current.Amount,
			Description: "Balance top-up",
			ReferenceID: topupID.String(),
		})
		if err != nil {
			return err
		}
		resolved, err = w.Tx().ResolveTopup(ctx, topupID, models.TopupCompleted, t.ID, externalRef, w.Now())
		if err != nil {
			return err
		}
		w.Notify(models.Notification{
			UserID: acc.UserID,
			Kind:   models.NotifyTopupCompleted,
			Payload: map[string]string{
				"topup_id": topupID.String(),
				"amount":   current.Amount.StringFixed(models.MoneyScale),
				"currency": acc.Currency,
			},
		})
		return nil
	})
	if err != nil {
		if succeeded && errors.Is(err, models.ErrInvalidStateTransition) {
			logger.Log.Error("gateway confirmed a top-up that is no longer pending",
				zap.Stringer("topup", topupID), zap.String("external_ref", externalRef))
		}
		return models.TopupRequest{}, err
	}
	return resolved, nil
}

// Transfer moves amount from the referral balance to the main balance as two postings
// in one database transaction.
func (s *WService) Transfer(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (models.Balances, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return models.Balances{}, err
	}

	var balances models.Balances
	err := s.book.Run(ctx, func(ctx context.Context, w *ledger.Writer) error {
		ref := uuid.NewString()
		if _, err := w.Post(ctx, ledger.Entry{
			AccountID:   accountID,
			Type:        models.TxTransfer,
			BalanceType: models.BalanceReferral,
			Direction:   models.DirectionDebit,
			Amount:      amount,
			Description: "Transfer to main balance",
			ReferenceID: ref,
		}); err != nil {
			return err
		}
		if _, err := w.Post(ctx, ledger.Entry{
			AccountID:   accountID,
			Type:        models.TxTransfer,
			BalanceType: models.BalanceMain,
			Direction:   models.DirectionCredit,
			Amount:      amount,
			Description: "Transfer from referral balance",
			ReferenceID: ref,
		}); err != nil {
			return err
		}
		acc, err := w.Lock(ctx, accountID)
		if err != nil {
			return err
		}
		balances = acc.Balances()
		return nil
	})
	if err != nil {
		return models.Balances{}, err
	}
	return balances, nil
}

// RequestWithdrawal reserves amount on the referral balance and opens a pending request
// for admin review. A repeated idempotency key returns the original request.
func (s *WService) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, in WithdrawalInput) (models.WithdrawalRequest, error) {
	if err := s.limits.checkWithdrawal(in); err != nil {
		return models.WithdrawalRequest{}, err
	}

	var req models.WithdrawalRequest
	created := false
	err := s.book.Run(ctx, func(ctx context.Context, w *ledger.Writer) error {
		acc, err := w.Lock(ctx, accountID)
		if err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			existing, found, err := w.Tx().FindWithdrawalByKey(ctx, accountID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if found {
				req = existing
				return nil
			}
		}

		id := uuid.New()
		t, err := w.Post(ctx, ledger.Entry{
			AccountID:   accountID,
			Type:        models.TxWithdrawal,
			BalanceType: models.BalanceReferral,
			Amount:      in.Amount,
			Description: fmt.Sprintf("Withdrawal to %s", in.Method),
			ReferenceID: id.String(),
			Status:      models.TxStatusPending,
		})
		if err != nil {
			return err
		}
		req = models.WithdrawalRequest{
			ID:             id,
			UserID:         acc.UserID,
			AccountID:      accountID,
			Amount:         in.Amount,
			Method:         in.Method,
			PayoutDetails:  in.PayoutDetails,
			Status:         models.WithdrawalPending,
			IdempotencyKey: in.IdempotencyKey,
			TransactionID:  t.ID,
			CreatedAt:      w.Now(),
			UpdatedAt:      w.Now(),
		}
		created = true
		return w.Tx().InsertWithdrawal(ctx, req)
	})
	if err != nil {
		return models.WithdrawalRequest{}, err
	}
	if created {
		logger.Log.Info("withdrawal requested",
			zap.Stringer("withdrawal", req.ID),
			zap.Stringer("account", accountID),
			zap.String("amount", req.Amount.StringFixed(models.MoneyScale)),
			zap.String("method", string(req.Method)))
	}
	return req, nil
}

func (s *WService) ListWithdrawals(ctx context.Context, accountID uuid.UUID, limit, offset int) (models.Page[models.WithdrawalRequest], error) {
	limit, offset = models.NormalizePage(limit, offset)
	items, total, err := s.book.Store().ListWithdrawals(ctx, models.WithdrawalFilter{AccountID: accountID}, limit, offset)
	if err != nil {
		return models.Page[models.WithdrawalRequest]{}, err
	}
	if items == nil {
		items = []models.WithdrawalRequest{}
	}
	return models.Page[models.WithdrawalRequest]{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}
