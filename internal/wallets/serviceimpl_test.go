package wallets_test

import (
	"context"
	"errors"
	"github.com/Fuonder/marketledger.git/internal/gateway"
	"github.com/Fuonder/marketledger.git/internal/ledger"
	"github.com/Fuonder/marketledger.git/internal/ledger/ledgertest"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/storage"
	"github.com/Fuonder/marketledger.git/internal/storage/memstore"
	"github.com/Fuonder/marketledger.git/internal/wallets"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

type fakeGateway struct {
	err   error
	calls int
}

func (g *fakeGateway) CreatePayment(_ context.Context, req gateway.PaymentRequest) (gateway.PaymentSession, error) {
	g.calls++
	if g.err != nil {
		return gateway.PaymentSession{}, g.err
	}
	return gateway.PaymentSession{
		PaymentURL:  "https://pay.example/" + req.TopupID.String(),
		ExternalRef: "ext-" + req.TopupID.String()[:8],
	}, nil
}

func newService(env *ledgertest.Env, gw gateway.PaymentGateway) *wallets.WService {
	return wallets.NewWService(env.Book, gw, wallets.DefaultLimits(), models.DefaultCurrency)
}

func mbankWithdrawal(amount string) wallets.WithdrawalInput {
	return wallets.WithdrawalInput{
		Amount:        models.MustAmount(amount),
		Method:        models.PayoutMBank,
		PayoutDetails: models.PayoutDetails{Account: "0555123456", HolderName: "Aida K."},
	}
}

func TestTopup_Instant(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, nil)
	acc := env.OpenAccount("user-1")

	topup, err := srv.Topup(context.Background(), acc.ID, wallets.TopupInput{Amount: models.MustAmount("250.00")})
	require.NoError(t, err)
	assert.Equal(t, models.TopupCompleted, topup.Status)
	assert.Equal(t, models.TopupInstant, topup.Method)
	assert.NotEqual(t, uuid.Nil, topup.TransactionID)
	assert.Equal(t, "250.00", env.Balances(acc.ID).Main.StringFixed(2))

	txs := env.Store.Transactions(acc.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, topup.ID.String(), txs[0].ReferenceID)
}

func TestTopup_Validation(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, nil)
	acc := env.OpenAccount("user-1")
	ctx := context.Background()

	tests := []struct {
		name string
		in   wallets.TopupInput
		want error
	}{
		{name: "below minimum", in: wallets.TopupInput{Amount: models.MustAmount("99.99")}, want: models.ErrBelowMinimum},
		{name: "above maximum", in: wallets.TopupInput{Amount: models.MustAmount("100000.01")}, want: models.ErrAboveMaximum},
		{name: "negative", in: wallets.TopupInput{Amount: models.MustAmount("-100")}, want: models.ErrInvalidAmount},
		{name: "unknown method", in: wallets.TopupInput{Amount: models.MustAmount("100"), Method: "crypto"}, want: models.ErrUnknownTopupMethod},
		{name: "redirect without gateway", in: wallets.TopupInput{Amount: models.MustAmount("100"), Method: models.TopupRedirect}, want: models.ErrExternalGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.Topup(ctx, acc.ID, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, env.Store.Transactions(acc.ID))
}

func TestTopup_IdempotencyKey(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, nil)
	acc := env.OpenAccount("user-1")
	in := wallets.TopupInput{Amount: models.MustAmount("100.00"), IdempotencyKey: "k-1"}

	first, err := srv.Topup(context.Background(), acc.ID, in)
	require.NoError(t, err)
	second, err := srv.Topup(context.Background(), acc.ID, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "100.00", env.Balances(acc.ID).Main.StringFixed(2))
	assert.Len(t, env.Store.Transactions(acc.ID), 1)
}

func TestTopup_RedirectThenConfirm(t *testing.T) {
	env := ledgertest.New()
	gw := &fakeGateway{}
	srv := newService(env, gw)
	acc := env.OpenAccount("user-1")
	ctx := context.Background()

	topup, err := srv.Topup(ctx, acc.ID, wallets.TopupInput{Amount: models.MustAmount("700.00"), Method: models.TopupRedirect})
	require.NoError(t, err)
	assert.Equal(t, models.TopupPending, topup.Status)
	assert.Contains(t, topup.PaymentURL, topup.ID.String())
	assert.Equal(t, 1, gw.calls)
	assert.True(t, env.Balances(acc.ID).Main.IsZero())

	stored, err := env.Store.GetTopup(ctx, topup.ID)
	require.NoError(t, err)
	assert.Equal(t, topup.PaymentURL, stored.PaymentURL)

	confirmed, err := srv.ConfirmTopup(ctx, topup.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, models.TopupCompleted, confirmed.Status)
	assert.Equal(t, stored.ExternalRef, confirmed.ExternalRef)
	assert.Equal(t, "700.00", env.Balances(acc.ID).Main.StringFixed(2))

	notes := env.Notifier.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyTopupCompleted, notes[0].Kind)
	assert.Equal(t, "user-1", notes[0].UserID)

	again, err := srv.ConfirmTopup(ctx, topup.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, confirmed.TransactionID, again.TransactionID)
	assert.Equal(t, "700.00", env.Balances(acc.ID).Main.StringFixed(2))

	_, err = srv.ConfirmTopup(ctx, topup.ID, false, "")
	assert.ErrorIs(t, err, models.ErrInvalidStateTransition)
}

func TestTopup_RedirectDeclined(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, &fakeGateway{})
	acc := env.OpenAccount("user-1")
	ctx := context.Background()

	topup, err := srv.Topup(ctx, acc.ID, wallets.TopupInput{Amount: models.MustAmount("700.00"), Method: models.TopupRedirect})
	require.NoError(t, err)

	failed, err := srv.ConfirmTopup(ctx, topup.ID, false, "declined-1")
	require.NoError(t, err)
	assert.Equal(t, models.TopupFailed, failed.Status)
	assert.Equal(t, "declined-1", failed.ExternalRef)
	assert.True(t, env.Balances(acc.ID).Main.IsZero())
	assert.Empty(t, env.Store.Transactions(acc.ID))
}

func TestTopup_GatewayFailure(t *testing.T) {
	env := ledgertest.New()
	gw := &fakeGateway{err: models.ErrExternalGateway}
	srv := newService(env, gw)
	acc := env.OpenAccount("user-1")

	_, err := srv.Topup(context.Background(), acc.ID, wallets.TopupInput{
		Amount: models.MustAmount("700.00"), Method: models.TopupRedirect, IdempotencyKey: "k"})
	assert.ErrorIs(t, err, models.ErrExternalGateway)
	assert.True(t, env.Balances(acc.ID).Main.IsZero())

	// the same key keeps failing without another gateway call
	replay, err := srv.Topup(context.Background(), acc.ID, wallets.TopupInput{
		Amount: models.MustAmount("700.00"), Method: models.TopupRedirect, IdempotencyKey: "k"})
	assert.ErrorIs(t, err, models.ErrExternalGateway)
	assert.Equal(t, models.TopupFailed, replay.Status)
	assert.Equal(t, 1, gw.calls)
}

func TestConfirmTopup_Unknown(t *testing.T) {
	env := ledgertest.New()
	_, err := newService(env, nil).ConfirmTopup(context.Background(), uuid.New(), true, "")
	assert.ErrorIs(t, err, models.ErrTopupNotFound)
}

func TestTransfer(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, nil)
	acc := env.OpenAccount("user-1")
	env.Fund(acc.ID, models.BalanceReferral, "2000.00")
	env.Fund(acc.ID, models.BalanceMain, "500.00")

	b, err := srv.Transfer(context.Background(), acc.ID, models.MustAmount("2000"))
	require.NoError(t, err)
	assert.True(t, b.Referral.IsZero())
	assert.Equal(t, "2500.00", b.Main.StringFixed(2))
	stored := env.Balances(acc.ID)
	assert.True(t, stored.Main.Equal(b.Main))
	assert.True(t, stored.Referral.Equal(b.Referral))

	txs := env.Store.Transactions(acc.ID)
	require.Len(t, txs, 4)
	assert.Equal(t, models.TxTransfer, txs[0].Type)
	assert.Equal(t, txs[0].ReferenceID, txs[1].ReferenceID)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, nil)
	acc := env.OpenAccount("user-1")
	env.Fund(acc.ID, models.BalanceReferral, "1999.00")
	env.Fund(acc.ID, models.BalanceMain, "500.00")

	_, err := srv.Transfer(context.Background(), acc.ID, models.MustAmount("2000"))
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	b := env.Balances(acc.ID)
	assert.Equal(t, "1999.00", b.Referral.StringFixed(2))
	assert.Equal(t, "500.00", b.Main.StringFixed(2))

	_, err = srv.Transfer(context.Background(), acc.ID, models.MustAmount("0"))
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

// failingStore fails the n-th ledger insert of every unit of work.
type failingStore struct {
	*memstore.Store
	failOn int
}

type failingTx struct {
	storage.Tx
	inserts int
	failOn  int
}

var errDiskFull = errors.New("disk full")

func (t *failingTx) InsertTransaction(ctx context.Context, tr models.Transaction) (models.Transaction, error) {
	t.inserts++
	if t.inserts == t.failOn {
		return models.Transaction{}, errDiskFull
	}
	return t.Tx.InsertTransaction(ctx, tr)
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, &failingTx{Tx: tx, failOn: s.failOn})
	})
}

func TestTransfer_CreditLegFailureRollsBackDebit(t *testing.T) {
	env := ledgertest.New()
	acc := env.OpenAccount("user-1")
	env.Fund(acc.ID, models.BalanceReferral, "800.00")

	book := ledger.NewBook(&failingStore{Store: env.Store, failOn: 2}, nil, nil, nil)
	srv := wallets.NewWService(book, nil, wallets.DefaultLimits(), "")

	_, err := srv.Transfer(context.Background(), acc.ID, models.MustAmount("300"))
	assert.ErrorIs(t, err, errDiskFull)

	b := env.Balances(acc.ID)
	assert.Equal(t, "800.00", b.Referral.StringFixed(2))
	assert.True(t, b.Main.IsZero())
	assert.Len(t, env.Store.Transactions(acc.ID), 1)
}

func TestRequestWithdrawal_ReservesReferralBalance(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, nil)
	acc := env.OpenAccount("user-1")
	env.Fund(acc.ID, models.BalanceReferral, "5000.00")

	req, err := srv.RequestWithdrawal(context.Background(), acc.ID, mbankWithdrawal("3000"))
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, req.Status)
	assert.Equal(t, "user-1", req.UserID)
	assert.Equal(t, "2000.00", env.Balances(acc.ID).Referral.StringFixed(2))

	txs := env.Store.Transactions(acc.ID)
	require.Len(t, txs, 2)
	assert.Equal(t, req.TransactionID, txs[0].ID)
	assert.Equal(t, models.TxStatusPending, txs[0].Status)
	assert.Equal(t, models.DirectionDebit, txs[0].Direction)

	rec, err := env.Ledger.Reconcile(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestRequestWithdrawal_Validation(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, nil)
	acc := env.OpenAccount("user-1")
	env.Fund(acc.ID, models.BalanceReferral, "10000.00")

	card := mbankWithdrawal("2999.99")
	card.Method = models.PayoutCard
	noDetails := mbankWithdrawal("1000")
	noDetails.PayoutDetails.HolderName = "  "
	unknown := mbankWithdrawal("1000")
	unknown.Method = "paypal"

	tests := []struct {
		name string
		in   wallets.WithdrawalInput
		want error
	}{
		{name: "below default minimum", in: mbankWithdrawal("999.99"), want: models.ErrBelowMinimum},
		{name: "below card minimum", in: card, want: models.ErrBelowMinimum},
		{name: "blank holder", in: noDetails, want: models.ErrMissingPayoutDetails},
		{name: "unknown method", in: unknown, want: models.ErrUnknownPayoutMethod},
		{name: "fractional cents", in: mbankWithdrawal("1000.001"), want: models.ErrInvalidAmount},
		{name: "more than balance", in: mbankWithdrawal("10000.01"), want: models.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.RequestWithdrawal(context.Background(), acc.ID, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, "10000.00", env.Balances(acc.ID).Referral.StringFixed(2))
}

func TestRequestWithdrawal_IdempotencyKey(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, nil)
	acc := env.OpenAccount("user-1")
	env.Fund(acc.ID, models.BalanceReferral, "5000.00")

	in := mbankWithdrawal("1500")
	in.IdempotencyKey = "retry-1"
	first, err := srv.RequestWithdrawal(context.Background(), acc.ID, in)
	require.NoError(t, err)
	second, err := srv.RequestWithdrawal(context.Background(), acc.ID, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "3500.00", env.Balances(acc.ID).Referral.StringFixed(2))

	page, err := srv.ListWithdrawals(context.Background(), acc.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestRequestWithdrawal_ConcurrentOnlyOneSucceeds(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, nil)
	acc := env.OpenAccount("user-1")
	env.Fund(acc.ID, models.BalanceReferral, "3000.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = srv.RequestWithdrawal(context.Background(), acc.ID, mbankWithdrawal("3000"))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, env.Balances(acc.ID).Referral.IsZero())

	page, err := srv.ListWithdrawals(context.Background(), acc.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.WithdrawalPending, page.Items[0].Status)
}

func TestRequestWithdrawal_ManyConcurrentNeverOverdraw(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, nil)
	acc := env.OpenAccount("user-1")
	env.Fund(acc.ID, models.BalanceReferral, "10000.00")

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = srv.RequestWithdrawal(context.Background(), acc.ID, mbankWithdrawal("1000"))
		}()
	}
	wg.Wait()

	assert.True(t, env.Balances(acc.ID).Referral.IsZero())
	page, err := srv.ListWithdrawals(context.Background(), acc.ID, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, page.Total)
}

func TestTopupSweeper(t *testing.T) {
	env := ledgertest.New()
	srv := newService(env, &fakeGateway{})
	acc := env.OpenAccount("user-1")
	ctx := context.Background()

	stale, err := srv.Topup(ctx, acc.ID, wallets.TopupInput{Amount: models.MustAmount("300"), Method: models.TopupRedirect})
	require.NoError(t, err)

	sweeper := wallets.NewTopupSweeper(env.Store, time.Nanosecond, time.Hour)
	time.Sleep(time.Millisecond)
	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := env.Store.GetTopup(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopupFailed, got.Status)
	assert.True(t, env.Balances(acc.ID).Main.IsZero())

	_, err = srv.ConfirmTopup(ctx, stale.ID, true, "")
	assert.ErrorIs(t, err, models.ErrInvalidStateTransition)

	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	assert.NoError(t, sweeper.Run(runCtx))
}
